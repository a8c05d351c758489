package storage

import (
	"context"
	"errors"
	"time"

	"github.com/blog-agent/internal/models"
)

// ErrTopicHasBlock is returned when deleting a topic that already produced
// a content block.
var ErrTopicHasBlock = errors.New("topic has a generated content block and cannot be deleted")

// Repository defines the interface for data persistence
type Repository interface {
	// Topic operations
	CreateTopic(ctx context.Context, topic *models.Topic) error
	GetTopicByID(ctx context.Context, id uint) (*models.Topic, error)
	ListTopics(ctx context.Context, filter TopicFilter) ([]*models.Topic, error)
	UpdateTopic(ctx context.Context, topic *models.Topic) error
	// DeleteTopic removes a topic; it fails with ErrTopicHasBlock once the
	// topic references a generated block.
	DeleteTopic(ctx context.Context, id uint) error
	// OldestPendingTopic returns the pending topic with the earliest
	// creation time, or nil if the queue is empty.
	OldestPendingTopic(ctx context.Context) (*models.Topic, error)
	// ClaimTopic flips a topic from pending to processing with a single
	// conditional update. It reports false when another worker already
	// claimed the topic.
	ClaimTopic(ctx context.Context, id uint) (bool, error)
	// StaleProcessingTopics returns topics stuck in processing since
	// before the given time.
	StaleProcessingTopics(ctx context.Context, before time.Time) ([]*models.Topic, error)

	// Content block operations
	CreateBlock(ctx context.Context, block *models.ContentBlock) error
	GetBlockByID(ctx context.Context, id uint) (*models.ContentBlock, error)
	ListBlocks(ctx context.Context, activeOnly bool) ([]*models.ContentBlock, error)
	UpdateBlock(ctx context.Context, block *models.ContentBlock) error
	// FirstInactiveBlock returns any inactive block (its position slot is
	// free for reuse), or nil when all blocks are active.
	FirstInactiveBlock(ctx context.Context) (*models.ContentBlock, error)
	// OldestUpdatedBlock returns the least recently updated block, or nil
	// when no blocks exist.
	OldestUpdatedBlock(ctx context.Context) (*models.ContentBlock, error)

	// Schedule operations
	GetSchedule(ctx context.Context) (*models.PostingSchedule, error)
	EnsureSchedule(ctx context.Context) (*models.PostingSchedule, error)
	SaveSchedule(ctx context.Context, schedule *models.PostingSchedule) error

	// Activity log operations
	AppendLog(ctx context.Context, entry *models.ActivityLog) error
	ListLogs(ctx context.Context, filter LogFilter) ([]*models.ActivityLog, error)

	// Maintenance
	Close() error
	Migrate() error
}

// TopicFilter defines filtering options for topics
type TopicFilter struct {
	Status    *models.TopicStatus
	Limit     int
	Offset    int
	OrderDesc bool
}

// LogFilter defines filtering options for activity log entries
type LogFilter struct {
	TopicID *uint
	Action  *string
	Status  *models.LogStatus
	Limit   int
	Offset  int
}

// DefaultTopicFilter returns a filter with sensible defaults
func DefaultTopicFilter() TopicFilter {
	return TopicFilter{
		Limit:     50,
		OrderDesc: false,
	}
}

// DefaultLogFilter returns a filter with sensible defaults
func DefaultLogFilter() LogFilter {
	return LogFilter{
		Limit: 50,
	}
}
