package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/blog-agent/internal/models"
	"github.com/blog-agent/internal/storage"
)

// Repository implements storage.Repository using SQLite
type Repository struct {
	db *gorm.DB
}

// New creates a new SQLite repository
func New(dsn string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Repository{db: db}, nil
}

// NewInMemory creates a repository backed by an in-memory database.
// Used by tests.
func NewInMemory() (*Repository, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	return &Repository{db: db}, nil
}

// Migrate runs database migrations
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&models.Topic{},
		&models.ContentBlock{},
		&models.PostingSchedule{},
		&models.ActivityLog{},
	)
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Topic operations

func (r *Repository) CreateTopic(ctx context.Context, topic *models.Topic) error {
	return r.db.WithContext(ctx).Create(topic).Error
}

func (r *Repository) GetTopicByID(ctx context.Context, id uint) (*models.Topic, error) {
	var topic models.Topic
	if err := r.db.WithContext(ctx).First(&topic, id).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *Repository) ListTopics(ctx context.Context, filter storage.TopicFilter) ([]*models.Topic, error) {
	var topics []*models.Topic
	query := r.db.WithContext(ctx).Model(&models.Topic{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if filter.OrderDesc {
		query = query.Order("created_at DESC")
	} else {
		query = query.Order("created_at ASC")
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

func (r *Repository) UpdateTopic(ctx context.Context, topic *models.Topic) error {
	return r.db.WithContext(ctx).Save(topic).Error
}

func (r *Repository) DeleteTopic(ctx context.Context, id uint) error {
	var topic models.Topic
	if err := r.db.WithContext(ctx).First(&topic, id).Error; err != nil {
		return err
	}
	if topic.BlockID != nil {
		return storage.ErrTopicHasBlock
	}
	return r.db.WithContext(ctx).Delete(&models.Topic{}, id).Error
}

func (r *Repository) OldestPendingTopic(ctx context.Context) (*models.Topic, error) {
	var topic models.Topic
	err := r.db.WithContext(ctx).
		Where("status = ?", models.TopicStatusPending).
		Order("created_at ASC, id ASC").
		First(&topic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *Repository) ClaimTopic(ctx context.Context, id uint) (bool, error) {
	// Conditional update so the claim is atomic at the storage layer:
	// only one worker can move a topic out of pending.
	res := r.db.WithContext(ctx).
		Model(&models.Topic{}).
		Where("id = ? AND status = ?", id, models.TopicStatusPending).
		Updates(map[string]interface{}{
			"status":     models.TopicStatusProcessing,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) StaleProcessingTopics(ctx context.Context, before time.Time) ([]*models.Topic, error) {
	var topics []*models.Topic
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.TopicStatusProcessing, before).
		Order("updated_at ASC").
		Find(&topics).Error
	if err != nil {
		return nil, err
	}
	return topics, nil
}

// Content block operations

func (r *Repository) CreateBlock(ctx context.Context, block *models.ContentBlock) error {
	return r.db.WithContext(ctx).Create(block).Error
}

func (r *Repository) GetBlockByID(ctx context.Context, id uint) (*models.ContentBlock, error) {
	var block models.ContentBlock
	if err := r.db.WithContext(ctx).First(&block, id).Error; err != nil {
		return nil, err
	}
	return &block, nil
}

func (r *Repository) ListBlocks(ctx context.Context, activeOnly bool) ([]*models.ContentBlock, error) {
	var blocks []*models.ContentBlock
	query := r.db.WithContext(ctx).Model(&models.ContentBlock{}).Order("position ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&blocks).Error; err != nil {
		return nil, err
	}
	return blocks, nil
}

func (r *Repository) UpdateBlock(ctx context.Context, block *models.ContentBlock) error {
	return r.db.WithContext(ctx).Save(block).Error
}

func (r *Repository) FirstInactiveBlock(ctx context.Context) (*models.ContentBlock, error) {
	var block models.ContentBlock
	err := r.db.WithContext(ctx).
		Where("is_active = ?", false).
		First(&block).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &block, nil
}

func (r *Repository) OldestUpdatedBlock(ctx context.Context) (*models.ContentBlock, error) {
	var block models.ContentBlock
	err := r.db.WithContext(ctx).
		Order("updated_at ASC").
		First(&block).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &block, nil
}

// Schedule operations

func (r *Repository) GetSchedule(ctx context.Context) (*models.PostingSchedule, error) {
	var schedule models.PostingSchedule
	err := r.db.WithContext(ctx).Order("id ASC").First(&schedule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *Repository) EnsureSchedule(ctx context.Context) (*models.PostingSchedule, error) {
	schedule, err := r.GetSchedule(ctx)
	if err != nil {
		return nil, err
	}
	if schedule != nil {
		return schedule, nil
	}
	schedule = models.DefaultPostingSchedule()
	if err := r.db.WithContext(ctx).Create(schedule).Error; err != nil {
		return nil, err
	}
	return schedule, nil
}

func (r *Repository) SaveSchedule(ctx context.Context, schedule *models.PostingSchedule) error {
	return r.db.WithContext(ctx).Save(schedule).Error
}

// Activity log operations

func (r *Repository) AppendLog(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *Repository) ListLogs(ctx context.Context, filter storage.LogFilter) ([]*models.ActivityLog, error) {
	var entries []*models.ActivityLog
	query := r.db.WithContext(ctx).Model(&models.ActivityLog{}).Order("created_at DESC")

	if filter.TopicID != nil {
		query = query.Where("topic_id = ?", *filter.TopicID)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", *filter.Action)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
