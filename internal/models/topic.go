package models

import (
	"time"
)

// TopicStatus represents the current state of a topic
type TopicStatus string

const (
	TopicStatusPending    TopicStatus = "pending"
	TopicStatusProcessing TopicStatus = "processing"
	TopicStatusCompleted  TopicStatus = "completed"
	TopicStatusFailed     TopicStatus = "failed"
)

// Topic represents a unit of prospective blog content awaiting generation.
// Topics are created by operators (manually, from CSV, or from an RSS feed)
// and consumed one at a time by the automation scheduler.
type Topic struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Title       string      `gorm:"not null" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	Status      TopicStatus `gorm:"index;default:'pending'" json:"status"`
	// BlockID references the content block this topic produced, set only
	// after generation succeeds. A topic with a block can no longer be deleted.
	BlockID      *uint      `gorm:"index" json:"block_id"`
	ScheduledFor *time.Time `json:"scheduled_for"`
	CreatedAt    time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the topic reached a final state
func (t *Topic) IsTerminal() bool {
	return t.Status == TopicStatusCompleted || t.Status == TopicStatusFailed
}
