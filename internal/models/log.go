package models

import (
	"time"
)

// Automation action names recorded in the activity log
const (
	ActionGenerateContent    = "generate_content"
	ActionGenerateImage      = "generate_image"
	ActionGenerateImagePrmpt = "generate_image_prompt"
	ActionPostToTelegram     = "post_to_telegram"
	ActionProcessTopic       = "process_topic"
)

// ActionTranslateTo returns the per-language translation action name,
// e.g. "translate_to_en"
func ActionTranslateTo(lang Language) string {
	return "translate_to_" + string(lang)
}

// LogStatus is the outcome of a logged automation step
type LogStatus string

const (
	LogStatusSuccess LogStatus = "success"
	LogStatusFailed  LogStatus = "failed"
)

// ActivityLog is an append-only audit record of one automation step.
// Entries are never mutated or deleted; they exist purely for
// operator review.
type ActivityLog struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	TopicID         *uint     `gorm:"index" json:"topic_id"`
	Action          string    `gorm:"index;not null" json:"action"`
	Status          LogStatus `gorm:"default:'success'" json:"status"`
	Message         string    `gorm:"type:text" json:"message"`
	DurationSeconds float64   `json:"duration_seconds"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
