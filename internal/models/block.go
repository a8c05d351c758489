package models

import (
	"time"
)

// ContentBlock is a published content unit occupying one of a fixed set of
// display positions; blocks rotate through the position slots instead of
// growing without bound. The scheduler creates blocks in the base language
// and later attaches translations and a featured image.
type ContentBlock struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Title   string `gorm:"not null" json:"title"`
	Content string `gorm:"type:text;not null" json:"content"`
	Summary string `gorm:"type:text" json:"summary"`

	// Translated variants. Empty until the translation step fills them in.
	TitleEN   string `json:"title_en"`
	ContentEN string `gorm:"type:text" json:"content_en"`
	SummaryEN string `gorm:"type:text" json:"summary_en"`
	TitleDE   string `json:"title_de"`
	ContentDE string `gorm:"type:text" json:"content_de"`
	SummaryDE string `gorm:"type:text" json:"summary_de"`
	TitleRU   string `json:"title_ru"`
	ContentRU string `gorm:"type:text" json:"content_ru"`
	SummaryRU string `gorm:"type:text" json:"summary_ru"`

	FeaturedImage string    `json:"featured_image"` // Filename under the uploads directory
	Position      int       `gorm:"index;default:1" json:"position"`
	IsActive      bool      `gorm:"index;default:true" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`
}

// SetTranslation stores a translated body for the given language.
// TODO: translate title and summary as well; for now they are copied
// verbatim from the base language.
func (b *ContentBlock) SetTranslation(lang Language, content string) bool {
	switch lang {
	case LanguageEnglish:
		b.ContentEN = content
		b.TitleEN = b.Title
		b.SummaryEN = b.Summary
	case LanguageGerman:
		b.ContentDE = content
		b.TitleDE = b.Title
		b.SummaryDE = b.Summary
	case LanguageRussian:
		b.ContentRU = content
		b.TitleRU = b.Title
		b.SummaryRU = b.Summary
	default:
		return false
	}
	return true
}

// Translation returns the stored body for the given language, or the empty
// string if none was stored
func (b *ContentBlock) Translation(lang Language) string {
	switch lang {
	case LanguageEnglish:
		return b.ContentEN
	case LanguageGerman:
		return b.ContentDE
	case LanguageRussian:
		return b.ContentRU
	}
	return ""
}
