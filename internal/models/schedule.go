package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday numbers days with Monday as 0, matching the schedule settings
// the operator edits. Note this differs from time.Weekday (Sunday = 0).
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// WeekdayOf converts a time.Time to the Monday-based weekday
func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 6) % 7)
}

// Weekdays is a set of weekdays, stored as a comma-joined string
// (e.g. "0,1,2,3,4") at the database boundary.
type Weekdays []Weekday

func (w Weekdays) Value() (driver.Value, error) {
	parts := make([]string, len(w))
	for i, d := range w {
		parts[i] = strconv.Itoa(int(d))
	}
	return strings.Join(parts, ","), nil
}

func (w *Weekdays) Scan(value interface{}) error {
	*w = nil
	if value == nil {
		return nil
	}
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Weekdays", value)
	}
	if s == "" {
		return nil
	}
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return fmt.Errorf("invalid weekday %q: %w", part, err)
		}
		*w = append(*w, Weekday(n))
	}
	return nil
}

// Contains reports whether the set includes the given weekday
func (w Weekdays) Contains(day Weekday) bool {
	for _, d := range w {
		if d == day {
			return true
		}
	}
	return false
}

// EveryDay is the full weekday set
func EveryDay() Weekdays {
	return Weekdays{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// Language is an ISO 639-1 language code
type Language string

const (
	LanguageUkrainian Language = "uk"
	LanguageEnglish   Language = "en"
	LanguageGerman    Language = "de"
	LanguageRussian   Language = "ru"
)

// Languages is a set of language codes, stored as a comma-joined string
// (e.g. "en,de,ru") at the database boundary.
type Languages []Language

func (l Languages) Value() (driver.Value, error) {
	parts := make([]string, len(l))
	for i, lang := range l {
		parts[i] = string(lang)
	}
	return strings.Join(parts, ","), nil
}

func (l *Languages) Scan(value interface{}) error {
	*l = nil
	if value == nil {
		return nil
	}
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Languages", value)
	}
	if s == "" {
		return nil
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		*l = append(*l, Language(strings.ToLower(part)))
	}
	return nil
}

// PostingSchedule is the single record controlling when and how the
// automation runs. It is created lazily and edited only by operators;
// the scheduler reads it once per tick.
type PostingSchedule struct {
	ID          uint     `gorm:"primaryKey" json:"id"`
	IsActive    bool     `gorm:"default:false" json:"is_active"`
	Weekdays    Weekdays `gorm:"type:text;default:'0,1,2,3,4,5,6'" json:"weekdays"`
	PostingTime string   `gorm:"default:'12:00'" json:"posting_time"` // HH:MM

	AutoTranslate   bool      `gorm:"default:true" json:"auto_translate"`
	TargetLanguages Languages `gorm:"type:text;default:'en,de,ru'" json:"target_languages"`

	GenerateImages bool   `gorm:"default:true" json:"generate_images"`
	ImageStyle     string `gorm:"default:'professional, high quality'" json:"image_style"`

	PostToTelegram bool `gorm:"default:false" json:"post_to_telegram"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// DefaultPostingSchedule returns the schedule created on first access
func DefaultPostingSchedule() *PostingSchedule {
	return &PostingSchedule{
		IsActive:        false,
		Weekdays:        EveryDay(),
		PostingTime:     "12:00",
		AutoTranslate:   true,
		TargetLanguages: Languages{LanguageEnglish, LanguageGerman, LanguageRussian},
		GenerateImages:  true,
		ImageStyle:      "professional, high quality",
		PostToTelegram:  false,
	}
}

// ParsePostingTime parses an "HH:MM" posting time. It rejects missing
// colons, non-numeric parts and out-of-range values.
func ParsePostingTime(s string) (hour, minute int, err error) {
	if !strings.Contains(s, ":") {
		return 0, 0, fmt.Errorf("invalid posting time format: %q", s)
	}
	parts := strings.SplitN(s, ":", 2)
	hour, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid posting time hour: %q", s)
	}
	minute, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid posting time minute: %q", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("posting time out of range: %q", s)
	}
	return hour, minute, nil
}
