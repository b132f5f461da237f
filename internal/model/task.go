package model

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Task statuses.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Recurrence types.
const (
	RecurrenceNone    = "none"
	RecurrenceDaily   = "daily"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
	RecurrenceCustom  = "custom"
)

// Priority labels. Empty means unset.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// FocusDateFormat is the calendar-day key used for focus assignments.
const FocusDateFormat = "2006-01-02"

// Task represents a single item in the planner.
type Task struct {
	ID       string `gorm:"primaryKey"`
	Content  string
	Notes    string
	Category string
	Priority string

	DueDate        *time.Time
	DueTime        string // HH:mm local time of day, independent of DueDate's own clock
	LastNotifiedAt *time.Time

	Recurrence         string `gorm:"default:none"`
	RecurrenceInterval int
	RecurrenceDays     string // comma-separated weekday indices, 0=Sunday..6=Saturday
	RecurrenceEndDate  *time.Time
	SeriesID           string `gorm:"index"`

	EstimatedDuration int // minutes
	Difficulty        string

	Status      string `gorm:"index;default:active"`
	CompletedAt *time.Time

	FocusDate  *string `gorm:"index"`
	FocusOrder *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsRecurring reports whether the task produces series instances.
func (t *Task) IsRecurring() bool {
	return t.Recurrence != "" && t.Recurrence != RecurrenceNone
}

// IsOverdue reports whether the task is active with a due date strictly before now.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.Status == StatusActive && t.DueDate != nil && t.DueDate.Before(now)
}

// RecurrenceDayList parses RecurrenceDays into a sorted set of weekday indices.
func (t *Task) RecurrenceDayList() []int {
	return ParseWeekdays(t.RecurrenceDays)
}

// ParseWeekdays parses a comma-separated weekday index string like "1,3,5".
// Out-of-range, duplicate, or malformed entries are dropped.
func ParseWeekdays(raw string) []int {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	seen := make(map[int]bool)
	var days []int
	for _, part := range strings.Split(raw, ",") {
		day, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || day < 0 || day > 6 || seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}
	sort.Ints(days)
	return days
}

// FormatWeekdays renders a weekday index set back into storage form.
func FormatWeekdays(days []int) string {
	if len(days) == 0 {
		return ""
	}
	sorted := append([]int(nil), days...)
	sort.Ints(sorted)
	parts := make([]string, 0, len(sorted))
	for _, d := range sorted {
		parts = append(parts, strconv.Itoa(d))
	}
	return strings.Join(parts, ",")
}
