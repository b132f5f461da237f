// Package oracle wraps the external task-ranking and status-summary service.
// The core treats it as a slow, fallible black box; every caller has a local
// fallback for when it errors or times out.
package oracle

import (
	"context"
	"time"
)

// TaskSummary is the candidate shape handed to the ranking oracle.
type TaskSummary struct {
	ID                string     `json:"id"`
	Content           string     `json:"content"`
	Category          string     `json:"category,omitempty"`
	Priority          string     `json:"priority,omitempty"`
	DueDate           *time.Time `json:"due_date,omitempty"`
	DueTime           string     `json:"due_time,omitempty"`
	Difficulty        string     `json:"difficulty,omitempty"`
	EstimatedDuration int        `json:"estimated_duration,omitempty"`
	IsOverdue         bool       `json:"is_overdue"`
}

// TimeContext tells the oracle what "today" means.
type TimeContext struct {
	Now     time.Time `json:"now"`
	Weekday string    `json:"weekday"`
	Date    string    `json:"date"`
}

// FocusSelection is the oracle's ordered pick plus its rationale.
type FocusSelection struct {
	TaskIDs   []string `json:"task_ids"`
	Reasoning string   `json:"reasoning"`
}

// StatusItem is the reduced task shape used for advisory summaries.
type StatusItem struct {
	Content   string `json:"content"`
	Priority  string `json:"priority,omitempty"`
	IsOverdue bool   `json:"is_overdue"`
}

// Oracle selects focus tasks and writes short advisory messages.
type Oracle interface {
	SelectFocusTasks(ctx context.Context, candidates []TaskSummary, tc TimeContext) (*FocusSelection, error)
	SummarizeStatus(ctx context.Context, items []StatusItem, timeOfDay string) (string, error)
}
