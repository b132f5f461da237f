package model

import (
	"strings"
	"time"
)

// Nudge types.
const (
	NudgeMorningCheckIn  = "morning-checkin"
	NudgeMiddayCheckIn   = "midday-checkin"
	NudgeOverdueReminder = "overdue-reminder"
)

// Nudge is a persisted advisory message shown at a check-in or alert
// trigger. The log is append-only; the core only ever flips Dismissed.
type Nudge struct {
	ID             string `gorm:"primaryKey"`
	Type           string `gorm:"index"`
	Message        string
	RelatedTaskIDs string // comma-separated task ids
	Dismissed      bool   `gorm:"default:false"`
	CreatedAt      time.Time
}

// RelatedIDs splits RelatedTaskIDs into a slice, empty when none are set.
func (n *Nudge) RelatedIDs() []string {
	if strings.TrimSpace(n.RelatedTaskIDs) == "" {
		return nil
	}
	return strings.Split(n.RelatedTaskIDs, ",")
}

// JoinTaskIDs renders a task id list into storage form.
func JoinTaskIDs(ids []string) string {
	return strings.Join(ids, ",")
}
