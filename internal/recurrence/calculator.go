// Package recurrence computes next occurrences for repeating tasks.
package recurrence

import (
	"time"

	"focus-planner/internal/model"
)

// NextDueDate returns the next occurrence after current for the given
// recurrence type. Output depends only on the inputs; there is no
// current-time dependency.
//
// Weekday indices follow time.Weekday: 0=Sunday..6=Saturday. The days set
// only affects weekly recurrence. "custom" currently steps interval days,
// same as daily with a variable interval.
func NextDueDate(current time.Time, recType string, interval int, days []int) time.Time {
	if recType == "" || recType == model.RecurrenceNone {
		return current
	}
	if interval < 1 {
		interval = 1
	}

	switch recType {
	case model.RecurrenceDaily, model.RecurrenceCustom:
		return current.AddDate(0, 0, interval)
	case model.RecurrenceWeekly:
		if len(days) == 0 {
			return current.AddDate(0, 0, 7*interval)
		}
		return nextWeekday(current, interval, days)
	case model.RecurrenceMonthly:
		return addMonthsClamped(current, interval)
	default:
		return current.AddDate(0, 0, interval)
	}
}

// nextWeekday advances to the next selected weekday. Within the current week
// the interval is ignored; once the week's selected days are exhausted the
// date wraps to the first selected day, interval weeks ahead.
func nextWeekday(current time.Time, interval int, days []int) time.Time {
	cur := int(current.Weekday())

	next := -1
	first := 7
	for _, day := range days {
		if day < 0 || day > 6 {
			continue
		}
		if day < first {
			first = day
		}
		if day > cur && (next == -1 || day < next) {
			next = day
		}
	}
	if first == 7 {
		// All entries out of range; behave like plain weekly.
		return current.AddDate(0, 0, 7*interval)
	}

	if next != -1 {
		return current.AddDate(0, 0, next-cur)
	}
	return current.AddDate(0, 0, 7-cur+first+(interval-1)*7)
}

// addMonthsClamped adds calendar months, clamping the day-of-month to the
// target month's last valid day instead of letting it overflow.
func addMonthsClamped(current time.Time, months int) time.Time {
	year, month, day := current.Date()
	hour, minute, sec := current.Clock()

	target := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, current.Location())
	if max := daysInMonth(target.Month(), target.Year()); day > max {
		day = max
	}
	return time.Date(target.Year(), target.Month(), day, hour, minute, sec, current.Nanosecond(), current.Location())
}

func daysInMonth(month time.Month, year int) int {
	// Move to next month, roll back a day.
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	firstOfNextMonth := firstOfMonth.AddDate(0, 1, 0)
	lastOfMonth := firstOfNextMonth.AddDate(0, 0, -1)
	return lastOfMonth.Day()
}
