package service

import (
	"context"

	"github.com/google/uuid"

	"focus-planner/internal/model"
	"focus-planner/internal/recurrence"
	"focus-planner/internal/repository"
)

// ExpansionService materializes the next instance of a recurring task when
// the current one is completed.
type ExpansionService struct {
	taskRepo *repository.TaskRepository
}

func NewExpansionService(taskRepo *repository.TaskRepository) *ExpansionService {
	return &ExpansionService{taskRepo: taskRepo}
}

// OnTaskCompleted computes and persists the next series instance for a just
// completed recurring task. Returns nil when the task does not recur, the
// series has reached its end date, or an equivalent active instance already
// exists (duplicate suppression for completion toggled off and back on).
func (s *ExpansionService) OnTaskCompleted(ctx context.Context, task *model.Task) (*model.Task, error) {
	if !task.IsRecurring() || task.DueDate == nil {
		return nil, nil
	}

	interval := task.RecurrenceInterval
	if interval < 1 {
		interval = 1
	}
	nextDue := recurrence.NextDueDate(*task.DueDate, task.Recurrence, interval, task.RecurrenceDayList())

	if task.RecurrenceEndDate != nil && nextDue.After(*task.RecurrenceEndDate) {
		return nil, nil
	}

	seriesID := task.SeriesID
	if seriesID == "" {
		seriesID = task.ID
	}

	active, err := s.taskRepo.GetByStatus(ctx, model.StatusActive)
	if err != nil {
		return nil, err
	}
	for _, existing := range active {
		if existing.DueDate == nil || !existing.DueDate.Equal(nextDue) {
			continue
		}
		if existing.SeriesID == seriesID || existing.Content == task.Content {
			return nil, nil
		}
	}

	next := &model.Task{
		ID:                 uuid.Must(uuid.NewV7()).String(),
		Content:            task.Content,
		Notes:              task.Notes,
		Category:           task.Category,
		Priority:           task.Priority,
		DueDate:            &nextDue,
		DueTime:            task.DueTime,
		Recurrence:         task.Recurrence,
		RecurrenceInterval: task.RecurrenceInterval,
		RecurrenceDays:     task.RecurrenceDays,
		RecurrenceEndDate:  task.RecurrenceEndDate,
		SeriesID:           seriesID,
		EstimatedDuration:  task.EstimatedDuration,
		Difficulty:         task.Difficulty,
		Status:             model.StatusActive,
	}
	if err := s.taskRepo.Create(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}
