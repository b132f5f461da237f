package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"focus-planner/internal/model"
	"focus-planner/internal/repository"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Content            string
	Notes              string
	Category           string
	Priority           string
	DueDate            *time.Time
	DueTime            string
	Recurrence         string
	RecurrenceInterval int
	RecurrenceDays     []int
	RecurrenceEndDate  *time.Time
	EstimatedDuration  int
	Difficulty         string
}

// TaskService wraps task-related business logic, including the one-shot
// completion trigger that drives series expansion.
type TaskService struct {
	taskRepo  *repository.TaskRepository
	expansion *ExpansionService
}

func NewTaskService(taskRepo *repository.TaskRepository, expansion *ExpansionService) *TaskService {
	return &TaskService{taskRepo: taskRepo, expansion: expansion}
}

func (s *TaskService) CreateTask(ctx context.Context, input TaskInput) (*model.Task, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, fmt.Errorf("content is required")
	}

	recur := input.Recurrence
	if recur == "" {
		recur = model.RecurrenceNone
	}
	switch recur {
	case model.RecurrenceNone, model.RecurrenceDaily, model.RecurrenceWeekly,
		model.RecurrenceMonthly, model.RecurrenceCustom:
	default:
		return nil, fmt.Errorf("unknown recurrence %q", recur)
	}

	task := model.Task{
		ID:                uuid.Must(uuid.NewV7()).String(),
		Content:           strings.TrimSpace(input.Content),
		Notes:             input.Notes,
		Category:          input.Category,
		Priority:          input.Priority,
		DueDate:           input.DueDate,
		DueTime:           input.DueTime,
		Recurrence:        recur,
		EstimatedDuration: input.EstimatedDuration,
		Difficulty:        input.Difficulty,
		Status:            model.StatusActive,
	}
	if recur != model.RecurrenceNone {
		task.RecurrenceInterval = input.RecurrenceInterval
		if task.RecurrenceInterval < 1 {
			task.RecurrenceInterval = 1
		}
		task.RecurrenceDays = model.FormatWeekdays(input.RecurrenceDays)
		task.RecurrenceEndDate = input.RecurrenceEndDate
	}

	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) ListAll(ctx context.Context) ([]model.Task, error) {
	return s.taskRepo.GetAll(ctx)
}

func (s *TaskService) ListByStatus(ctx context.Context, status string) ([]model.Task, error) {
	return s.taskRepo.GetByStatus(ctx, status)
}

func (s *TaskService) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return s.taskRepo.FindByID(ctx, id)
}

func (s *TaskService) UpdateTask(ctx context.Context, id string, patch repository.TaskPatch) (*model.Task, error) {
	return s.taskRepo.Update(ctx, id, patch)
}

// CompleteTask marks a task as done and, for recurring tasks, materializes
// the next series instance. Expansion runs exactly once per active to
// completed transition; completing an already completed task is a no-op.
func (s *TaskService) CompleteTask(ctx context.Context, id string, completedAt time.Time) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, nil
	}
	if task.Status == model.StatusCompleted {
		return task, nil
	}

	if err := s.taskRepo.MarkCompleted(ctx, task, completedAt); err != nil {
		return nil, err
	}
	if _, err := s.expansion.OnTaskCompleted(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// ReopenTask returns a completed task to the active state. The completion
// trigger fires again on the next transition; duplicate series instances are
// suppressed by the expansion service.
func (s *TaskService) ReopenTask(ctx context.Context, id string) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, nil
	}
	if task.Status == model.StatusActive {
		return task, nil
	}
	if err := s.taskRepo.Reopen(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, id string) (bool, error) {
	return s.taskRepo.Delete(ctx, id)
}
