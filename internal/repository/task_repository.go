package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"focus-planner/internal/model"
)

// TaskPatch enumerates the mutable task fields for partial updates. Identity
// and lifecycle fields (id, status, completedAt, timestamps) are not
// patchable; status transitions go through MarkCompleted/Reopen.
type TaskPatch struct {
	Content  *string
	Notes    *string
	Category *string
	Priority *string

	DueDate      *time.Time
	ClearDueDate bool
	DueTime      *string

	Recurrence         *string
	RecurrenceInterval *int
	RecurrenceDays     *string
	RecurrenceEndDate  *time.Time
	ClearRecurrenceEnd bool

	EstimatedDuration *int
	Difficulty        *string
}

func (p TaskPatch) columns() map[string]interface{} {
	updates := make(map[string]interface{})
	if p.Content != nil {
		updates["content"] = *p.Content
	}
	if p.Notes != nil {
		updates["notes"] = *p.Notes
	}
	if p.Category != nil {
		updates["category"] = *p.Category
	}
	if p.Priority != nil {
		updates["priority"] = *p.Priority
	}
	if p.ClearDueDate {
		updates["due_date"] = nil
	} else if p.DueDate != nil {
		updates["due_date"] = *p.DueDate
	}
	if p.DueTime != nil {
		updates["due_time"] = *p.DueTime
	}
	if p.Recurrence != nil {
		updates["recurrence"] = *p.Recurrence
	}
	if p.RecurrenceInterval != nil {
		updates["recurrence_interval"] = *p.RecurrenceInterval
	}
	if p.RecurrenceDays != nil {
		updates["recurrence_days"] = *p.RecurrenceDays
	}
	if p.ClearRecurrenceEnd {
		updates["recurrence_end_date"] = nil
	} else if p.RecurrenceEndDate != nil {
		updates["recurrence_end_date"] = *p.RecurrenceEndDate
	}
	if p.EstimatedDuration != nil {
		updates["estimated_duration"] = *p.EstimatedDuration
	}
	if p.Difficulty != nil {
		updates["difficulty"] = *p.Difficulty
	}
	return updates
}

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) GetAll(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) GetByStatus(ctx context.Context, status string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("status = ?", status).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks by status: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) GetByFocusDate(ctx context.Context, date string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("focus_date = ?", date).
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks by focus date: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &task, nil
}

// Update applies a typed patch and returns the updated task, or nil when the
// id does not exist.
func (r *TaskRepository) Update(ctx context.Context, id string, patch TaskPatch) (*model.Task, error) {
	updates := patch.columns()
	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, fmt.Errorf("update task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, nil
		}
	}
	return r.FindByID(ctx, id)
}

func (r *TaskRepository) MarkCompleted(ctx context.Context, task *model.Task, completedAt time.Time) error {
	task.Status = model.StatusCompleted
	task.CompletedAt = &completedAt
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return nil
}

func (r *TaskRepository) Reopen(ctx context.Context, task *model.Task) error {
	task.Status = model.StatusActive
	task.CompletedAt = nil
	if err := r.db.WithContext(ctx).Model(task).Updates(map[string]interface{}{
		"status":       model.StatusActive,
		"completed_at": nil,
	}).Error; err != nil {
		return fmt.Errorf("reopen task: %w", err)
	}
	return nil
}

// SetFocus assigns the task a slot in the given day's plan.
func (r *TaskRepository) SetFocus(ctx context.Context, id, date string, order int) error {
	if err := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"focus_date":  date,
			"focus_order": order,
		}).Error; err != nil {
		return fmt.Errorf("set focus: %w", err)
	}
	return nil
}

// ClearFocusForDate removes focus assignments for every task flagged for the
// given day.
func (r *TaskRepository) ClearFocusForDate(ctx context.Context, date string) error {
	if err := r.db.WithContext(ctx).Model(&model.Task{}).Where("focus_date = ?", date).
		Updates(map[string]interface{}{
			"focus_date":  nil,
			"focus_order": nil,
		}).Error; err != nil {
		return fmt.Errorf("clear focus: %w", err)
	}
	return nil
}

func (r *TaskRepository) SetLastNotified(ctx context.Context, id string, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).
		Update("last_notified_at", at).Error; err != nil {
		return fmt.Errorf("set last notified: %w", err)
	}
	return nil
}

// Delete removes a task. Returns false when the id does not exist.
func (r *TaskRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Task{})
	if res.Error != nil {
		return false, fmt.Errorf("delete task: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
