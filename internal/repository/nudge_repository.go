package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"focus-planner/internal/model"
)

// NudgeRepository handles the append-only nudge log. Nudges are never
// deleted here; retention is an external concern.
type NudgeRepository struct {
	db *gorm.DB
}

func NewNudgeRepository(db *gorm.DB) *NudgeRepository {
	return &NudgeRepository{db: db}
}

func (r *NudgeRepository) Append(ctx context.Context, nudge *model.Nudge) error {
	if err := r.db.WithContext(ctx).Create(nudge).Error; err != nil {
		return fmt.Errorf("append nudge: %w", err)
	}
	return nil
}

// List returns nudges newest first, optionally only undismissed ones.
func (r *NudgeRepository) List(ctx context.Context, undismissedOnly bool) ([]model.Nudge, error) {
	var nudges []model.Nudge
	db := r.db.WithContext(ctx).Order("created_at DESC")
	if undismissedOnly {
		db = db.Where("dismissed = ?", false)
	}
	if err := db.Find(&nudges).Error; err != nil {
		return nil, fmt.Errorf("list nudges: %w", err)
	}
	return nudges, nil
}

// Dismiss flips the dismissed flag. Returns false when the id does not exist.
func (r *NudgeRepository) Dismiss(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Nudge{}).Where("id = ?", id).
		Update("dismissed", true)
	if res.Error != nil {
		return false, fmt.Errorf("dismiss nudge: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
