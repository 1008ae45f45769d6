package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActivityRepository is the append-only ledger store.
//
// Ledger order is (created_at, id); see idx_activities_ledger_order.
// Append keeps created_at strictly increasing per owner.
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Append persists a new activity for a live owner. The creation timestamp is
// assigned here and is always later than every earlier entry of the same owner.
func (r *ActivityRepository) Append(ctx context.Context, activity *domain.Activity) error {
	db := r.db.WithContext(ctx)
	ref := activity.Owner()

	model := ownerModel(ref.Kind)
	if model == nil {
		return fmt.Errorf("unknown owner kind %q", ref.Kind)
	}
	var live int64
	if err := db.Model(model).Where("id = ?", ref.ID).Count(&live).Error; err != nil {
		return fmt.Errorf("failed to check owner %s %d: %w", ref.Kind, ref.ID, err)
	}
	if live == 0 {
		return domain.NotFound("%s %d not found", ref.Kind, ref.ID)
	}

	last, err := r.lastTimestamp(ctx, ref)
	if err != nil {
		return err
	}
	now := db.NowFunc().UTC().Truncate(time.Microsecond)
	if !last.IsZero() && !now.After(last) {
		now = last.Add(time.Microsecond)
	}
	activity.ID = 0
	activity.CreatedAt = now
	activity.UpdatedAt = now

	if err := db.Omit("CreatedBy").Create(activity).Error; err != nil {
		return fmt.Errorf("failed to append activity to %s %d: %w", ref.Kind, ref.ID, err)
	}
	return nil
}

// lastTimestamp includes soft-deleted entries so order never repeats
func (r *ActivityRepository) lastTimestamp(ctx context.Context, ref domain.EntityRef) (time.Time, error) {
	var latest []domain.Activity
	err := r.db.WithContext(ctx).Unscoped().
		Select("id", "created_at").
		Where("owner_type = ? AND owner_id = ?", ref.Kind, ref.ID).
		Order("created_at DESC, id DESC").
		Limit(1).
		Find(&latest).Error
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read ledger head of %s %d: %w", ref.Kind, ref.ID, err)
	}
	if len(latest) == 0 {
		return time.Time{}, nil
	}
	return latest[0].CreatedAt.UTC(), nil
}

// ListFor returns the live ledger of an owner, oldest first
func (r *ActivityRepository) ListFor(ctx context.Context, ref domain.EntityRef) ([]domain.Activity, error) {
	var activities []domain.Activity
	err := ledgerOrder(r.db.WithContext(ctx)).
		Preload("CreatedBy").
		Where("owner_type = ? AND owner_id = ?", ref.Kind, ref.ID).
		Find(&activities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list activities of %s %d: %w", ref.Kind, ref.ID, err)
	}
	return activities, nil
}

// ListBatch returns every activity written by one logical operation
func (r *ActivityRepository) ListBatch(ctx context.Context, batchID uuid.UUID) ([]domain.Activity, error) {
	var activities []domain.Activity
	err := ledgerOrder(r.db.WithContext(ctx)).
		Where("batch_id = ?", batchID).
		Find(&activities).Error
	return activities, err
}

// GetForUpdate locks one live activity of an owner
func (r *ActivityRepository) GetForUpdate(ctx context.Context, ref domain.EntityRef, id uint) (*domain.Activity, error) {
	var activity domain.Activity
	query := forUpdate(r.db.WithContext(ctx)).
		Where("owner_type = ? AND owner_id = ?", ref.Kind, ref.ID)
	if err := first(query, &activity, "activity", id); err != nil {
		return nil, err
	}
	return &activity, nil
}

// UpdateDescription rewrites the text of an activity unless it was deleted or
// changed since it was read
func (r *ActivityRepository) UpdateDescription(ctx context.Context, activity *domain.Activity, description string) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Activity{}).
		Where("id = ? AND version = ?", activity.ID, activity.Version).
		Updates(map[string]interface{}{
			"description": description,
			"version":     gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update activity %d: %w", activity.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missingOrConflict(ctx, activity)
	}
	activity.Description = description
	activity.Version++
	return nil
}

// Delete soft-deletes one activity if it has not changed since it was read
func (r *ActivityRepository) Delete(ctx context.Context, activity *domain.Activity) error {
	res := r.db.WithContext(ctx).
		Where("version = ?", activity.Version).
		Delete(&domain.Activity{}, activity.ID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete activity %d: %w", activity.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missingOrConflict(ctx, activity)
	}
	return nil
}

// DeleteForOwner soft-deletes the whole ledger of an owner
func (r *ActivityRepository) DeleteForOwner(ctx context.Context, ref domain.EntityRef) error {
	err := r.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", ref.Kind, ref.ID).
		Delete(&domain.Activity{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete ledger of %s %d: %w", ref.Kind, ref.ID, err)
	}
	return nil
}

func (r *ActivityRepository) missingOrConflict(ctx context.Context, activity *domain.Activity) error {
	var current domain.Activity
	err := r.db.WithContext(ctx).First(&current, activity.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFound("activity %d not found", activity.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to reload activity %d: %w", activity.ID, err)
	}
	return domain.Conflict(domain.RuleVersionMismatch, "activity %d was modified concurrently", activity.ID)
}
