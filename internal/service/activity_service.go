package service

import (
	"context"
	"fmt"

	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"github.com/MaikoCheng/parelpracht-server/internal/lifecycle"
	"github.com/MaikoCheng/parelpracht-server/internal/repository"
	"go.uber.org/zap"
)

// ActivityService exposes the ledger of every owner: raw appends, reads,
// status projections and comment editing.
type ActivityService struct {
	scope
}

func NewActivityService(store *repository.Store, logger *zap.Logger) *ActivityService {
	return &ActivityService{scope: scope{store: store, logger: logger}}
}

// ForActor returns a copy of the service acting as actor
func (s *ActivityService) ForActor(actor *domain.User) *ActivityService {
	cp := *s
	cp.actor = actor
	return &cp
}

// Append records one activity on a live owner. STATUS activities must carry a
// status of the owner kind and bump the owner's version; other kinds carry none.
func (s *ActivityService) Append(ctx context.Context, ref domain.EntityRef, kind domain.ActivityKind, subKind domain.StatusSubKind, description string) (*domain.Activity, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown activity kind %q", kind)
	}
	if kind == domain.ActivityStatus {
		if err := lifecycle.ValidateStatus(ref.Kind, subKind); err != nil {
			return nil, err
		}
	} else if subKind != "" {
		return nil, domain.IllegalTransition(domain.RuleStatusUnknown, "only STATUS activities carry a status")
	}

	var appended domain.Activity
	err := s.run(ctx, "activity.append", func(w *writer) error {
		version, err := w.tx.LockOwner(ctx, ref)
		if err != nil {
			return err
		}
		if kind == domain.ActivityStatus {
			if err := w.touch(ctx, ref, version); err != nil {
				return err
			}
		}
		entry := lifecycle.Entry{Kind: kind, SubKind: subKind, Description: description}
		if err := w.append(ctx, ref, entry); err != nil {
			return err
		}
		activities, err := w.tx.Activities.ListBatch(ctx, w.batch)
		if err != nil {
			return err
		}
		appended = activities[len(activities)-1]
		return nil
	}, ownerFields(ref)...)
	if err != nil {
		return nil, err
	}
	return &appended, nil
}

// ListFor returns the live ledger of an owner, oldest first
func (s *ActivityService) ListFor(ctx context.Context, ref domain.EntityRef) ([]domain.Activity, error) {
	if _, err := s.store.OwnerVersion(ctx, ref); err != nil {
		return nil, annotate("activity.list", err)
	}
	return s.store.Activities.ListFor(ctx, ref)
}

// StatusHistory returns the statuses an owner has passed through, in order
func (s *ActivityService) StatusHistory(ctx context.Context, ref domain.EntityRef) ([]domain.StatusSubKind, error) {
	ledger, err := s.ListFor(ctx, ref)
	if err != nil {
		return nil, err
	}
	return lifecycle.StatusHistory(ledger), nil
}

// CurrentStatus returns the latest status of an owner
func (s *ActivityService) CurrentStatus(ctx context.Context, ref domain.EntityRef) (domain.StatusSubKind, error) {
	history, err := s.StatusHistory(ctx, ref)
	if err != nil {
		return "", err
	}
	return lifecycle.CurrentStatus(ref.Kind, history), nil
}

// AddComment appends a COMMENT activity
func (s *ActivityService) AddComment(ctx context.Context, ref domain.EntityRef, description string) (*domain.Activity, error) {
	return s.Append(ctx, ref, domain.ActivityComment, "", description)
}

// UpdateComment rewrites the text of a live comment. Concurrent edits are last
// writer wins; editing a deleted comment fails with NotFound.
func (s *ActivityService) UpdateComment(ctx context.Context, ref domain.EntityRef, activityID uint, description string) (*domain.Activity, error) {
	var updated *domain.Activity
	err := s.run(ctx, "activity.update_comment", func(w *writer) error {
		activity, err := s.lockComment(ctx, w.tx, ref, activityID)
		if err != nil {
			return err
		}
		if err := w.tx.Activities.UpdateDescription(ctx, activity, description); err != nil {
			return err
		}
		updated = activity
		return nil
	}, append(ownerFields(ref), zap.Uint("activity_id", activityID))...)
	return updated, err
}

// DeleteComment soft-deletes a live comment
func (s *ActivityService) DeleteComment(ctx context.Context, ref domain.EntityRef, activityID uint) error {
	return s.run(ctx, "activity.delete_comment", func(w *writer) error {
		activity, err := s.lockComment(ctx, w.tx, ref, activityID)
		if err != nil {
			return err
		}
		return w.tx.Activities.Delete(ctx, activity)
	}, append(ownerFields(ref), zap.Uint("activity_id", activityID))...)
}

func (s *ActivityService) lockComment(ctx context.Context, tx *repository.Store, ref domain.EntityRef, activityID uint) (*domain.Activity, error) {
	if _, err := tx.LockOwner(ctx, ref); err != nil {
		return nil, err
	}
	activity, err := tx.Activities.GetForUpdate(ctx, ref, activityID)
	if err != nil {
		return nil, err
	}
	if activity.Kind != domain.ActivityComment {
		return nil, domain.IllegalTransition(domain.RuleNotAComment,
			"activity %d is a %s activity and cannot be changed", activityID, activity.Kind)
	}
	return activity, nil
}

func ownerFields(ref domain.EntityRef) []zap.Field {
	return []zap.Field{
		zap.String("owner_type", string(ref.Kind)),
		zap.Uint("owner_id", ref.ID),
	}
}
