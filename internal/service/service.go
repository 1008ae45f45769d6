package service

import (
	"context"
	"errors"

	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"github.com/MaikoCheng/parelpracht-server/internal/lifecycle"
	"github.com/MaikoCheng/parelpracht-server/internal/logger"
	"github.com/MaikoCheng/parelpracht-server/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// scope carries the collaborators of one request: the store, the logger and
// the acting user. Services copy it in ForActor, so a service value is bound
// to one actor and safe to share between goroutines.
type scope struct {
	store  *repository.Store
	logger *zap.Logger
	actor  *domain.User
}

func (sc scope) actorID() *uint {
	if sc.actor == nil {
		return nil
	}
	id := sc.actor.ID
	return &id
}

// run executes one guarded read-decide-write sequence inside a transaction.
// All activities appended through the writer share one batch id.
func (sc scope) run(ctx context.Context, op string, fn func(w *writer) error, fields ...zap.Field) error {
	batch := uuid.New()
	log := logger.WithOperation(logger.WithActor(sc.logger, sc.actorID()), op, batch)

	err := sc.store.InTx(ctx, func(tx *repository.Store) error {
		return fn(&writer{tx: tx, batch: batch, actor: sc.actorID()})
	})
	if err != nil {
		err = annotate(op, err)
		switch domain.CodeOf(err) {
		case "":
			log.Error("operation failed", append(fields, zap.Error(err))...)
		case domain.CodeConflict:
			log.Warn("operation conflicted", append(fields, zap.Error(err))...)
		default:
			log.Debug("operation rejected", append(fields, zap.String("rule", domain.RuleOf(err)), zap.Error(err))...)
		}
		return err
	}

	log.Info("operation committed", fields...)
	return nil
}

// writer is the transactional side of one operation
type writer struct {
	tx    *repository.Store
	batch uuid.UUID
	actor *uint
}

// append records entries on the ledger of ref, in order
func (w *writer) append(ctx context.Context, ref domain.EntityRef, entries ...lifecycle.Entry) error {
	for _, e := range entries {
		activity := &domain.Activity{
			OwnerType:   ref.Kind,
			OwnerID:     ref.ID,
			Kind:        e.Kind,
			SubKind:     e.SubKind,
			Description: e.Description,
			CreatedByID: w.actor,
			BatchID:     w.batch,
		}
		if err := w.tx.Activities.Append(ctx, activity); err != nil {
			return err
		}
	}
	return nil
}

// touch bumps the version of a locked owner whose ledger or relations change
func (w *writer) touch(ctx context.Context, ref domain.EntityRef, version int) error {
	return w.tx.UpdateVersioned(ctx, ref, version, nil)
}

// annotate names the failing operation on typed errors
func annotate(op string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) && de.Op == "" {
		return de.WithOp(op)
	}
	return err
}

// assigneeChange resolves the assignee part of an update. The returned value is
// nil when the assignee is cleared, which is written as NULL.
func assigneeChange(current, assign *uint, unset bool) (domain.FieldChange, interface{}, bool) {
	switch {
	case unset:
		return domain.FieldChange{Field: "assignedToId", Old: current, New: nil}, nil, true
	case assign != nil:
		return domain.FieldChange{Field: "assignedToId", Old: current, New: *assign}, *assign, true
	}
	return domain.FieldChange{}, nil, false
}
