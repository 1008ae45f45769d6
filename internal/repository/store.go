package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store groups the repositories over one connection or one transaction.
// Every repository of a Store obtained from InTx runs inside that transaction.
type Store struct {
	db *gorm.DB

	Activities       *ActivityRepository
	Companies        *CompanyRepository
	Contacts         *ContactRepository
	Contracts        *ContractRepository
	Invoices         *InvoiceRepository
	ProductInstances *ProductInstanceRepository
	Products         *ProductRepository
	Users            *UserRepository
}

// NewStore creates a Store over db
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:               db,
		Activities:       NewActivityRepository(db),
		Companies:        NewCompanyRepository(db),
		Contacts:         NewContactRepository(db),
		Contracts:        NewContractRepository(db),
		Invoices:         NewInvoiceRepository(db),
		ProductInstances: NewProductInstanceRepository(db),
		Products:         NewProductRepository(db),
		Users:            NewUserRepository(db),
	}
}

// DB exposes the underlying connection
func (s *Store) DB() *gorm.DB {
	return s.db
}

// InTx runs fn in one transaction. The mutation and the activities describing
// it commit together or not at all. Nested calls use savepoints.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
	return MapError(err)
}

// LockOwner takes the row lock of a ledger owner and returns its current version.
// Soft-deleted owners are reported as NotFound.
func (s *Store) LockOwner(ctx context.Context, ref domain.EntityRef) (int, error) {
	return s.ownerVersion(ctx, ref, true)
}

// OwnerVersion returns the current version of a live ledger owner without locking it
func (s *Store) OwnerVersion(ctx context.Context, ref domain.EntityRef) (int, error) {
	return s.ownerVersion(ctx, ref, false)
}

func (s *Store) ownerVersion(ctx context.Context, ref domain.EntityRef, lock bool) (int, error) {
	model := ownerModel(ref.Kind)
	if model == nil {
		return 0, fmt.Errorf("unknown owner kind %q", ref.Kind)
	}
	query := s.db.WithContext(ctx).Model(model)
	if lock {
		query = forUpdate(query)
	}
	var versions []int
	if err := query.Where("id = ?", ref.ID).Pluck("version", &versions).Error; err != nil {
		return 0, fmt.Errorf("failed to read %s %d: %w", ref.Kind, ref.ID, err)
	}
	if len(versions) == 0 {
		return 0, domain.NotFound("%s %d not found", ref.Kind, ref.ID)
	}
	return versions[0], nil
}

// UpdateVersioned applies fields to the owner row only if its version still
// equals expected, and increments the version. A nil or empty fields map only
// bumps the version. A lost race is reported as Conflict.
func (s *Store) UpdateVersioned(ctx context.Context, ref domain.EntityRef, expected int, fields map[string]interface{}) error {
	model := ownerModel(ref.Kind)
	if model == nil {
		return fmt.Errorf("unknown owner kind %q", ref.Kind)
	}
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")

	res := s.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", ref.ID, expected).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update %s %d: %w", ref.Kind, ref.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Conflict(domain.RuleVersionMismatch,
			"%s %d was modified concurrently (expected version %d)", ref.Kind, ref.ID, expected)
	}
	return nil
}

// CheckVersion rejects a caller-supplied expected version that no longer matches
func CheckVersion(ref domain.EntityRef, current int, expected *int) error {
	if expected == nil || *expected == current {
		return nil
	}
	return domain.Conflict(domain.RuleVersionMismatch,
		"%s %d is at version %d, not %d", ref.Kind, ref.ID, current, *expected)
}

// MapError converts infrastructure failures into typed domain errors.
// Errors that already are domain errors pass through unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		mapped := domain.NotFound("record not found")
		mapped.Cause = err
		return mapped
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
			mapped := domain.Conflict(domain.RuleConcurrentWrite, "concurrent write: %s", pgErr.Message)
			mapped.Cause = err
			return mapped
		}
	}
	return err
}

func ownerModel(kind domain.OwnerKind) interface{} {
	switch kind {
	case domain.OwnerContract:
		return &domain.Contract{}
	case domain.OwnerInvoice:
		return &domain.Invoice{}
	case domain.OwnerProductInstance:
		return &domain.ProductInstance{}
	case domain.OwnerCompany:
		return &domain.Company{}
	}
	return nil
}

func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// ledgerOrder preloads activities oldest first
func ledgerOrder(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

// first loads one record and reports a missing one as NotFound
func first(query *gorm.DB, dest interface{}, what string, id uint) error {
	err := query.First(dest, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFound("%s %d not found", what, id)
	}
	if err != nil {
		return fmt.Errorf("failed to load %s %d: %w", what, id, err)
	}
	return nil
}
