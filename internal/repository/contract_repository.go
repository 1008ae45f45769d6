package repository

import (
	"context"
	"fmt"

	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) Create(ctx context.Context, contract *domain.Contract) error {
	// Omit associations so products and activities go through their own repositories
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(contract).Error
}

// GetByID loads a contract with company, contact, products and ledgers
func (r *ContractRepository) GetByID(ctx context.Context, id uint) (*domain.Contract, error) {
	var contract domain.Contract
	query := r.db.WithContext(ctx).
		Preload("Company").
		Preload("Contact").
		Preload("Products", ledgerOrder).
		Preload("Products.Product").
		Preload("Products.Invoice").
		Preload("Products.Activities", ledgerOrder).
		Preload("Activities", ledgerOrder).
		Preload("Activities.CreatedBy")
	if err := first(query, &contract, "contract", id); err != nil {
		return nil, err
	}
	return &contract, nil
}

// GetForUpdate locks the contract row and loads its live ledger.
// Every guarded contract operation starts here so concurrent ones serialize.
func (r *ContractRepository) GetForUpdate(ctx context.Context, id uint) (*domain.Contract, error) {
	var contract domain.Contract
	query := forUpdate(r.db.WithContext(ctx)).
		Preload("Activities", ledgerOrder)
	if err := first(query, &contract, "contract", id); err != nil {
		return nil, err
	}
	return &contract, nil
}

// Summaries returns id and title of every live contract
func (r *ContractRepository) Summaries(ctx context.Context) ([]domain.ContractSummary, error) {
	var summaries []domain.ContractSummary
	err := r.db.WithContext(ctx).
		Model(&domain.Contract{}).
		Select("id", "title").
		Order("id ASC").
		Scan(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list contract summaries: %w", err)
	}
	return summaries, nil
}

// CountProducts counts the live product instances of a contract
func (r *ContractRepository) CountProducts(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.ProductInstance{}).
		Where("contract_id = ?", id).
		Count(&count).Error
	return count, err
}

func (r *ContractRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.Contract{}, id).Error
}

// ForEach loads live contracts with their ledgers in batches and calls fn per batch
func (r *ContractRepository) ForEach(ctx context.Context, batchSize int, fn func([]domain.Contract) error) error {
	var batch []domain.Contract
	return r.db.WithContext(ctx).
		Preload("Activities", ledgerOrder).
		FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
			return fn(batch)
		}).Error
}
