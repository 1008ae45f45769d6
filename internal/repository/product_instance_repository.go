package repository

import (
	"context"
	"fmt"

	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductInstanceRepository struct {
	db *gorm.DB
}

func NewProductInstanceRepository(db *gorm.DB) *ProductInstanceRepository {
	return &ProductInstanceRepository{db: db}
}

func (r *ProductInstanceRepository) Create(ctx context.Context, instance *domain.ProductInstance) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(instance).Error
}

// GetByID loads an instance with its catalog product, contract, invoice and ledger
func (r *ProductInstanceRepository) GetByID(ctx context.Context, id uint) (*domain.ProductInstance, error) {
	var instance domain.ProductInstance
	query := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Contract").
		Preload("Invoice").
		Preload("Activities", ledgerOrder).
		Preload("Activities.CreatedBy")
	if err := first(query, &instance, "product instance", id); err != nil {
		return nil, err
	}
	return &instance, nil
}

// GetForUpdate locks the instance row and loads what the guards and
// consistency checks need: contract, catalog product and ledger
func (r *ProductInstanceRepository) GetForUpdate(ctx context.Context, id uint) (*domain.ProductInstance, error) {
	var instance domain.ProductInstance
	query := forUpdate(r.db.WithContext(ctx)).
		Preload("Product").
		Preload("Contract").
		Preload("Activities", ledgerOrder)
	if err := first(query, &instance, "product instance", id); err != nil {
		return nil, err
	}
	return &instance, nil
}

// SetInvoice links the instance to an invoice (nil to unlink) if its version
// still matches, and increments the version
func (r *ProductInstanceRepository) SetInvoice(ctx context.Context, instance *domain.ProductInstance, invoiceID *uint) error {
	res := r.db.WithContext(ctx).
		Model(&domain.ProductInstance{}).
		Where("id = ? AND version = ?", instance.ID, instance.Version).
		Updates(map[string]interface{}{
			"invoice_id": invoiceID,
			"version":    gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update invoice of product instance %d: %w", instance.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Conflict(domain.RuleVersionMismatch,
			"product instance %d was modified concurrently", instance.ID)
	}
	instance.InvoiceID = invoiceID
	instance.Version++
	return nil
}

// ListByProduct returns the live instances of a catalog product
func (r *ProductInstanceRepository) ListByProduct(ctx context.Context, productID uint) ([]domain.ProductInstance, error) {
	var instances []domain.ProductInstance
	err := r.db.WithContext(ctx).
		Preload("Contract").
		Where("product_id = ?", productID).
		Order("id ASC").
		Find(&instances).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list instances of product %d: %w", productID, err)
	}
	return instances, nil
}

// ListInvoicedByProduct returns the live instances of a catalog product that are on an invoice
func (r *ProductInstanceRepository) ListInvoicedByProduct(ctx context.Context, productID uint) ([]domain.ProductInstance, error) {
	var instances []domain.ProductInstance
	err := r.db.WithContext(ctx).
		Preload("Contract").
		Preload("Invoice").
		Where("product_id = ? AND invoice_id IS NOT NULL", productID).
		Order("id ASC").
		Find(&instances).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list invoiced instances of product %d: %w", productID, err)
	}
	return instances, nil
}

func (r *ProductInstanceRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.ProductInstance{}, id).Error
}

// ForEach loads live instances with their ledgers in batches
func (r *ProductInstanceRepository) ForEach(ctx context.Context, batchSize int, fn func([]domain.ProductInstance) error) error {
	var batch []domain.ProductInstance
	return r.db.WithContext(ctx).
		Preload("Activities", ledgerOrder).
		FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
			return fn(batch)
		}).Error
}
