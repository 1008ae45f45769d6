package repository

import (
	"context"
	"fmt"

	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(invoice).Error
}

// GetByID loads an invoice with company, products and ledgers
func (r *InvoiceRepository) GetByID(ctx context.Context, id uint) (*domain.Invoice, error) {
	var invoice domain.Invoice
	query := r.db.WithContext(ctx).
		Preload("Company").
		Preload("Products", ledgerOrder).
		Preload("Products.Product").
		Preload("Products.Contract").
		Preload("Activities", ledgerOrder).
		Preload("Activities.CreatedBy")
	if err := first(query, &invoice, "invoice", id); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetForUpdate locks the invoice row and loads its live ledger
func (r *InvoiceRepository) GetForUpdate(ctx context.Context, id uint) (*domain.Invoice, error) {
	var invoice domain.Invoice
	query := forUpdate(r.db.WithContext(ctx)).
		Preload("Activities", ledgerOrder)
	if err := first(query, &invoice, "invoice", id); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// Summaries returns id and company name of every live invoice
func (r *InvoiceRepository) Summaries(ctx context.Context) ([]domain.InvoiceSummary, error) {
	var summaries []domain.InvoiceSummary
	err := r.db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Select("invoices.id AS id", "companies.name AS company_name").
		Joins("JOIN companies ON companies.id = invoices.company_id").
		Order("invoices.id ASC").
		Scan(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice summaries: %w", err)
	}
	return summaries, nil
}

// CountProducts counts the live product instances on an invoice
func (r *InvoiceRepository) CountProducts(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.ProductInstance{}).
		Where("invoice_id = ?", id).
		Count(&count).Error
	return count, err
}

func (r *InvoiceRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.Invoice{}, id).Error
}

// ForEach loads live invoices with ledgers and products in batches
func (r *InvoiceRepository) ForEach(ctx context.Context, batchSize int, fn func([]domain.Invoice) error) error {
	var batch []domain.Invoice
	return r.db.WithContext(ctx).
		Preload("Activities", ledgerOrder).
		Preload("Products.Contract").
		FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
			return fn(batch)
		}).Error
}
