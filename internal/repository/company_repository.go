package repository

import (
	"context"
	"fmt"

	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CompanyRepository handles database operations for companies
type CompanyRepository struct {
	db *gorm.DB
}

// NewCompanyRepository creates a new CompanyRepository
func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) Create(ctx context.Context, company *domain.Company) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(company).Error
}

// GetByID retrieves a company with its contacts and ledger
func (r *CompanyRepository) GetByID(ctx context.Context, id uint) (*domain.Company, error) {
	var company domain.Company
	query := r.db.WithContext(ctx).
		Preload("Contacts").
		Preload("Activities", ledgerOrder)
	if err := first(query, &company, "company", id); err != nil {
		return nil, err
	}
	return &company, nil
}

// List returns all live companies ordered by name
func (r *CompanyRepository) List(ctx context.Context) ([]domain.Company, error) {
	var companies []domain.Company
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&companies).Error; err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return companies, nil
}
