package repository

import (
	"context"
	"fmt"

	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"gorm.io/gorm"
)

// ProductRepository reads the product catalog
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *ProductRepository) GetByID(ctx context.Context, id uint) (*domain.Product, error) {
	var product domain.Product
	if err := first(r.db.WithContext(ctx), &product, "product", id); err != nil {
		return nil, err
	}
	return &product, nil
}

// IsActive reports whether a catalog product may be newly attached
func (r *ProductRepository) IsActive(ctx context.Context, id uint) (bool, error) {
	product, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return product.IsActive(), nil
}

// SetStatus activates or retires a catalog product
func (r *ProductRepository) SetStatus(ctx context.Context, id uint, status domain.ProductStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "version": gorm.Expr("version + 1")})
	if res.Error != nil {
		return fmt.Errorf("failed to update product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("product %d not found", id)
	}
	return nil
}
