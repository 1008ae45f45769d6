package repository

import (
	"context"
	"errors"

	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := first(r.db.WithContext(ctx), &user, "user", id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("user %q not found", email)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Upsert creates the user or refreshes the name of the existing user with the same email
func (r *UserRepository) Upsert(ctx context.Context, user *domain.User) error {
	var existing domain.User
	err := r.db.WithContext(ctx).Where("email = ?", user.Email).First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(user).Error
	}
	if err != nil {
		return err
	}

	user.ID = existing.ID
	user.CreatedAt = existing.CreatedAt
	user.Version = existing.Version
	return r.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"first_name": user.FirstName,
		"last_name":  user.LastName,
	}).Error
}
