package database

import (
	"fmt"
	"time"

	"github.com/MaikoCheng/parelpracht-server/internal/config"
	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config returns the gorm settings shared by production and test connections.
// Timestamps are UTC with microsecond precision to match postgres timestamptz.
func Config() *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

// NewDatabase creates a new database connection
func NewDatabase(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.ConnectionString()), Config())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Models lists every persisted entity, parents first
func Models() []interface{} {
	return []interface{}{
		&domain.User{},
		&domain.Company{},
		&domain.Contact{},
		&domain.Product{},
		&domain.Contract{},
		&domain.Invoice{},
		&domain.ProductInstance{},
		&domain.Activity{},
	}
}

// AutoMigrate runs automatic migrations (for development and tests only;
// deployed databases are migrated with cmd/migrate)
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
