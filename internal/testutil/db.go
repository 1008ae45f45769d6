package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/MaikoCheng/parelpracht-server/internal/database"
	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"github.com/MaikoCheng/parelpracht-server/internal/repository"
	"github.com/MaikoCheng/parelpracht-server/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var seq atomic.Int64

// SetupTestDB opens a migrated in-memory sqlite database.
// A single connection serializes transactions the way row locks do on postgres.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.Config())
	require.NoError(t, err, "failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// Fixture is a test database with a store and an engine acting as User
type Fixture struct {
	DB     *gorm.DB
	Store  *repository.Store
	Engine *service.Engine
	User   *domain.User
}

// NewFixture sets up a database, a user and an engine bound to that user
func NewFixture(t *testing.T) *Fixture {
	t.Helper()

	db := SetupTestDB(t)
	store := repository.NewStore(db)
	user := CreateTestUser(t, db)
	return &Fixture{
		DB:     db,
		Store:  store,
		Engine: service.NewEngine(store, zap.NewNop()).ForActor(user),
		User:   user,
	}
}

// CreateTestUser creates a user with a unique email
func CreateTestUser(t *testing.T, db *gorm.DB) *domain.User {
	t.Helper()
	n := seq.Add(1)
	user := &domain.User{
		FirstName: "Test",
		LastName:  fmt.Sprintf("User %d", n),
		Email:     fmt.Sprintf("user%d@example.com", n),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestCompany creates a company with one contact person
func CreateTestCompany(t *testing.T, db *gorm.DB, name string) (*domain.Company, *domain.Contact) {
	t.Helper()
	company := &domain.Company{Name: name, Status: domain.CompanyStatusActive}
	require.NoError(t, db.Omit("Contacts", "Activities").Create(company).Error)

	contact := &domain.Contact{
		FirstName: "Contact",
		LastName:  name,
		Email:     "contact@example.com",
		CompanyID: company.ID,
	}
	require.NoError(t, db.Omit("Company").Create(contact).Error)
	return company, contact
}

// CreateTestProduct creates a catalog product
func CreateTestProduct(t *testing.T, db *gorm.DB, name string, active bool) *domain.Product {
	t.Helper()
	status := domain.ProductStatusActive
	if !active {
		status = domain.ProductStatusInactive
	}
	product := &domain.Product{
		Name:        name,
		Status:      status,
		TargetPrice: decimal.NewFromInt(100),
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

// Price is a shorthand for instance prices in tests
func Price(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}
