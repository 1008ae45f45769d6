package repository_test

import (
	"context"
	"testing"

	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"github.com/MaikoCheng/parelpracht-server/internal/repository"
	"github.com/MaikoCheng/parelpracht-server/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	user := &domain.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	require.NoError(t, repo.Create(ctx, user))

	t.Run("get by id and email", func(t *testing.T) {
		byID, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", byID.FullName())

		byEmail, err := repo.GetByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)

		_, err = repo.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("upsert refreshes the existing user", func(t *testing.T) {
		renamed := &domain.User{FirstName: "Augusta", LastName: "King", Email: "ada@example.com"}
		require.NoError(t, repo.Upsert(ctx, renamed))
		assert.Equal(t, user.ID, renamed.ID)

		reloaded, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Augusta", reloaded.FirstName)
	})

	t.Run("upsert creates a new user", func(t *testing.T) {
		fresh := &domain.User{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"}
		require.NoError(t, repo.Upsert(ctx, fresh))
		assert.NotZero(t, fresh.ID)
		assert.NotEqual(t, user.ID, fresh.ID)
	})
}

func TestProductRepository_Status(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewProductRepository(db)
	ctx := context.Background()
	product := testutil.CreateTestProduct(t, db, "Lecture", true)

	active, err := repo.IsActive(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, repo.SetStatus(ctx, product.ID, domain.ProductStatusInactive))
	active, err = repo.IsActive(ctx, product.ID)
	require.NoError(t, err)
	assert.False(t, active)

	assert.ErrorIs(t, repo.SetStatus(ctx, 9999, domain.ProductStatusActive), domain.ErrNotFound)
	_, err = repo.IsActive(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompanyRepository_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewCompanyRepository(db)
	ctx := context.Background()
	testutil.CreateTestCompany(t, db, "Zeta")
	testutil.CreateTestCompany(t, db, "Alpha")
	gone, _ := testutil.CreateTestCompany(t, db, "Gone")
	require.NoError(t, db.Delete(&domain.Company{}, gone.ID).Error)

	companies, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 2)
	assert.Equal(t, "Alpha", companies[0].Name)
	assert.Equal(t, "Zeta", companies[1].Name)
}

func TestContractRepository_ForEach(t *testing.T) {
	f := testutil.NewFixture(t)
	ctx := context.Background()
	company, contact := testutil.CreateTestCompany(t, f.DB, "Acme")
	for i := 0; i < 5; i++ {
		_, err := f.Engine.Contracts.Create(ctx, domain.ContractParams{Title: "C", CompanyID: company.ID, ContactID: contact.ID})
		require.NoError(t, err)
	}

	var batches, total int
	err := f.Store.Contracts.ForEach(ctx, 2, func(batch []domain.Contract) error {
		batches++
		total += len(batch)
		for _, c := range batch {
			assert.Len(t, c.Activities, 1)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, batches)
	assert.Equal(t, 5, total)

	summaries, err := f.Engine.Contracts.Summaries(ctx)
	require.NoError(t, err)
	assert.Len(t, summaries, 5)
}
