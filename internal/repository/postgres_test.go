package repository_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"github.com/MaikoCheng/parelpracht-server/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockPostgres(t *testing.T) (*repository.Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err)
	return repository.NewStore(db), mock
}

func TestStore_InTxMapsLockFailures(t *testing.T) {
	for _, code := range []string{"40P01", "55P03"} {
		t.Run(code, func(t *testing.T) {
			store, mock := setupMockPostgres(t)
			mock.ExpectBegin()
			mock.ExpectQuery(`SELECT "version" FROM "contracts" .* FOR UPDATE`).
				WillReturnError(&pgconn.PgError{Code: code, Message: "lock failed"})
			mock.ExpectRollback()

			err := store.InTx(context.Background(), func(tx *repository.Store) error {
				_, err := tx.LockOwner(context.Background(), domain.Ref(domain.OwnerContract, 3))
				return err
			})

			assert.ErrorIs(t, err, domain.ErrConflict)
			assert.Equal(t, domain.RuleConcurrentWrite, domain.RuleOf(err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_UpdateVersionedLostRace(t *testing.T) {
	store, mock := setupMockPostgres(t)
	mock.ExpectExec(`UPDATE "invoices" SET .*"version"=version \+ 1.* WHERE \(id = \$\d+ AND version = \$\d+\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateVersioned(context.Background(), domain.Ref(domain.OwnerInvoice, 4), 2, map[string]interface{}{"po_number": "PO-9"})

	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, domain.RuleVersionMismatch, domain.RuleOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_InTxCommitsOnSuccess(t *testing.T) {
	store, mock := setupMockPostgres(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "version" FROM "product_instances" .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(5))
	mock.ExpectCommit()

	var version int
	err := store.InTx(context.Background(), func(tx *repository.Store) error {
		var err error
		version, err = tx.LockOwner(context.Background(), domain.Ref(domain.OwnerProductInstance, 8))
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 5, version)
	assert.NoError(t, mock.ExpectationsWereMet())
}
