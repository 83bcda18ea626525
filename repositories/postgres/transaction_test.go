package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jfi/employee-api/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTransactionManager_InTransaction(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db, zap.NewNop())

		mock.ExpectBegin()
		mock.ExpectCommit()

		err := tm.InTransaction(context.Background(), func(ctx context.Context, tx repositories.Transaction) error {
			inCtx, ok := GetTransactionFromContext(ctx)
			require.True(t, ok)
			assert.Same(t, tx, repositories.Transaction(inCtx))
			return nil
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back and returns the original error", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db, zap.NewNop())
		boom := errors.New("validation failed")

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := tm.InTransaction(context.Background(), func(context.Context, repositories.Transaction) error {
			return boom
		})

		assert.Same(t, boom, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db, zap.NewNop())
		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

		called := false
		err := tm.InTransaction(context.Background(), func(context.Context, repositories.Transaction) error {
			called = true
			return nil
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to begin transaction")
		assert.False(t, called)
	})
}

func TestTransaction_RollbackAfterCommit(t *testing.T) {
	db, mock := newMockDB(t)
	tm := NewTransactionManager(db, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectCommit()

	tx, err := tm.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NoError(t, tx.Rollback())
}

func TestGetExecutor(t *testing.T) {
	db, mock := newMockDB(t)
	tm := NewTransactionManager(db, zap.NewNop())

	assert.Same(t, db.DB, GetExecutor(context.Background(), db))

	mock.ExpectBegin()
	tx, err := tm.Begin(context.Background())
	require.NoError(t, err)

	pgTx := tx.(*Transaction)
	assert.Same(t, pgTx.tx, GetExecutor(tx.Context(), db))
}
