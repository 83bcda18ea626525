package memory

import (
	"context"

	"github.com/jfi/employee-api/repositories"
)

// TransactionManager satisfies repositories.TransactionManager for the
// memory store. Writes are applied immediately, so Rollback cannot undo them.
type TransactionManager struct{}

var _ repositories.TransactionManager = TransactionManager{}

// NewTransactionManager creates a new no-op transaction manager
func NewTransactionManager() TransactionManager {
	return TransactionManager{}
}

// Begin starts a new no-op transaction
func (TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &transaction{ctx: ctx}, nil
}

// InTransaction runs fn and reports its error
func (tm TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	tx, err := tm.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx.Context(), tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type transaction struct {
	ctx context.Context
}

func (t *transaction) Commit() error            { return nil }
func (t *transaction) Rollback() error          { return nil }
func (t *transaction) Context() context.Context { return t.ctx }
