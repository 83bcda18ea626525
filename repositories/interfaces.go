package repositories

import (
	"context"
	"errors"
	"iter"

	"github.com/google/uuid"
	"github.com/jfi/employee-api/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns a context that routes repository calls through the
	// transaction
	Context() context.Context
}

// EmployeeRepository handles employee data operations
type EmployeeRepository interface {
	// List streams every employee. Nothing is read until the sequence is
	// ranged over, and iteration stops at the first error.
	List(ctx context.Context) iter.Seq2[*models.Employee, error]

	// GetByID retrieves an employee by UUID, or ErrNotFound
	GetByID(ctx context.Context, id uuid.UUID) (*models.Employee, error)

	// Save inserts the employee, or replaces the row with the same UUID
	Save(ctx context.Context, employee *models.Employee) (*models.Employee, error)
}

// Repositories holds all repository instances
type Repositories struct {
	Employees EmployeeRepository
	TxManager TransactionManager
}
