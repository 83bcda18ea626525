package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	"github.com/google/uuid"
	"github.com/jfi/employee-api/internal/observability"
	"github.com/jfi/employee-api/models"
	"github.com/jfi/employee-api/repositories"
	"go.uber.org/zap"
)

const (
	listEmployeesQuery = `
		SELECT uuid, first_name, last_name, employee_type
		FROM employees
		ORDER BY created_at, uuid
	`

	getEmployeeQuery = `
		SELECT uuid, first_name, last_name, employee_type
		FROM employees
		WHERE uuid = $1
	`

	saveEmployeeQuery = `
		INSERT INTO employees (uuid, first_name, last_name, employee_type)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (uuid) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			employee_type = EXCLUDED.employee_type,
			updated_at = CURRENT_TIMESTAMP
		RETURNING uuid, first_name, last_name, employee_type
	`
)

// EmployeeRepository implements the repositories.EmployeeRepository interface
type EmployeeRepository struct {
	db     *DB
	logger *observability.ContextLogger
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *DB, logger *zap.Logger) repositories.EmployeeRepository {
	return &EmployeeRepository{
		db:     db,
		logger: observability.NewContextLogger(logger).Named("postgres"),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (*models.Employee, error) {
	var (
		e       models.Employee
		empType string
	)
	if err := row.Scan(&e.UUID, &e.FirstName, &e.LastName, &empType); err != nil {
		return nil, err
	}
	e.EmployeeType = models.EmployeeType(empType)
	return &e, nil
}

// List streams rows as they are read; the query runs when ranging starts
func (r *EmployeeRepository) List(ctx context.Context) iter.Seq2[*models.Employee, error] {
	return func(yield func(*models.Employee, error) bool) {
		rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, listEmployeesQuery)
		if err != nil {
			yield(nil, fmt.Errorf("failed to list employees: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanEmployee(rows)
			if err != nil {
				yield(nil, fmt.Errorf("failed to scan employee: %w", err))
				return
			}
			if !yield(e, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("failed to iterate employees: %w", err))
		}
	}
}

// GetByID retrieves an employee by UUID
func (r *EmployeeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	e, err := scanEmployee(GetExecutor(ctx, r.db).QueryRowContext(ctx, getEmployeeQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return e, nil
}

// Save upserts the employee by UUID. A nil UUID gets a fresh one.
func (r *EmployeeRepository) Save(ctx context.Context, employee *models.Employee) (*models.Employee, error) {
	id := employee.UUID
	if id == uuid.Nil {
		id = uuid.New()
	}

	saved, err := scanEmployee(GetExecutor(ctx, r.db).QueryRowContext(ctx, saveEmployeeQuery,
		id,
		employee.FirstName,
		employee.LastName,
		string(employee.EmployeeType),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to save employee: %w", err)
	}

	r.logger.Debug(ctx, "employee saved", zap.String("uuid", saved.UUID.String()))
	return saved, nil
}
