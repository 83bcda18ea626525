// Package employee holds the employee use cases: listing, lookup, creation
// and partial update.
package employee

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"iter"
	"strings"

	"github.com/google/uuid"
	"github.com/jfi/employee-api/internal/observability"
	"github.com/jfi/employee-api/models"
	"github.com/jfi/employee-api/repositories"
	"github.com/jfi/employee-api/services"
	"github.com/jfi/employee-api/utils"
	"go.uber.org/zap"
)

// Service is the employee use case port
type Service interface {
	FindAll(ctx context.Context) iter.Seq2[*models.Employee, error]
	FindByID(ctx context.Context, id uuid.UUID) (*models.Employee, error)
	Create(ctx context.Context, employee *models.Employee) (*models.Employee, error)
	Update(ctx context.Context, id uuid.UUID, changes Changes) (*models.Employee, error)
}

// Changes lists the fields a partial update sets. Nil fields keep their
// current value.
type Changes struct {
	FirstName    *string
	LastName     *string
	EmployeeType *models.EmployeeType
}

// IsEmpty reports whether no field is set
func (c Changes) IsEmpty() bool {
	return c.FirstName == nil && c.LastName == nil && c.EmployeeType == nil
}

func (c Changes) String() string {
	var parts []string
	if c.FirstName != nil {
		parts = append(parts, "firstName="+*c.FirstName)
	}
	if c.LastName != nil {
		parts = append(parts, "lastName="+*c.LastName)
	}
	if c.EmployeeType != nil {
		parts = append(parts, "employeeType="+string(*c.EmployeeType))
	}
	return "Changes(" + strings.Join(parts, ", ") + ")"
}

// Apply returns a copy of e with the set fields replaced
func (c Changes) Apply(e *models.Employee) *models.Employee {
	out := e.Clone()
	if c.FirstName != nil {
		out.FirstName = *c.FirstName
	}
	if c.LastName != nil {
		out.LastName = *c.LastName
	}
	if c.EmployeeType != nil {
		out.EmployeeType = *c.EmployeeType
	}
	return out
}

type service struct {
	repos  *repositories.Repositories
	logger *observability.ContextLogger
}

// NewService creates the employee service on repos
func NewService(repos *repositories.Repositories, logger *zap.Logger) Service {
	return &service{
		repos:  repos,
		logger: observability.NewContextLogger(logger).Named("employee"),
	}
}

// FindAll streams every employee
func (s *service) FindAll(ctx context.Context) iter.Seq2[*models.Employee, error] {
	return func(yield func(*models.Employee, error) bool) {
		for e, err := range s.repos.Employees.List(ctx) {
			if err != nil {
				yield(nil, storageError("failed to list employees", err))
				return
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

// FindByID returns the employee or a not_found error
func (s *service) FindByID(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	e, err := s.repos.Employees.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, notFound(id)
		}
		return nil, storageError("failed to get employee", err)
	}
	return e, nil
}

// Create validates and stores a new employee under a fresh UUID
func (s *service) Create(ctx context.Context, employee *models.Employee) (*models.Employee, error) {
	if err := validate(employee); err != nil {
		return nil, err
	}

	candidate := employee.Clone()
	candidate.UUID = uuid.New()

	saved, err := s.repos.Employees.Save(ctx, candidate)
	if err != nil {
		return nil, storageError("failed to create employee", err)
	}

	s.logger.Info(ctx, "employee created",
		zap.String("uuid", saved.UUID.String()),
		zap.String("employee_type", string(saved.EmployeeType)),
	)
	return saved, nil
}

// Update loads the employee, applies changes, validates the result and saves
// it under the path UUID, all in one transaction
func (s *service) Update(ctx context.Context, id uuid.UUID, changes Changes) (*models.Employee, error) {
	updated, err := services.WithTransactionResult(ctx, s.repos.TxManager,
		func(ctx context.Context, _ repositories.Transaction) (*models.Employee, error) {
			current, err := s.FindByID(ctx, id)
			if err != nil {
				return nil, err
			}

			candidate := changes.Apply(current)
			candidate.UUID = id
			if err := validate(candidate); err != nil {
				return nil, err
			}

			saved, err := s.repos.Employees.Save(ctx, candidate)
			if err != nil {
				return nil, storageError("failed to update employee", err)
			}
			return saved, nil
		})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "employee updated", zap.String("uuid", id.String()))
	return updated, nil
}

func notFound(id uuid.UUID) error {
	return services.NewNotFoundError("Employee not found: %s", id)
}

func validate(e *models.Employee) error {
	if e == nil {
		return services.NewValidationError("Employee must not be null", nil)
	}
	err := e.Validate()
	if err == nil {
		return nil
	}
	var verr *utils.ValidationError
	if errors.As(err, &verr) {
		return services.NewValidationError(verr.Message, verr.Fields)
	}
	return services.WrapError(services.ErrorTypeValidation, err.Error(), err)
}

// storageError keeps cancellation visible to callers and hides driver
// details behind an internal error
func storageError(message string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return services.WrapError(services.ErrorTypeUnavailable, message, err)
	}
	return services.WrapInternal(message, err)
}
