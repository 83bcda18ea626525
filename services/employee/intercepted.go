package employee

import (
	"context"
	"iter"

	"github.com/google/uuid"
	"github.com/jfi/employee-api/internal/intercept"
	"github.com/jfi/employee-api/models"
)

type interceptedService struct {
	next Service
	ic   *intercept.Interceptor
}

// NewInterceptedService logs every call into next through ic
func NewInterceptedService(next Service, ic *intercept.Interceptor) Service {
	return &interceptedService{next: next, ic: ic}
}

func (s *interceptedService) FindAll(ctx context.Context) iter.Seq2[*models.Employee, error] {
	return intercept.Sequence(s.ic, intercept.Call{Operation: "EmployeeService.FindAll"},
		s.next.FindAll)(ctx)
}

func (s *interceptedService) FindByID(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	return intercept.Single(s.ic, intercept.Call{Operation: "EmployeeService.FindByID", Args: []any{id}},
		func(ctx context.Context) (*models.Employee, error) {
			return s.next.FindByID(ctx, id)
		})(ctx)
}

func (s *interceptedService) Create(ctx context.Context, employee *models.Employee) (*models.Employee, error) {
	return intercept.Single(s.ic, intercept.Call{Operation: "EmployeeService.Create", Args: []any{employee}},
		func(ctx context.Context) (*models.Employee, error) {
			return s.next.Create(ctx, employee)
		})(ctx)
}

func (s *interceptedService) Update(ctx context.Context, id uuid.UUID, changes Changes) (*models.Employee, error) {
	return intercept.Single(s.ic, intercept.Call{Operation: "EmployeeService.Update", Args: []any{id, changes}},
		func(ctx context.Context) (*models.Employee, error) {
			return s.next.Update(ctx, id, changes)
		})(ctx)
}
