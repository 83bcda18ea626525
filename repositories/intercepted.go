package repositories

import (
	"context"
	"iter"

	"github.com/google/uuid"
	"github.com/jfi/employee-api/internal/intercept"
	"github.com/jfi/employee-api/models"
)

// interceptedEmployees logs every call into the wrapped repository
type interceptedEmployees struct {
	next EmployeeRepository
	ic   *intercept.Interceptor
}

// Intercepted returns repos with every repository call logged through ic.
// The transaction manager is passed through untouched.
func Intercepted(repos *Repositories, ic *intercept.Interceptor) *Repositories {
	return &Repositories{
		Employees: &interceptedEmployees{next: repos.Employees, ic: ic},
		TxManager: repos.TxManager,
	}
}

func (r *interceptedEmployees) List(ctx context.Context) iter.Seq2[*models.Employee, error] {
	return intercept.Sequence(r.ic, intercept.Call{Operation: "EmployeeRepository.List"},
		r.next.List)(ctx)
}

func (r *interceptedEmployees) GetByID(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	return intercept.Single(r.ic, intercept.Call{Operation: "EmployeeRepository.GetByID", Args: []any{id}},
		func(ctx context.Context) (*models.Employee, error) {
			return r.next.GetByID(ctx, id)
		})(ctx)
}

func (r *interceptedEmployees) Save(ctx context.Context, employee *models.Employee) (*models.Employee, error) {
	return intercept.Single(r.ic, intercept.Call{Operation: "EmployeeRepository.Save", Args: []any{employee}},
		func(ctx context.Context) (*models.Employee, error) {
			return r.next.Save(ctx, employee)
		})(ctx)
}
