// Package memory keeps employees in process memory. It backs local runs and
// tests; data is lost on restart.
package memory

import (
	"context"
	"iter"
	"sync"

	"github.com/google/uuid"
	"github.com/jfi/employee-api/internal/intercept"
	"github.com/jfi/employee-api/models"
	"github.com/jfi/employee-api/repositories"
)

// EmployeeRepository implements repositories.EmployeeRepository on a map.
// Records are returned in insertion order.
type EmployeeRepository struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*models.Employee
	order []uuid.UUID
}

var _ repositories.EmployeeRepository = (*EmployeeRepository)(nil)

// NewEmployeeRepository creates a repository holding copies of seed
func NewEmployeeRepository(seed ...*models.Employee) *EmployeeRepository {
	r := &EmployeeRepository{byID: make(map[uuid.UUID]*models.Employee)}
	for _, e := range seed {
		r.put(e.Clone())
	}
	return r
}

// SeedEmployees returns the three employees every fresh store starts with
func SeedEmployees() []*models.Employee {
	return []*models.Employee{
		{UUID: uuid.MustParse("5d1c7a52-3c4e-4b9e-9a0b-1f2e3d4c5b6a"), FirstName: "Juan", LastName: "dela Cruz", EmployeeType: models.EmployeeTypeWorker},
		{UUID: uuid.MustParse("8f3e2d1c-0b9a-4c8d-8e7f-6a5b4c3d2e1f"), FirstName: "Maria", LastName: "Santos", EmployeeType: models.EmployeeTypeManager},
		{UUID: uuid.MustParse("c4b3a291-8f7e-4d6c-9b5a-3e2d1c0b9a8f"), FirstName: "Pedro", LastName: "Reyes", EmployeeType: models.EmployeeTypeFinanceManager},
	}
}

func (r *EmployeeRepository) put(e *models.Employee) {
	if _, ok := r.byID[e.UUID]; !ok {
		r.order = append(r.order, e.UUID)
	}
	r.byID[e.UUID] = e
}

// List streams a snapshot taken when iteration starts
func (r *EmployeeRepository) List(ctx context.Context) iter.Seq2[*models.Employee, error] {
	return func(yield func(*models.Employee, error) bool) {
		r.mu.RLock()
		snapshot := make([]*models.Employee, 0, len(r.order))
		for _, id := range r.order {
			snapshot = append(snapshot, r.byID[id].Clone())
		}
		r.mu.RUnlock()

		for e, err := range intercept.Slice(snapshot)(ctx) {
			if !yield(e, err) || err != nil {
				return
			}
		}
	}
}

// GetByID retrieves an employee by UUID
func (r *EmployeeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return e.Clone(), nil
}

// Save inserts or replaces an employee. A nil UUID gets a fresh one.
func (r *EmployeeRepository) Save(ctx context.Context, employee *models.Employee) (*models.Employee, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stored := employee.Clone()
	if stored.UUID == uuid.Nil {
		stored.UUID = uuid.New()
	}

	r.mu.Lock()
	r.put(stored)
	r.mu.Unlock()

	return stored.Clone(), nil
}

// Len returns the number of stored employees
func (r *EmployeeRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
