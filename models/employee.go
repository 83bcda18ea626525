package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jfi/employee-api/utils"
)

// EmployeeType is the role an employee holds
type EmployeeType string

const (
	EmployeeTypeWorker         EmployeeType = "WORKER"
	EmployeeTypeManager        EmployeeType = "MANAGER"
	EmployeeTypeFinanceManager EmployeeType = "FINANCE_MANAGER"
)

// EmployeeTypes lists every valid EmployeeType
var EmployeeTypes = []EmployeeType{
	EmployeeTypeWorker,
	EmployeeTypeManager,
	EmployeeTypeFinanceManager,
}

// Valid reports whether t is a known employee type
func (t EmployeeType) Valid() bool {
	switch t {
	case EmployeeTypeWorker, EmployeeTypeManager, EmployeeTypeFinanceManager:
		return true
	}
	return false
}

// ParseEmployeeType parses s case-insensitively
func ParseEmployeeType(s string) (EmployeeType, error) {
	t := EmployeeType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown employee type %q", s)
	}
	return t, nil
}

// Employee represents a person on the payroll
type Employee struct {
	UUID         uuid.UUID    `json:"uuid" db:"uuid"`
	FirstName    string       `json:"firstName" db:"first_name" validate:"notblank"`
	LastName     string       `json:"lastName" db:"last_name" validate:"notblank"`
	EmployeeType EmployeeType `json:"employeeType" db:"employee_type" validate:"required,oneof=WORKER MANAGER FINANCE_MANAGER"`
}

// TableName returns the table name for the Employee model
func (Employee) TableName() string {
	return "employees"
}

// NewEmployee creates a new Employee with a fresh UUID. An empty type
// defaults to WORKER.
func NewEmployee(firstName, lastName string, employeeType EmployeeType) *Employee {
	if employeeType == "" {
		employeeType = EmployeeTypeWorker
	}
	return &Employee{
		UUID:         uuid.New(),
		FirstName:    firstName,
		LastName:     lastName,
		EmployeeType: employeeType,
	}
}

var employeeMessages = utils.Messages{
	"firstName":             "First name must not be blank",
	"lastName":              "Last name must not be blank",
	"employeeType.required": "Employee type must not be null",
	"employeeType.oneof":    "Employee type must be one of WORKER, MANAGER, FINANCE_MANAGER",
}

// Validate checks the business rules of an employee. The returned error is a
// *utils.ValidationError whose message names the first failing field.
func (e *Employee) Validate() error {
	return utils.ValidateStruct(e, employeeMessages)
}

// Clone returns a copy of e
func (e *Employee) Clone() *Employee {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// FullName returns "<first> <last>"
func (e *Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// String implements fmt.Stringer; it is what interceptor traces print.
func (e *Employee) String() string {
	if e == nil {
		return "Employee(nil)"
	}
	return fmt.Sprintf("Employee(uuid=%s, firstName=%s, lastName=%s, employeeType=%s)",
		e.UUID, e.FirstName, e.LastName, e.EmployeeType)
}
