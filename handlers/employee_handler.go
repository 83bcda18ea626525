package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jfi/employee-api/internal/intercept"
	"github.com/jfi/employee-api/internal/observability"
	"github.com/jfi/employee-api/models"
	"github.com/jfi/employee-api/services/employee"
	"github.com/jfi/employee-api/utils"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// EmployeeRequest is the body of POST /employees
type EmployeeRequest struct {
	FirstName    string              `json:"firstName"`
	LastName     string              `json:"lastName"`
	EmployeeType models.EmployeeType `json:"employeeType"`
}

// ToEmployee maps the request onto a new, unsaved employee
func (r EmployeeRequest) ToEmployee() *models.Employee {
	return &models.Employee{
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		EmployeeType: r.EmployeeType,
	}
}

// EmployeePatchRequest is the body of PATCH /employees/{uuid}. Omitted
// fields keep their current value.
type EmployeePatchRequest struct {
	FirstName    *string              `json:"firstName"`
	LastName     *string              `json:"lastName"`
	EmployeeType *models.EmployeeType `json:"employeeType"`
}

// ToChanges maps the request onto a partial update
func (r EmployeePatchRequest) ToChanges() employee.Changes {
	return employee.Changes{
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		EmployeeType: r.EmployeeType,
	}
}

// EmployeeResponse represents an employee in API responses
type EmployeeResponse struct {
	UUID         uuid.UUID           `json:"uuid"`
	FirstName    string              `json:"firstName"`
	LastName     string              `json:"lastName"`
	EmployeeType models.EmployeeType `json:"employeeType"`
}

func employeeToResponse(e *models.Employee) EmployeeResponse {
	return EmployeeResponse{
		UUID:         e.UUID,
		FirstName:    e.FirstName,
		LastName:     e.LastName,
		EmployeeType: e.EmployeeType,
	}
}

// EmployeeHandler handles employee HTTP requests
type EmployeeHandler struct {
	service employee.Service
	ic      *intercept.Interceptor
	logger  *observability.ContextLogger
}

// NewEmployeeHandler creates a new EmployeeHandler
func NewEmployeeHandler(service employee.Service, ic *intercept.Interceptor, logger *zap.Logger) *EmployeeHandler {
	return &EmployeeHandler{
		service: service,
		ic:      ic,
		logger:  observability.NewContextLogger(logger).Named("handler"),
	}
}

// HandleList handles GET /employees
func (h *EmployeeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	responses := []EmployeeResponse{}
	for e, err := range h.service.FindAll(ctx) {
		if err != nil {
			HandleServiceError(w, r, err, h.logger)
			return
		}
		responses = append(responses, h.toResponse(r, e))
	}

	_ = utils.WriteOK(w, responses)
}

// HandleGet handles GET /employees/{uuid}
func (h *EmployeeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r)
	if !ok {
		return
	}

	e, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, h.toResponse(r, e))
}

// HandleCreate handles POST /employees
func (h *EmployeeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	candidate := intercept.Immediate(r.Context(), h.ic,
		intercept.Call{Operation: "EmployeeRequest.ToEmployee"}, req.ToEmployee)

	saved, err := h.service.Create(r.Context(), candidate)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, "/employees/"+saved.UUID.String(), h.toResponse(r, saved))
}

// HandleUpdate handles PATCH /employees/{uuid}
func (h *EmployeeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUUID(w, r)
	if !ok {
		return
	}

	var req EmployeePatchRequest
	if !h.decode(w, r, &req) {
		return
	}

	changes := intercept.Immediate(r.Context(), h.ic,
		intercept.Call{Operation: "EmployeePatchRequest.ToChanges"}, req.ToChanges)

	updated, err := h.service.Update(r.Context(), id, changes)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, h.toResponse(r, updated))
}

func (h *EmployeeHandler) toResponse(r *http.Request, e *models.Employee) EmployeeResponse {
	return intercept.Immediate(r.Context(), h.ic,
		intercept.Call{Operation: "EmployeeResponse.From", Args: []any{e}},
		func() EmployeeResponse { return employeeToResponse(e) })
}

func (h *EmployeeHandler) pathUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "uuid")
	id, err := utils.ParseUUID(raw)
	if err != nil {
		h.logger.Debug(r.Context(), "invalid employee uuid", zap.String("uuid", raw))
		writeBadRequest(w, r, err, "Invalid employee UUID format", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *EmployeeHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err == nil {
		return true
	}

	message := "Invalid request body"
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		message = "Request body must not be empty"
	case errors.As(err, &maxErr):
		message = fmt.Sprintf("Request body must not exceed %d bytes", maxErr.Limit)
	}

	h.logger.Warn(r.Context(), "failed to parse request body", zap.Error(err))
	writeBadRequest(w, r, fmt.Errorf("decode request body: %w", err), message, nil)
	return false
}
