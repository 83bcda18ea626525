package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jfi/employee-api/internal/observability"
	"github.com/jfi/employee-api/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Storage   string            `json:"storage,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthChecker is implemented by storage backends that can report on
// their connectivity
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db      HealthChecker
	storage string
	logger  *observability.ContextLogger
	now     func() time.Time
}

// NewHealthHandler creates a new HealthHandler. A nil db means the storage
// driver has no external dependency to check.
func NewHealthHandler(db HealthChecker, storage string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:      db,
		storage: storage,
		logger:  observability.NewContextLogger(logger).Named("health"),
		now:     time.Now,
	}
}

// HandleHealth handles GET /healthz
// Liveness check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: h.timestamp(),
	})
}

// HandleReadiness handles GET /readyz
// Readiness check - validates that all dependencies are available
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	switch {
	case h.db == nil:
		checks["database"] = "not_configured"
	default:
		if err := h.db.HealthCheck(ctx); err != nil {
			h.logger.Warn(r.Context(), "database health check failed", zap.Error(err))
			checks["database"] = "unhealthy"
			allHealthy = false
		} else {
			checks["database"] = "healthy"
		}
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: h.timestamp(),
		Storage:   h.storage,
		Checks:    checks,
	}

	if !allHealthy {
		response.Status = "unhealthy"
		if err := utils.WriteJSON(w, http.StatusServiceUnavailable, utils.SuccessResponse{Data: response}); err != nil {
			h.logger.Error(r.Context(), "failed to write readiness response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteOK(w, response); err != nil {
		h.logger.Error(r.Context(), "failed to write readiness response", zap.Error(err))
	}
}

func (h *HealthHandler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339)
}
