package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/jfi/employee-api/internal/observability"
	"github.com/jfi/employee-api/middleware"
	"github.com/jfi/employee-api/services"
	"github.com/jfi/employee-api/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses and records err
// as the cause of the request.
//
// A cancelled request gets no response since the client is gone. A missed
// deadline is answered by the timeout middleware.
func HandleServiceError(w http.ResponseWriter, r *http.Request, err error, logger *observability.ContextLogger) {
	if err == nil {
		return
	}
	ctx := r.Context()
	middleware.RecordError(ctx, err)

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Debug(ctx, "request abandoned", zap.Error(err))
		return
	}

	message := services.GetErrorMessage(err)
	details := services.GetErrorDetails(err)

	var writeErr error
	switch {
	case services.IsNotFoundError(err):
		writeErr = utils.WriteNotFound(w, message)

	case services.IsValidationError(err):
		writeErr = utils.WriteBadRequest(w, message, details)

	case services.IsUnauthorizedError(err):
		writeErr = utils.WriteUnauthorized(w, message)

	case services.IsForbiddenError(err):
		writeErr = utils.WriteForbidden(w, message)

	case services.IsRateLimitError(err):
		writeErr = utils.WriteTooManyRequests(w, message, details)

	case services.IsConflictError(err):
		writeErr = utils.WriteConflict(w, message, details)

	case services.IsUnavailableError(err):
		logger.Error(ctx, "dependency unavailable", zap.Error(err))
		writeErr = utils.WriteServiceUnavailable(w, message)

	case services.IsInternalError(err):
		// Log internal errors but return generic message
		logger.Error(ctx, "internal server error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "An internal error occurred")

	default:
		logger.Error(ctx, "unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w, "An unexpected error occurred")
	}

	if writeErr != nil {
		logger.Error(ctx, "failed to write error response", zap.Error(writeErr))
	}
}

// writeBadRequest answers a malformed request and records why
func writeBadRequest(w http.ResponseWriter, r *http.Request, err error, message string, details map[string]interface{}) {
	middleware.RecordError(r.Context(), err)
	_ = utils.WriteBadRequest(w, message, details)
}
