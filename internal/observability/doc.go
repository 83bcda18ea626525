// Package observability provides structured logging and metrics for the
// employee API.
//
// This package implements:
//   - Zap logger construction from level/format settings
//   - ContextLogger, which tags every log line with the correlation token of
//     the request that is executing the call
//   - Access record classification (severity and outcome of a finished request)
//   - Prometheus metrics collection
package observability
