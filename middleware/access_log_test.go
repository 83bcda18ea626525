package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jfi/employee-api/internal/correlation"
	"github.com/jfi/employee-api/internal/observability"
	"github.com/jfi/employee-api/services"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type accessHarness struct {
	registry *correlation.Registry
	access   *AccessLogger
	logs     *observer.ObservedLogs
	logger   *zap.Logger
}

func newAccessHarness() *accessHarness {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	registry := correlation.NewRegistry()
	return &accessHarness{
		registry: registry,
		access:   NewAccessLogger(registry, logger, nil),
		logs:     logs,
		logger:   logger,
	}
}

func (h *accessHarness) records() []observer.LoggedEntry {
	return h.logs.FilterLoggerName("access").AllUntimed()
}

func (h *accessHarness) serve(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.access.Handler(handler).ServeHTTP(w, req)
	return w
}

func TestAccessLogger_Success(t *testing.T) {
	h := newAccessHarness()
	var seen context.Context

	w := h.serve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Context()
		stage, ok := requestStage(r.Context())
		assert.True(t, ok)
		assert.Equal(t, StageDispatched, stage)
		w.WriteHeader(http.StatusOK)
	}), httptest.NewRequest(http.MethodGet, "/employees", nil))

	header := w.Header().Get(correlation.HeaderName)
	parsed, err := uuid.Parse(header)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())

	token, ok := correlation.Current(seen)
	require.True(t, ok)
	assert.Equal(t, header, token.String())

	records := h.records()
	require.Len(t, records, 1)
	rec := records[0]
	fields := rec.ContextMap()
	assert.Equal(t, zapcore.InfoLevel, rec.Level)
	assert.Equal(t, header, fields[correlation.LogField])
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/employees", fields["path"])
	assert.Equal(t, int64(200), fields["status"])
	assert.Equal(t, "success", fields["outcome"])
	assert.NotContains(t, fields, "cause")
	assert.GreaterOrEqual(t, fields["duration_ms"], int64(0))

	stage, _ := requestStage(seen)
	assert.Equal(t, StageContextCleared, stage)
	assert.Zero(t, h.registry.InFlight())
}

func TestAccessLogger_ImplicitOK(t *testing.T) {
	h := newAccessHarness()

	w := h.serve(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}),
		httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	records := h.records()
	require.Len(t, records, 1)
	assert.Equal(t, int64(200), records[0].ContextMap()["status"])
}

func TestAccessLogger_Classification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		cause       error
		wantLevel   zapcore.Level
		wantOutcome string
	}{
		{"not found with cause", http.StatusNotFound, errors.New("Employee not found: x"), zapcore.InfoLevel, "error_result"},
		{"bad request with cause", http.StatusBadRequest, errors.New("First name must not be blank"), zapcore.InfoLevel, "error_result"},
		{"server error with cause", http.StatusInternalServerError, errors.New("db down"), zapcore.ErrorLevel, "error_transport"},
		{"unavailable with cause", http.StatusServiceUnavailable, errors.New("storage unavailable"), zapcore.ErrorLevel, "error_transport"},
		{"server error without cause", http.StatusInternalServerError, nil, zapcore.InfoLevel, "success"},
		{"created", http.StatusCreated, nil, zapcore.InfoLevel, "success"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newAccessHarness()

			h.serve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				RecordError(r.Context(), tt.cause)
				w.WriteHeader(tt.status)
			}), httptest.NewRequest(http.MethodGet, "/employees", nil))

			records := h.records()
			require.Len(t, records, 1)
			rec := records[0]
			assert.Equal(t, tt.wantLevel, rec.Level)
			assert.Equal(t, tt.wantOutcome, rec.ContextMap()["outcome"])
			assert.Equal(t, int64(tt.status), rec.ContextMap()["status"])
			if tt.cause != nil {
				assert.Equal(t, tt.cause.Error(), rec.ContextMap()["cause"])
				assert.Contains(t, rec.Message, " - "+tt.cause.Error())
			} else {
				assert.NotContains(t, rec.ContextMap(), "cause")
			}
		})
	}
}

func TestAccessLogger_FirstCauseWins(t *testing.T) {
	h := newAccessHarness()

	h.serve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RecordError(r.Context(), errors.New("first"))
		RecordError(r.Context(), errors.New("second"))
		w.WriteHeader(http.StatusBadGateway)
	}), httptest.NewRequest(http.MethodGet, "/", nil))

	records := h.records()
	require.Len(t, records, 1)
	assert.Equal(t, "first", records[0].ContextMap()["cause"])
}

func TestAccessLogger_DomainCauseUsesMessage(t *testing.T) {
	h := newAccessHarness()
	id := uuid.New().String()

	h.serve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RecordError(r.Context(), fmt.Errorf("find: %w", services.NewNotFoundError("Employee not found: %s", id)))
		w.WriteHeader(http.StatusNotFound)
	}), httptest.NewRequest(http.MethodGet, "/employees/"+id, nil))

	records := h.records()
	require.Len(t, records, 1)
	assert.Equal(t, "Employee not found: "+id, records[0].ContextMap()["cause"])
	assert.True(t, strings.HasSuffix(records[0].Message, " - Employee not found: "+id))
	assert.NotContains(t, records[0].Message, "not_found")
}

func TestAccessLogger_Cancellation(t *testing.T) {
	h := newAccessHarness()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/employees", nil).WithContext(ctx)

	h.serve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cancel()
		<-r.Context().Done()
	}), req)

	records := h.records()
	require.Len(t, records, 1)
	fields := records[0].ContextMap()
	assert.Equal(t, zapcore.InfoLevel, records[0].Level)
	assert.Equal(t, "unknown", fields["status"])
	assert.Equal(t, "context canceled", fields["cause"])
	assert.Equal(t, "error_transport", fields["outcome"])
	assert.Contains(t, records[0].Message, "GET /employees unknown in ")
	assert.Zero(t, h.registry.InFlight())
}

func TestAccessLogger_CancelledAfterCommit(t *testing.T) {
	h := newAccessHarness()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/employees", nil).WithContext(ctx)

	h.serve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		cancel()
	}), req)

	records := h.records()
	require.Len(t, records, 1)
	assert.Equal(t, int64(200), records[0].ContextMap()["status"])
	assert.Equal(t, "context canceled", records[0].ContextMap()["cause"])
}

func TestAccessLogger_PanicStillLogs(t *testing.T) {
	h := newAccessHarness()

	assert.PanicsWithValue(t, "boom", func() {
		h.serve(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}), httptest.NewRequest(http.MethodGet, "/", nil))
	})

	records := h.records()
	require.Len(t, records, 1)
	assert.Equal(t, "unknown", records[0].ContextMap()["status"])
	assert.Equal(t, "panic: boom", records[0].ContextMap()["cause"])
	assert.Zero(t, h.registry.InFlight())
}

func TestAccessLogger_Duration(t *testing.T) {
	h := newAccessHarness()
	clock := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	h.access.now = func() time.Time {
		current := clock
		clock = clock.Add(25 * time.Millisecond)
		return current
	}

	h.serve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), httptest.NewRequest(http.MethodDelete, "/x", nil))

	records := h.records()
	require.Len(t, records, 1)
	assert.Equal(t, int64(25), records[0].ContextMap()["duration_ms"])
	assert.Equal(t, "DELETE /x 204 in 25ms", records[0].Message)
}

func TestAccessLogger_IgnoresIncomingRequestID(t *testing.T) {
	h := newAccessHarness()
	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(correlation.HeaderName, incoming)

	w := h.serve(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), req)

	assert.NotEqual(t, incoming, w.Header().Get(correlation.HeaderName))
}

func TestAccessLogger_SequentialRequestsGetFreshTokens(t *testing.T) {
	h := newAccessHarness()
	var tokens []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := correlation.Current(r.Context())
		require.True(t, ok)
		tokens = append(tokens, token.String())
		if len(tokens) == 1 {
			RecordError(r.Context(), errors.New("failed"))
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	h.serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))
	h.serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Len(t, tokens, 2)
	assert.NotEqual(t, tokens[0], tokens[1])
	records := h.records()
	require.Len(t, records, 2)
	assert.Equal(t, tokens[0], records[0].ContextMap()[correlation.LogField])
	assert.Equal(t, tokens[1], records[1].ContextMap()[correlation.LogField])
}

func TestAccessLogger_ConcurrentRequests(t *testing.T) {
	h := newAccessHarness()
	const n = 100
	start := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-start
		log := observability.NewContextLogger(h.logger).Named("handler")
		log.Info(r.Context(), "working")
		w.WriteHeader(http.StatusOK)
	})

	headers := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := h.serve(handler, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/employees/%d", i), nil))
			headers[i] = w.Header().Get(correlation.HeaderName)
		}(i)
	}
	close(start)
	wg.Wait()

	unique := make(map[string]struct{}, n)
	for _, hdr := range headers {
		_, err := uuid.Parse(hdr)
		require.NoError(t, err)
		unique[hdr] = struct{}{}
	}
	assert.Len(t, unique, n)

	perToken := make(map[string]int)
	for _, rec := range h.records() {
		perToken[rec.ContextMap()[correlation.LogField].(string)]++
	}
	assert.Len(t, perToken, n)
	for token, count := range perToken {
		assert.Equal(t, 1, count, token)
		assert.Contains(t, unique, token)
	}

	// handler lines carry the token of their own request
	handlerLines := h.logs.FilterLoggerName("handler").AllUntimed()
	require.Len(t, handlerLines, n)
	for _, line := range handlerLines {
		assert.Contains(t, unique, line.ContextMap()[correlation.LogField])
	}
	assert.Zero(t, h.registry.InFlight())
}

func TestAccessLogger_RouteAndMetrics(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	registry := correlation.NewRegistry()
	metrics := observability.NewPrometheusMetrics(registry.InFlight)
	access := NewAccessLogger(registry, zap.New(core), metrics)

	r := chi.NewRouter()
	r.Use(access.Handler)
	r.Get("/employees/{uuid}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, path := range []string{"/employees/a", "/employees/b", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.FilterLoggerName("access").AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, "/employees/{uuid}", entries[0].ContextMap()["route"])
	assert.NotContains(t, entries[2].ContextMap(), "route")

	expected := `
# HELP http_requests_total Number of HTTP requests by method, route and status.
# TYPE http_requests_total counter
http_requests_total{method="GET",route="/employees/{uuid}",status="200"} 2
http_requests_total{method="GET",route="unmatched",status="404"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(expected), "http_requests_total"))
}

// requestStage reports the access logger stage of the request carried by ctx.
func requestStage(ctx context.Context) (Stage, bool) {
	s := stateFromContext(ctx)
	if s == nil {
		return 0, false
	}
	return Stage(s.stage.Load()), true
}
