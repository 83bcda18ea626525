package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jfi/employee-api/internal/correlation"
	"github.com/jfi/employee-api/internal/observability"
	"github.com/jfi/employee-api/services"
	"go.uber.org/zap"
)

// Stage is the lifecycle position of one request inside the access logger.
type Stage int32

const (
	StageReceived Stage = iota
	StageDispatched
	StageCompleting
	StageFailing
	StageLogged
	StageContextCleared
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "received"
	case StageDispatched:
		return "dispatched"
	case StageCompleting:
		return "completing"
	case StageFailing:
		return "failing"
	case StageLogged:
		return "logged"
	case StageContextCleared:
		return "context_cleared"
	default:
		return "stage(" + strconv.Itoa(int(s)) + ")"
	}
}

type requestStateKey struct{}

// requestState is shared by every stage of one request through the context.
type requestState struct {
	stage atomic.Int32

	mu    sync.Mutex
	cause error
}

func (s *requestState) advance(from, to Stage) bool {
	return s.stage.CompareAndSwap(int32(from), int32(to))
}

// recordCause keeps the first cause; later ones are consequences of it.
func (s *requestState) recordCause(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cause == nil {
		s.cause = err
	}
}

func (s *requestState) Cause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

func stateFromContext(ctx context.Context) *requestState {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(requestStateKey{}).(*requestState)
	return s
}

// RecordError marks err as the reason the current request terminated
// abnormally. The first recorded error is reported in the access record.
// Outside an access-logged request it does nothing.
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if s := stateFromContext(ctx); s != nil {
		s.recordCause(err)
	}
}

// AccessLogger opens the correlation scope of each request and writes one
// summary record when the request terminates.
type AccessLogger struct {
	registry *correlation.Registry
	log      *observability.ContextLogger
	metrics  observability.Metrics
	now      func() time.Time
}

// NewAccessLogger creates a new AccessLogger. A nil metrics discards
// measurements.
func NewAccessLogger(registry *correlation.Registry, logger *zap.Logger, metrics observability.Metrics) *AccessLogger {
	if metrics == nil {
		metrics = observability.NopMetrics{}
	}
	return &AccessLogger{
		registry: registry,
		log:      observability.NewContextLogger(logger).Named("access"),
		metrics:  metrics,
		now:      time.Now,
	}
}

// Handler must be installed outermost so that the status it reads is the
// one the client received.
func (a *AccessLogger) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := a.now()
		state := &requestState{}

		token := a.registry.Begin()
		w.Header().Set(correlation.HeaderName, token.String())

		ctx := correlation.Attach(r.Context(), token)
		ctx = context.WithValue(ctx, requestStateKey{}, state)
		r = r.WithContext(ctx)
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			p := recover()
			if p != nil {
				state.recordCause(panicError(p))
			}
			a.finish(r, ww, state, token, start)
			if p != nil {
				panic(p)
			}
		}()

		state.advance(StageReceived, StageDispatched)
		next.ServeHTTP(ww, r)
	})
}

func (a *AccessLogger) finish(r *http.Request, ww chimw.WrapResponseWriter, state *requestState, token correlation.Token, start time.Time) {
	ctx := r.Context()
	cause := state.Cause()
	status := ww.Status()
	known := status != 0

	if cause == nil && ctx.Err() != nil {
		// client went away before the handler returned
		cause = ctx.Err()
	}
	if !known && cause == nil {
		// net/http commits 200 for a handler that wrote nothing
		status, known = http.StatusOK, true
	}

	next := StageCompleting
	if cause != nil {
		next = StageFailing
	}
	if !state.advance(StageDispatched, next) {
		return
	}

	rec := observability.AccessRecord{
		Method:      r.Method,
		Path:        r.URL.Path,
		Route:       routePattern(r),
		Status:      status,
		StatusKnown: known,
		Duration:    a.now().Sub(start),
		Cause:       cause,
	}
	if cause != nil {
		rec.CauseMessage = services.GetErrorMessage(cause)
	}
	_, level := rec.Classify()
	a.log.Log(ctx, level, rec.Message(), rec.Fields()...)
	state.advance(next, StageLogged)

	labels := observability.RequestLabels{
		Method: r.Method,
		Route:  metricRoute(rec.Route),
		Status: rec.StatusText(),
	}
	a.metrics.RecordRequest(ctx, labels)
	a.metrics.RecordLatency(ctx, rec.Duration.Seconds(), labels)

	a.registry.End(token)
	state.advance(StageLogged, StageContextCleared)
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

func metricRoute(pattern string) string {
	if pattern == "" {
		return "unmatched"
	}
	return pattern
}

func panicError(p any) error {
	if err, ok := p.(error); ok {
		if errors.Is(err, http.ErrAbortHandler) {
			return err
		}
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", p)
}
