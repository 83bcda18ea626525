// Package intercept wraps operations with entry, exit and failure logging.
//
// Each wrapper corresponds to one result shape:
//
//	Immediate  a value produced synchronously
//	Single     a deferred computation yielding at most one value
//	Sequence   a lazy stream of values
//
// The wrappers never alter the wrapped result. Deferred and streamed work is
// not started until the caller runs it, and it runs exactly once per run.
package intercept

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/jfi/employee-api/internal/observability"
	"go.uber.org/zap"
)

// Event names emitted by the wrappers.
const (
	EventExecuted  = "executed"
	EventEntering  = "entering"
	EventCompleted = "completed"
	EventFailed    = "failed"
	EventCancelled = "cancelled"
)

// Deferred is a computation that yields at most one value when run.
type Deferred[T any] func(ctx context.Context) (T, error)

// Stream is a lazy sequence of values. Iteration stops at the first error.
type Stream[T any] func(ctx context.Context) iter.Seq2[T, error]

// Call describes the intercepted operation.
type Call struct {
	Operation string
	Args      []any
}

func (c Call) fields(event string) []observability.Field {
	fields := []observability.Field{
		zap.String("event", event),
		zap.String("operation", c.Operation),
	}
	if len(c.Args) > 0 {
		fields = append(fields, zap.String("args", fmt.Sprint(c.Args)))
	}
	return fields
}

// Interceptor emits debug events around operations.
type Interceptor struct {
	log *observability.ContextLogger
}

// New returns an Interceptor writing to log under the "intercept" name.
func New(log *observability.ContextLogger) *Interceptor {
	if log == nil {
		log = observability.NewContextLogger(nil)
	}
	return &Interceptor{log: log.Named("intercept")}
}

func (ic *Interceptor) event(ctx context.Context, call Call, event string, extra ...observability.Field) {
	ic.log.Debug(ctx, call.Operation+" "+event, append(call.fields(event), extra...)...)
}

func (ic *Interceptor) finish(ctx context.Context, call Call, err error) {
	switch {
	case err == nil:
		ic.event(ctx, call, EventCompleted)
	case isCancellation(ctx, err):
		ic.event(ctx, call, EventCancelled, zap.Error(err))
	default:
		ic.event(ctx, call, EventFailed, zap.Error(err))
	}
}

func isCancellation(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || (ctx.Err() != nil && errors.Is(err, ctx.Err()))
}

// Immediate runs fn and logs a single executed event with the result.
func Immediate[T any](ctx context.Context, ic *Interceptor, call Call, fn func() T) T {
	result := fn()
	ic.event(ctx, call, EventExecuted, zap.Any("result", result))
	return result
}

// Single wraps d so that each run logs entering followed by exactly one of
// completed, failed or cancelled.
func Single[T any](ic *Interceptor, call Call, d Deferred[T]) Deferred[T] {
	return func(ctx context.Context) (T, error) {
		ic.event(ctx, call, EventEntering)
		v, err := d(ctx)
		ic.finish(ctx, call, err)
		return v, err
	}
}

// Sequence wraps s so that each iteration logs entering followed by exactly
// one of completed, failed or cancelled. A consumer that stops ranging early
// counts as cancelled.
func Sequence[T any](ic *Interceptor, call Call, s Stream[T]) Stream[T] {
	return func(ctx context.Context) iter.Seq2[T, error] {
		return func(yield func(T, error) bool) {
			ic.event(ctx, call, EventEntering)
			count := 0
			for v, err := range s(ctx) {
				if err != nil {
					ic.finish(ctx, call, err)
					yield(v, err)
					return
				}
				count++
				if !yield(v, nil) {
					ic.event(ctx, call, EventCancelled, zap.Int("items", count))
					return
				}
			}
			ic.event(ctx, call, EventCompleted, zap.Int("items", count))
		}
	}
}

// Slice adapts a fixed slice to a Stream. The context is checked between
// items.
func Slice[T any](items []T) Stream[T] {
	return func(ctx context.Context) iter.Seq2[T, error] {
		return func(yield func(T, error) bool) {
			for _, item := range items {
				if err := ctx.Err(); err != nil {
					var zero T
					yield(zero, err)
					return
				}
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}
