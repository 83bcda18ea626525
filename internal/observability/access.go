package observability

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Outcome classifies how a request terminated.
type Outcome string

const (
	// OutcomeSuccess means the request completed without a recorded cause.
	OutcomeSuccess Outcome = "success"
	// OutcomeErrorResult means the operation failed with an application-level
	// error answered by a non-5xx status.
	OutcomeErrorResult Outcome = "error_result"
	// OutcomeErrorTransport means the request failed with a 5xx status or
	// terminated before a status was committed.
	OutcomeErrorTransport Outcome = "error_transport"
)

// StatusUnknown is logged in place of a status code when the response never
// committed one.
const StatusUnknown = "unknown"

// AccessRecord is the single summary of one inbound request.
type AccessRecord struct {
	Method      string
	Path        string
	Route       string
	Status      int
	StatusKnown bool
	Duration    time.Duration
	Cause       error
	// CauseMessage is the failure's message as reported to the client. When
	// empty the cause renders as Cause.Error().
	CauseMessage string
}

// Classify returns the outcome and severity of a finished request.
//
//	cause  status         outcome          level
//	nil    any known      success          info
//	set    known, !5xx    error_result     info
//	set    known, 5xx     error_transport  error
//	any    unknown        see below        info
//
// An unknown status is always logged at info; with a cause it is an abnormal
// termination (error_transport), without one it is a success.
func Classify(status int, known bool, cause error) (Outcome, zapcore.Level) {
	switch {
	case !known && cause != nil:
		return OutcomeErrorTransport, zapcore.InfoLevel
	case !known:
		return OutcomeSuccess, zapcore.InfoLevel
	case cause == nil:
		return OutcomeSuccess, zapcore.InfoLevel
	case status >= 500 && status <= 599:
		return OutcomeErrorTransport, zapcore.ErrorLevel
	default:
		return OutcomeErrorResult, zapcore.InfoLevel
	}
}

// Classify is shorthand for Classify(r.Status, r.StatusKnown, r.Cause).
func (r AccessRecord) Classify() (Outcome, zapcore.Level) {
	return Classify(r.Status, r.StatusKnown, r.Cause)
}

// DurationMillis returns the duration in whole milliseconds, never negative.
func (r AccessRecord) DurationMillis() int64 {
	if r.Duration < 0 {
		return 0
	}
	return r.Duration.Milliseconds()
}

// StatusText returns the status code as text, or StatusUnknown.
func (r AccessRecord) StatusText() string {
	if !r.StatusKnown {
		return StatusUnknown
	}
	return strconv.Itoa(r.Status)
}

// Message renders "<METHOD> <path> <status> in <ms>ms[ - <cause>]".
func (r AccessRecord) Message() string {
	msg := fmt.Sprintf("%s %s %s in %dms", r.Method, r.Path, r.StatusText(), r.DurationMillis())
	if r.Cause != nil {
		msg += " - " + r.causeText()
	}
	return msg
}

func (r AccessRecord) causeText() string {
	if r.CauseMessage != "" {
		return r.CauseMessage
	}
	return r.Cause.Error()
}

// Fields returns the structured fields of the record. The correlation token
// is added by ContextLogger at emission time.
func (r AccessRecord) Fields() []Field {
	outcome, _ := r.Classify()
	fields := []Field{
		zap.String("method", r.Method),
		zap.String("path", r.Path),
	}
	if r.StatusKnown {
		fields = append(fields, zap.Int("status", r.Status))
	} else {
		fields = append(fields, zap.String("status", StatusUnknown))
	}
	fields = append(fields,
		zap.Int64("duration_ms", r.DurationMillis()),
		zap.String("outcome", string(outcome)),
	)
	if r.Route != "" {
		fields = append(fields, zap.String("route", r.Route))
	}
	if r.Cause != nil {
		fields = append(fields, zap.String("cause", r.causeText()))
	}
	return fields
}
