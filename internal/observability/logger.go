package observability

import (
	"context"
	"fmt"

	"github.com/jfi/employee-api/internal/correlation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides structured logging with context awareness.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
}

// Field represents a structured log field.
type Field = zap.Field

// ContextLogger is a Logger that tags each entry with the correlation token
// found in the context passed to that call.
//
// The token is materialized into a field slice built for the single log
// statement and discarded when the statement returns. Nothing is cached on
// the logger, so a ContextLogger is safe to share across requests and
// goroutines.
type ContextLogger struct {
	base *zap.Logger
}

var _ Logger = (*ContextLogger)(nil)

// NewContextLogger wraps base. A nil base yields a no-op logger.
func NewContextLogger(base *zap.Logger) *ContextLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &ContextLogger{base: base.WithOptions(zap.AddCallerSkip(2))}
}

// Named returns a child logger with name appended to the logger name.
func (l *ContextLogger) Named(name string) *ContextLogger {
	return &ContextLogger{base: l.base.Named(name)}
}

// Debug logs at debug level.
func (l *ContextLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, zapcore.DebugLevel, msg, fields)
}

// Info logs at info level.
func (l *ContextLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, zapcore.InfoLevel, msg, fields)
}

// Warn logs at warn level.
func (l *ContextLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, zapcore.WarnLevel, msg, fields)
}

// Error logs at error level.
func (l *ContextLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, zapcore.ErrorLevel, msg, fields)
}

// Log logs at an explicit level.
func (l *ContextLogger) Log(ctx context.Context, level zapcore.Level, msg string, fields ...Field) {
	l.emit(ctx, level, msg, fields)
}

// Enabled reports whether entries at level would be written.
func (l *ContextLogger) Enabled(level zapcore.Level) bool {
	return l.base.Core().Enabled(level)
}

func (l *ContextLogger) emit(ctx context.Context, level zapcore.Level, msg string, fields []Field) {
	ce := l.base.Check(level, msg)
	if ce == nil {
		return
	}

	token, ok := correlation.Current(ctx)
	if !ok {
		ce.Write(fields...)
		return
	}

	// copy so the caller's variadic backing array is never appended to
	scoped := make([]Field, 0, len(fields)+1)
	scoped = append(scoped, zap.String(correlation.LogField, token.String()))
	scoped = append(scoped, fields...)
	ce.Write(scoped...)
}

// NewZapLogger builds the process logger. format is "json" (production
// encoder) or "console"/"text" (development encoder).
func NewZapLogger(level, format string) (*zap.Logger, error) {
	if level == "" {
		level = "info"
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch format {
	case "", "json":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "console", "text":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q: must be json or console", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
