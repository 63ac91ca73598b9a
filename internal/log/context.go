package log

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the request logger, or the default logger when ctx
// carries none.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger writes the ledger's recurring log events with a fixed
// field layout.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogMovementWritten logs a successful ledger write
func (sl *StructuredLogger) LogMovementWritten(ctx context.Context, op, group, user string, transactionID int, movementType, actor string) {
	fields := NewFields().
		WithMovement(group, user, transactionID, movementType).
		WithOwner(actor).
		WithOperation(op)

	sl.logger.InfoContext(ctx, "Ledger movement written", fields.ToSlice()...)
}

// LogRequestFailed logs a request answered with an internal error.
func (sl *StructuredLogger) LogRequestFailed(ctx context.Context, method, path string, err error) {
	fields := NewFields().
		WithHTTPRequest(method, path, "", "", "").
		WithError(err)

	sl.logger.ErrorContext(ctx, "Request failed", fields.ToSlice()...)
}
