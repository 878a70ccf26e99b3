package log

import (
	"context"
	"log/slog"
	"net/http"
)

type ctxKey struct{}

// NewContext returns ctx carrying logger. The trace middleware stores a
// logger enriched with the request id and client IP this way.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request-scoped logger, or the process default
// tagged with ComponentApp when none was stored.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return logger
	}
	return Default(ComponentApp)
}

// StructuredLogger emits the recurring log events of the service with a
// fixed field layout.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// target prefers the request-scoped logger so events carry the request id.
func (sl *StructuredLogger) target(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return logger
	}
	return sl.logger
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent())

	sl.target(ctx).DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs completion at a level derived from the status code.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "").
		WithHTTPResponse(statusCode, durationMs)

	sl.target(ctx).Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogTransactionRecorded(ctx context.Context, userID int64, id int64, txType string, amount float64, category string) {
	fields := NewFields().
		WithUser(userID).
		WithTransaction(id, txType, amount, category).
		WithOperation(OpCreate)

	sl.target(ctx).InfoContext(ctx, "Transaction recorded", fields.ToSlice()...)
}

// LogExported records a transaction appended to the spreadsheet.
func (sl *StructuredLogger) LogExported(ctx context.Context, id int64, ref string) {
	fields := NewFields().
		WithOperation(OpExport)
	fields[FieldTxID] = id
	fields[FieldExportRef] = ref

	sl.target(ctx).InfoContext(ctx, "Transaction exported", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.WithError(err).WithOperation(operation)

	sl.target(ctx).ErrorContext(ctx, msg, fields.ToSlice()...)
}
