package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentWorker, Handler: slog.NewTextHandler(&buf, nil)})
	logger.Info("hello", FieldUserID, 3)

	out := buf.String()
	if !strings.Contains(out, "component=worker") || !strings.Contains(out, "user_id=3") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestDefaultWrapsSlogDefault(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	logger := Default(ComponentCache)
	logger.Warn("evicted")

	if logger.Component() != ComponentCache || !strings.Contains(buf.String(), "component=cache") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithUser(9).
		WithTransaction(1, "Expense", 12.5, "Food").
		WithError(errors.New("boom")).
		WithError(nil)

	if f[FieldUserID] != int64(9) || f[FieldCategory] != "Food" || f[FieldError] != "boom" {
		t.Fatalf("unexpected fields: %v", f)
	}
	if len(f.ToSlice()) != len(f)*2 {
		t.Fatalf("slice length mismatch")
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentHTTP, Handler: slog.NewTextHandler(&buf, nil)}).
		With(FieldRequestID, "req-1")

	ctx := NewContext(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Fatalf("FromContext returned %+v", got)
	}
	if FromContext(context.Background()).Component() != ComponentApp {
		t.Fatalf("expected app fallback logger")
	}

	sl := NewStructuredLogger(Default(ComponentBackend))
	sl.LogTransactionRecorded(ctx, 4, 10, "Expense", 9.5, "Food")
	sl.LogError(ctx, "publish failed", errors.New("broker down"), OpCreate, nil)

	out := buf.String()
	for _, want := range []string{"request_id=req-1", "component=http", "transaction_id=10", "error=\"broker down\""} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %s: %s", want, out)
		}
	}
}

func TestLogHTTPEndLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Component: ComponentTrace, Handler: slog.NewTextHandler(&buf, nil)}))
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)

	sl.LogHTTPEnd(context.Background(), req, http.StatusOK, 3)
	sl.LogHTTPEnd(context.Background(), req, http.StatusNotFound, 3)
	sl.LogHTTPEnd(context.Background(), req, http.StatusBadGateway, 3)

	out := buf.String()
	for _, want := range []string{"level=INFO", "level=WARN", "level=ERROR", "status_code=502"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %s: %s", want, out)
		}
	}
}
