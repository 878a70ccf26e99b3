// Package trace assigns request ids, stores a request-scoped logger in the
// context and logs the start and end of every request.
package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	applog "fintrack/internal/log"
)

type ctxKey struct{}

// RequestIDHeader is echoed on responses and honoured on requests when it
// holds a UUID.
const RequestIDHeader = "X-Request-ID"

type Metrics struct {
	TotalRequests    int64
	ClientErrors     int64
	ServerErrors     int64
	LastResponseTime int64 // microseconds
}

type Middleware struct {
	extractIP func(*http.Request) string
	base      *applog.Logger
	events    *applog.StructuredLogger

	total        int64
	clientErrors int64
	serverErrors int64
	lastMicros   int64
}

// NewMiddleware builds the tracer. extractIP may be nil; logger defaults to
// the process logger.
func NewMiddleware(extractIP func(*http.Request) string, logger *applog.Logger) *Middleware {
	if logger == nil {
		logger = applog.Default(applog.ComponentHTTP)
	}
	return &Middleware{
		extractIP: extractIP,
		base:      logger,
		events:    applog.NewStructuredLogger(logger),
	}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		atomic.AddInt64(&m.total, 1)

		requestID := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		logger := m.base.With(applog.FieldRequestID, requestID, applog.FieldClientIP, clientIP)
		ctx := context.WithValue(r.Context(), ctxKey{}, requestID)
		ctx = applog.NewContext(ctx, logger)
		r = r.WithContext(ctx)

		m.events.LogHTTPStart(ctx, r)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		atomic.StoreInt64(&m.lastMicros, elapsed.Microseconds())
		switch {
		case rec.status >= 500:
			atomic.AddInt64(&m.serverErrors, 1)
		case rec.status >= 400:
			atomic.AddInt64(&m.clientErrors, 1)
		}

		m.events.LogHTTPEnd(ctx, r, rec.status, elapsed.Milliseconds())
	})
}

// statusRecorder captures the first status code written.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:    atomic.LoadInt64(&m.total),
		ClientErrors:     atomic.LoadInt64(&m.clientErrors),
		ServerErrors:     atomic.LoadInt64(&m.serverErrors),
		LastResponseTime: atomic.LoadInt64(&m.lastMicros),
	}
}
