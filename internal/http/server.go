// Package http exposes the finance tracker as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fintrack/internal/auth"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the collaborators the handlers call into.
type Services struct {
	Accounts     *services.AccountService
	Transactions *services.TransactionService
	Dashboards   *services.DashboardService
	Reports      *services.ReportService
	Issuer       *auth.Issuer
	Store        Pinger
}

type Options struct {
	Version string
	// LoginRequestsPerMinute caps register and login attempts per client IP.
	LoginRequestsPerMinute int
	RequestTimeout         time.Duration
}

func (o Options) withDefaults() Options {
	if o.LoginRequestsPerMinute <= 0 {
		o.LoginRequestsPerMinute = 10
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
	return o
}

type Server struct {
	http.Server

	svc      Services
	opts     Options
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	detector *security.Detector
	clock    func() time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc Services, opts Options) *Server {
	opts = opts.withDefaults()
	detector := security.NewDetector()

	s := &Server{
		svc:      svc,
		opts:     opts,
		detector: detector,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{Limit: opts.LoginRequestsPerMinute, Window: time.Minute}),
		tracer:   trace.NewMiddleware(detector.ExtractClientIP, applog.Default(applog.ComponentTrace)),
	}

	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.APIHeaderPolicy()))
	r.Use(detector.Middleware)
	r.Use(middleware.Timeout(opts.RequestTimeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusTooManyRequests, "too many attempts, try again later")
			}))
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(svc.Issuer, func(w http.ResponseWriter, status int, msg string) {
				writeError(w, status, msg)
			}))
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/dashboard/chart.png", s.handleChart)
			r.Post("/transactions", s.handleCreateTransaction)
			r.Get("/statistics", s.handleStatistics)
			r.Get("/statistics/statement.pdf", s.handleStatement)
			r.Get("/profile", s.handleGetProfile)
			r.Put("/profile", s.handleUpdateProfile)
		})
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
