// Package ratelimit caps attempts per client key within a fixed window.
// The HTTP server uses it to throttle register and login per client IP.
package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	applog "fintrack/internal/log"
)

type Config struct {
	// Limit is the number of attempts allowed per key and window.
	Limit           int
	Window          time.Duration
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Limit:           10,
		Window:          time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// Decision is the outcome of one attempt.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type window struct {
	start    time.Time
	attempts int
}

type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	cfg     Config
	now     func() time.Time

	rejected     int64
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	l := &Limiter{
		windows:     make(map[string]*window),
		cfg:         cfg,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow records an attempt for key. A window opens on the first attempt and
// lasts cfg.Window; attempts beyond cfg.Limit inside it are refused.
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.cfg.Window {
		w = &window{start: now}
		l.windows[key] = w
	}
	w.attempts++

	if w.attempts > l.cfg.Limit {
		atomic.AddInt64(&l.rejected, 1)
		return Decision{RetryAfter: w.start.Add(l.cfg.Window).Sub(now)}
	}
	return Decision{Allowed: true, Remaining: l.cfg.Limit - w.attempts}
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := l.evictExpired(); n > 0 {
				slog.Debug("Evicted expired rate limit windows",
					applog.FieldComponent, applog.ComponentRateLimit,
					"evicted", n)
			}
		case <-l.stopCleanup:
			return
		}
	}
}

// evictExpired drops windows that have ended and returns how many were removed.
func (l *Limiter) evictExpired() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	n := 0
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.cfg.Window {
			delete(l.windows, key)
			n++
		}
	}
	return n
}

// ActiveClients returns the number of keys with an open window.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Rejected returns how many attempts were refused since start.
func (l *Limiter) Rejected() int64 {
	return atomic.LoadInt64(&l.rejected)
}

func (l *Limiter) Stop() {
	l.shutdownOnce.Do(func() {
		close(l.stopCleanup)
	})
}

// Middleware limits requests keyed by keyFunc. Every response carries
// X-RateLimit-Limit; refused requests get Retry-After in whole seconds and are
// answered by onLimit, or a plain 429 when onLimit is nil.
func (l *Limiter) Middleware(keyFunc func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			d := l.Allow(key)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Limit))
			if d.Allowed {
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldComponent, applog.ComponentRateLimit,
				applog.FieldClientIP, key,
				applog.FieldPath, r.URL.Path)

			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "too many attempts", http.StatusTooManyRequests)
		})
	}
}
