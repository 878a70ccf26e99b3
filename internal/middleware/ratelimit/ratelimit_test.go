package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func fixedClock(l *Limiter, start time.Time) *time.Time {
	now := start
	l.now = func() time.Time { return now }
	return &now
}

func TestAllowFixedWindow(t *testing.T) {
	l := NewLimiter(Config{Limit: 2, Window: time.Minute, CleanupInterval: time.Hour})
	defer l.Stop()
	now := fixedClock(l, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	if d := l.Allow("a"); !d.Allowed || d.Remaining != 1 {
		t.Fatalf("first attempt: %+v", d)
	}
	*now = now.Add(20 * time.Second)
	if d := l.Allow("a"); !d.Allowed || d.Remaining != 0 {
		t.Fatalf("second attempt: %+v", d)
	}
	*now = now.Add(10 * time.Second)
	d := l.Allow("a")
	if d.Allowed {
		t.Fatal("third attempt should be refused")
	}
	if d.RetryAfter != 30*time.Second {
		t.Fatalf("retry after = %v, want 30s until the window closes", d.RetryAfter)
	}
	if !l.Allow("b").Allowed {
		t.Fatal("keys are independent")
	}

	*now = now.Add(30 * time.Second)
	if !l.Allow("a").Allowed {
		t.Fatal("a new window should open a minute after the first attempt")
	}
	if l.Rejected() != 1 {
		t.Fatalf("rejected = %d, want 1", l.Rejected())
	}
}

func TestContinuousAttemptsDoNotExtendWindow(t *testing.T) {
	l := NewLimiter(Config{Limit: 1, Window: time.Minute, CleanupInterval: time.Hour})
	defer l.Stop()
	now := fixedClock(l, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	l.Allow("a")
	for i := 0; i < 5; i++ {
		*now = now.Add(10 * time.Second)
		l.Allow("a")
	}
	*now = now.Add(10 * time.Second)
	if !l.Allow("a").Allowed {
		t.Fatal("window must close a minute after it opened regardless of refused attempts")
	}
}

func TestEvictExpired(t *testing.T) {
	l := NewLimiter(Config{Limit: 5, Window: time.Minute, CleanupInterval: time.Hour})
	defer l.Stop()
	now := fixedClock(l, time.Now())

	l.Allow("a")
	*now = now.Add(2 * time.Minute)
	l.Allow("b")

	if n := l.evictExpired(); n != 1 {
		t.Fatalf("evicted %d, want 1", n)
	}
	if l.ActiveClients() != 1 {
		t.Fatalf("active = %d, want 1", l.ActiveClients())
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	l := NewLimiter(Config{Limit: 1, Window: time.Minute, CleanupInterval: time.Hour})
	defer l.Stop()

	h := l.Middleware(func(*http.Request) string { return "ip" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/login", nil))
	if rr.Code != http.StatusOK || rr.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("first: code=%d remaining=%q", rr.Code, rr.Header().Get("X-RateLimit-Remaining"))
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/login", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second: code=%d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" || rr.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("missing limit headers: %v", rr.Header())
	}
}

func TestMiddlewareCustomResponse(t *testing.T) {
	l := NewLimiter(Config{Limit: 1, Window: time.Minute, CleanupInterval: time.Hour})
	defer l.Stop()

	called := false
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	}
	h := l.Middleware(func(*http.Request) string { return "ip" }, onLimit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	}
	if !called {
		t.Fatal("onLimit not called")
	}
}
