package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHeaders(t *testing.T) {
	h := Headers(APIHeaderPolicy())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("missing headers: %v", rr.Header())
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS set on plain http")
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.TLS = &tls.ConnectionState{}
	h.ServeHTTP(rr, req)
	if rr.Header().Get("Strict-Transport-Security") != "max-age=31536000; includeSubDomains" {
		t.Fatalf("unexpected HSTS: %q", rr.Header().Get("Strict-Transport-Security"))
	}

	rr = httptest.NewRecorder()
	Headers(HeaderPolicy{})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rr, req)
	if rr.Header().Get("Cache-Control") != "" || rr.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("empty policy set headers: %v", rr.Header())
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("nosniff must always be sent")
	}
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		remote string
		xff    string
		real   string
		want   string
	}{
		{"direct", "203.0.113.5:1234", "", "", "203.0.113.5"},
		{"trusted proxy", "10.0.0.2:80", "198.51.100.7", "", "198.51.100.7"},
		{"spoofed leftmost hop", "10.0.0.2:80", "1.2.3.4, 198.51.100.7, 10.0.0.3", "", "198.51.100.7"},
		{"all hops trusted", "10.0.0.2:80", "192.168.1.10, 10.0.0.3", "", "192.168.1.10"},
		{"x-real-ip fallback", "10.0.0.2:80", "", "198.51.100.9", "198.51.100.9"},
		{"untrusted peer ignores headers", "203.0.113.5:1234", "198.51.100.7", "198.51.100.9", "203.0.113.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.real != "" {
				req.Header.Set("X-Real-IP", tt.real)
			}
			if got := d.ExtractClientIP(req); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestExtractClientIPCountsGarbage(t *testing.T) {
	d := NewDetector()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "not-an-ip"
	if got := d.ExtractClientIP(req); got != "not-an-ip" {
		t.Fatalf("got %q", got)
	}
	if d.GetMetrics().InvalidIPAttempts != 1 {
		t.Fatalf("metrics = %+v", d.GetMetrics())
	}
}

func TestClassify(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		xff    string
		want   string
	}{
		{"normal", http.MethodGet, "/api/statistics?start_date=2024-05-01&end_date=2024-05-31", "", "", ""},
		{"dotenv probe", http.MethodGet, "/.env", "", "", ReasonPathProbe},
		{"script in query", http.MethodGet, "/api/statistics?category=%3Cscript%3E", "", "", ReasonQueryPayload},
		{"sql injection", http.MethodGet, "/api/statistics?category=x'+union+select+1", "", "", ReasonQueryPayload},
		{"scanner", http.MethodGet, "/", "sqlmap/1.7", "", ReasonScannerAgent},
		{"trace", "TRACE", "/", "", "", ReasonMethod},
		{"long url", http.MethodGet, "/?q=" + strings.Repeat("a", 2100), "", "", ReasonLongURL},
		{"proxy chain", http.MethodGet, "/", "", "1.1.1.1,2.2.2.2,3.3.3.3,4.4.4.4,5.5.5.5,6.6.6.6", ReasonProxyChain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.agent != "" {
				req.Header.Set("User-Agent", tt.agent)
			}
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := d.Classify(req); got != tt.want {
				t.Fatalf("Classify = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectSuspiciousRequestCountsByReason(t *testing.T) {
	d := NewDetector()

	d.DetectSuspiciousRequest(httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	d.DetectSuspiciousRequest(httptest.NewRequest(http.MethodGet, "/.git/config", nil))
	d.DetectSuspiciousRequest(httptest.NewRequest(http.MethodGet, "/wp-admin", nil))

	m := d.GetMetrics()
	if m.SuspiciousRequests != 2 || m.ByReason[ReasonPathProbe] != 2 {
		t.Fatalf("metrics = %+v", m)
	}
}
