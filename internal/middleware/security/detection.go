// Package security holds response hardening and request screening middleware.
package security

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	applog "fintrack/internal/log"
)

// Reasons a request is flagged.
const (
	ReasonPathProbe    = "path_probe"
	ReasonQueryPayload = "query_payload"
	ReasonScannerAgent = "scanner_agent"
	ReasonMethod       = "method"
	ReasonLongURL      = "long_url"
	ReasonProxyChain   = "proxy_chain"
)

const (
	maxURLLength  = 2048
	maxProxyHops  = 5
	defaultAgents = "sqlmap nmap nikto gobuster dirb masscan zgrab"
)

var (
	probePaths = []string{
		"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "wp-login", "phpmyadmin",
		"admin.php", "config.php", "etc/passwd", "cmd.exe", "cgi-bin",
	}
	queryPayloads = []string{
		"<script", "javascript:", "union select", "' or '1'='1", "eval(", "\x00",
	}
	refusedMethods = map[string]bool{"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true}

	defaultTrusted = []string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}
)

type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
	ByReason           map[string]int64
}

// Detector flags hostile-looking requests and resolves client IPs behind
// trusted proxies. It never blocks; flagged requests are logged and counted.
type Detector struct {
	trusted []*net.IPNet
	agents  []string

	suspicious int64
	invalidIP  int64
	mu         sync.Mutex
	byReason   map[string]int64
}

func NewDetector() *Detector {
	d := &Detector{
		agents:   strings.Fields(defaultAgents),
		byReason: make(map[string]int64),
	}
	for _, cidr := range defaultTrusted {
		if err := d.AddTrustedProxy(cidr); err != nil {
			panic(err)
		}
	}
	return d
}

func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trusted = append(d.trusted, network)
	return nil
}

// Classify returns the first reason r looks hostile, or "" when it does not.
func (d *Detector) Classify(r *http.Request) string {
	if refusedMethods[r.Method] {
		return ReasonMethod
	}
	if len(r.URL.String()) > maxURLLength {
		return ReasonLongURL
	}
	if containsAny(strings.ToLower(r.URL.Path), probePaths) {
		return ReasonPathProbe
	}
	if q := decodedQuery(r); q != "" && containsAny(q, queryPayloads) {
		return ReasonQueryPayload
	}
	if containsAny(strings.ToLower(r.UserAgent()), d.agents) {
		return ReasonScannerAgent
	}
	if xff := r.Header.Get("X-Forwarded-For"); strings.Count(xff, ",") >= maxProxyHops {
		return ReasonProxyChain
	}
	return ""
}

// DetectSuspiciousRequest classifies r and counts it when flagged.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	reason := d.Classify(r)
	if reason == "" {
		return false
	}
	atomic.AddInt64(&d.suspicious, 1)
	d.mu.Lock()
	d.byReason[reason]++
	d.mu.Unlock()
	return true
}

// decodedQuery returns the lower-cased, unescaped raw query.
func decodedQuery(r *http.Request) string {
	q := r.URL.RawQuery
	if u, err := url.QueryUnescape(q); err == nil {
		q = u
	}
	return strings.ToLower(q)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// ExtractClientIP returns the peer address, or when the peer is a trusted
// proxy, the nearest untrusted address in X-Forwarded-For (then X-Real-IP).
func (d *Detector) ExtractClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer := net.ParseIP(host)
	if peer == nil {
		atomic.AddInt64(&d.invalidIP, 1)
		return host
	}
	if !d.isTrusted(peer) {
		return host
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			ip := net.ParseIP(strings.TrimSpace(hops[i]))
			if ip == nil {
				atomic.AddInt64(&d.invalidIP, 1)
				break
			}
			if !d.isTrusted(ip) || i == 0 {
				return ip.String()
			}
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	return host
}

func (d *Detector) isTrusted(ip net.IP) bool {
	for _, n := range d.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func (d *Detector) GetMetrics() DetectionMetrics {
	d.mu.Lock()
	byReason := make(map[string]int64, len(d.byReason))
	for k, v := range d.byReason {
		byReason[k] = v
	}
	d.mu.Unlock()

	return DetectionMetrics{
		SuspiciousRequests: atomic.LoadInt64(&d.suspicious),
		InvalidIPAttempts:  atomic.LoadInt64(&d.invalidIP),
		ByReason:           byReason,
	}
}

// Middleware logs suspicious requests without blocking them.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request detected",
				applog.FieldComponent, applog.ComponentSecurity,
				"reason", d.Classify(r),
				applog.FieldClientIP, d.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}
