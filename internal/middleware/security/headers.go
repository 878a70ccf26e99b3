package security

import (
	"net/http"
	"strconv"
)

// HeaderPolicy lists the response headers set on every API response. Empty
// fields are not sent.
type HeaderPolicy struct {
	ContentSecurityPolicy string
	FrameOptions          string
	ReferrerPolicy        string
	PermissionsPolicy     string
	OpenerPolicy          string
	ResourcePolicy        string
	// CacheControl defaults to no-store since every body is per-user data.
	CacheControl string

	// HSTSMaxAge in seconds; only sent on TLS connections.
	HSTSMaxAge     int
	HSTSSubdomains bool
}

// APIHeaderPolicy suits a JSON API that also serves PNG and PDF downloads.
func APIHeaderPolicy() HeaderPolicy {
	return HeaderPolicy{
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; base-uri 'none'",
		FrameOptions:          "DENY",
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
		OpenerPolicy:          "same-origin",
		ResourcePolicy:        "same-origin",
		CacheControl:          "no-store",
		HSTSMaxAge:            365 * 24 * 60 * 60,
		HSTSSubdomains:        true,
	}
}

// Headers returns middleware applying p. The header set is built once.
func Headers(p HeaderPolicy) func(http.Handler) http.Handler {
	fixed := [][2]string{{"X-Content-Type-Options", "nosniff"}}
	for _, h := range [][2]string{
		{"Content-Security-Policy", p.ContentSecurityPolicy},
		{"X-Frame-Options", p.FrameOptions},
		{"Referrer-Policy", p.ReferrerPolicy},
		{"Permissions-Policy", p.PermissionsPolicy},
		{"Cross-Origin-Opener-Policy", p.OpenerPolicy},
		{"Cross-Origin-Resource-Policy", p.ResourcePolicy},
		{"Cache-Control", p.CacheControl},
	} {
		if h[1] != "" {
			fixed = append(fixed, h)
		}
	}

	var hsts string
	if p.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.Itoa(p.HSTSMaxAge)
		if p.HSTSSubdomains {
			hsts += "; includeSubDomains"
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hdr := w.Header()
			for _, h := range fixed {
				hdr.Set(h[0], h[1])
			}
			if hsts != "" && r.TLS != nil {
				hdr.Set("Strict-Transport-Security", hsts)
			}
			next.ServeHTTP(w, r)
		})
	}
}
