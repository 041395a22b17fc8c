package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/data", nil))

	for name, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	} {
		if got := rr.Header().Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Security-Policy"), "default-src 'none'") {
		t.Errorf("unexpected CSP %q", rr.Header().Get("Content-Security-Policy"))
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must only be sent over TLS")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains; preload" {
		t.Errorf("HSTS = %q", got)
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"plain api call", http.MethodGet, "/api/summary?month=2026-03", "Mozilla/5.0", false},
		{"curl is fine", http.MethodPost, "/api/sync", "curl/8.5.0", false},
		{"path traversal", http.MethodGet, "/api/../../etc/passwd", "", true},
		{"dotenv fetch", http.MethodGet, "/.env", "", true},
		{"injection in query", http.MethodGet, "/api/advice?month=1%27+union+select", "", true},
		{"percent encoded script", http.MethodGet, "/api/summary?month=%3Cscript%3E", "", true},
		{"encoded month is fine", http.MethodGet, "/api/summary?month=2026%2D03", "", false},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector()
			req := httptest.NewRequest(tt.method, tt.target, nil)
			req.Header.Set("User-Agent", tt.agent)
			if got := d.DetectSuspiciousRequest(req); got != tt.want {
				t.Errorf("DetectSuspiciousRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"direct", "203.0.113.7:5555", "", "", "203.0.113.7"},
		{"untrusted proxy ignored", "203.0.113.7:5555", "198.51.100.1", "", "203.0.113.7"},
		{"trusted proxy xff", "10.0.0.2:80", "198.51.100.1, 10.0.0.2", "", "198.51.100.1"},
		{"trusted proxy real ip", "127.0.0.1:80", "", "198.51.100.9", "198.51.100.9"},
		{"garbage xff falls back", "192.168.1.1:80", "not-an-ip", "", "192.168.1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := NewDetector().ExtractClientIP(req); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectorMiddleware(t *testing.T) {
	d := NewDetector()
	served := 0
	h := d.Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { served++ }))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("TRACE", "/", nil))
	if rr.Code != http.StatusMethodNotAllowed || served != 0 {
		t.Fatalf("TRACE: status %d, served %d", rr.Code, served)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/.git/config", nil))
	if served != 1 {
		t.Fatal("suspicious but valid methods are still served")
	}
	if m := d.GetMetrics(); m.SuspiciousRequests != 2 {
		t.Fatalf("SuspiciousRequests = %d, want 2", m.SuspiciousRequests)
	}
}
