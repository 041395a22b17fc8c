package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseMonthParam(t *testing.T) {
	tests := []struct {
		query   string
		want    string
		wantErr bool
	}{
		{"", "2026-03", false},
		{"?month=2025-12", "2025-12", false},
		{"?month=%202026-01%20", "2026-01", false},
		{"?month=2026-1", "", true},
		{"?month=march", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/summary"+tt.query, nil)
			got, err := parseMonthParam(req, fixedNow)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got.String() != tt.want {
				t.Errorf("month = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  lunch  ", "lunch"},
		{"a\x00b\x07c", "abc"},
		{"line1\nline2\ttab", "line1\nline2\ttab"},
		{"早餐", "早餐"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	s := &Server{validate: newValidator()}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"tag":"food"}`, ""},
		{"trailing object", `{"tag":"food"}{"tag":"x"}`, "INVALID_INPUT"},
		{"malformed", `{"tag":`, "INVALID_INPUT"},
		{"missing tag", `{}`, "VALIDATION_FAILED"},
		{"too large", `{"tag":"` + strings.Repeat("x", maxBodyBytes) + `"}`, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/tags", strings.NewReader(tt.body))
			var dst tagRequest
			err := s.decodeJSON(httptest.NewRecorder(), req, &dst)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if code := mapError(err).Code; code != tt.wantErr {
				t.Errorf("code = %s, want %s", code, tt.wantErr)
			}
		})
	}
}
