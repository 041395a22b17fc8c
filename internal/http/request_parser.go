package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nzql/internal/core"
)

// maxBodyBytes caps request bodies. A full snapshot is never uploaded, so
// single records stay well below it.
const maxBodyBytes = 64 << 10

// decodeJSON reads one JSON object into dst and validates it. Unknown fields
// and trailing data are rejected.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return WithMessage(ErrInvalidInput, "Request body is empty")
		case errors.As(err, &maxErr):
			return WithMessage(ErrInvalidInput, "Request body too large")
		default:
			return Wrap(WithMessage(ErrInvalidInput, "Malformed JSON body"), err)
		}
	}
	if dec.More() {
		return WithMessage(ErrInvalidInput, "Request body must contain a single JSON object")
	}
	if err := s.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// parseMonthParam reads ?month=YYYY-MM, defaulting to the month of now.
func parseMonthParam(r *http.Request, now time.Time) (core.Month, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("month"))
	if raw == "" {
		return core.MonthOf(now), nil
	}
	m, err := core.ParseMonth(raw)
	if err != nil {
		return "", Wrap(WithMessage(ErrInvalidInput, fmt.Sprintf("month must be YYYY-MM, got %q", raw)), err)
	}
	return m, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
