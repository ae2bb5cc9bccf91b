package errors

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

func TestMapErrorToHTTP(t *testing.T) {
	m := NewMapper(zerolog.Nop())

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"nil", nil, fasthttp.StatusOK},
		{"validation", NewValidationError("bad input"), fasthttp.StatusBadRequest},
		{"unauthorized", NewUnauthorizedError("no credential"), fasthttp.StatusUnauthorized},
		{"not found", NewNotFoundError("missing"), fasthttp.StatusNotFound},
		{"conflict", NewConflictError("duplicate"), fasthttp.StatusConflict},
		{"service unavailable", NewServiceUnavailableError("upstream down"), fasthttp.StatusServiceUnavailable},
		{"internal", NewInternalError("boom"), fasthttp.StatusInternalServerError},
		{"unknown", fmt.Errorf("plain error"), fasthttp.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := m.MapErrorToHTTP(tt.err)
			if status != tt.wantStatus {
				t.Errorf("MapErrorToHTTP(%v) status = %d, want %d", tt.err, status, tt.wantStatus)
			}
		})
	}
}

func TestMapErrorToHTTPWrapped(t *testing.T) {
	m := NewMapper(zerolog.Nop())

	wrapped := fmt.Errorf("loading account: %w", NewNotFoundError("account not found"))
	status, msg := m.MapErrorToHTTP(wrapped)
	if status != fasthttp.StatusNotFound {
		t.Errorf("wrapped error status = %d, want %d", status, fasthttp.StatusNotFound)
	}
	if msg != "account not found" {
		t.Errorf("wrapped error message = %q, want %q", msg, "account not found")
	}
}
