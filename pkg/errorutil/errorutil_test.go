package errorutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"sql no rows", fmt.Errorf("get: %w", sql.ErrNoRows), "NOT_FOUND", http.StatusNotFound},
		{"pgx no rows", pgx.ErrNoRows, "NOT_FOUND", http.StatusNotFound},
		{"not found", NewNotFound("ticket", nil), "NOT_FOUND", http.StatusNotFound},
		{"conflict", NewConflict("email already registered", nil), "CONFLICT", http.StatusBadRequest},
		{"unauthorized", NewUnauthorized("bad password"), "UNAUTHORIZED", http.StatusUnauthorized},
		{"validation", NewValidationError("bad", nil), "VALIDATION_FAILED", http.StatusBadRequest},
		{"generic", errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			if got.Code != tt.code || got.HTTPStatus != tt.status {
				t.Errorf("got %s/%d, want %s/%d", got.Code, got.HTTPStatus, tt.code, tt.status)
			}
		})
	}
	if ToDomainError(nil) != nil {
		t.Error("nil error should map to nil")
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewNotFound("task", nil))
	if !IsCode(err, "NOT_FOUND") {
		t.Error("expected wrapped not found to match")
	}
	if IsCode(errors.New("x"), "NOT_FOUND") {
		t.Error("plain error should not match")
	}
}
