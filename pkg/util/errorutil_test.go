package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "domain error passes through", err: NewForbidden("nope"), status: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "wrapped domain error", err: fmt.Errorf("ctx: %w", NewNotFound("ticket", nil)), status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "no rows", err: pgx.ErrNoRows, status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, status: http.StatusConflict, code: "CONFLICT"},
		{name: "foreign key violation", err: &pgconn.PgError{Code: "23503"}, status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "anything else", err: errors.New("boom"), status: http.StatusInternalServerError, code: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			assert.Equal(t, tt.status, got.HTTPStatus)
			assert.Equal(t, tt.code, got.Code)
		})
	}
}

func TestMapErrorNil(t *testing.T) {
	assert.NoError(t, MapError(nil))
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(errors.New("other")))
}
