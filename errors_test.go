package auth_test

import (
	"errors"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/hireloop/portal-auth"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid credentials", err: auth.ErrMismatchedHashAndPassword, want: http.StatusUnauthorized},
		{name: "no session", err: auth.ErrUnableToFindSession, want: http.StatusUnauthorized},
		{name: "expired", err: auth.ErrTokenExpired, want: http.StatusUnauthorized},
		{name: "forbidden", err: auth.ErrForbidden, want: http.StatusForbidden},
		{name: "disabled", err: auth.ErrUserDisabled, want: http.StatusForbidden},
		{name: "tenant", err: auth.ErrTenantScopeRequired, want: http.StatusForbidden},
		{name: "not found", err: auth.ErrUserNotFound, want: http.StatusNotFound},
		{name: "exists", err: auth.ErrUserExists, want: http.StatusBadRequest},
		{name: "throttled", err: auth.ErrTooManyLoginAttempts, want: http.StatusTooManyRequests},
		{name: "validation", err: auth.NewValidationError("bad", nil), want: http.StatusBadRequest},
		{name: "category only", err: goerrors.New("gone", goerrors.CategoryConflict), want: http.StatusConflict},
		{name: "plain error", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.HTTPStatus(tt.err))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "Login failed", auth.PublicMessage(auth.ErrMismatchedHashAndPassword, "x"))
	assert.Equal(t, "Access denied.", auth.PublicMessage(auth.ErrForbidden, "x"))
	assert.Equal(t, "x", auth.PublicMessage(errors.New("pq: relation users does not exist"), "x"))
	assert.Equal(t, "x", auth.PublicMessage(goerrors.New("disk full", goerrors.CategoryInternal), "x"))
}

func TestNewValidationError(t *testing.T) {
	err := auth.NewValidationError("Email is required.", errors.New("email: cannot be blank"))
	assert.Equal(t, "Email is required.", err.Message)
	assert.Equal(t, auth.TextCodeValidation, err.TextCode)
	assert.Equal(t, "email: cannot be blank", err.Metadata["validation"])
}

func TestTokenErrorPredicates(t *testing.T) {
	assert.True(t, auth.IsTokenExpiredError(auth.ErrTokenExpired))
	assert.False(t, auth.IsTokenExpiredError(auth.ErrTokenMalformed))
	assert.False(t, auth.IsTokenExpiredError(nil))

	assert.True(t, auth.IsMalformedError(auth.ErrTokenMalformed))
	assert.True(t, auth.IsMalformedError(errors.New("missing or malformed JWT")))
	assert.False(t, auth.IsMalformedError(nil))
}
