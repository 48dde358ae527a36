package auth

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeAccountDisabled    = "ACCOUNT_DISABLED"
	TextCodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
	TextCodeSessionNotFound    = "SESSION_NOT_FOUND"
	TextCodeSessionDecodeError = "SESSION_DECODE_ERROR"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeTokenSignature     = "TOKEN_INVALID_SIGNATURE"
	TextCodeTokenRevoked       = "TOKEN_REVOKED"
	TextCodeSessionStale       = "SESSION_STALE"
	TextCodeForbidden          = "FORBIDDEN"
	TextCodeTenantRequired     = "TENANT_SCOPE_REQUIRED"
	TextCodeUserNotFound       = "USER_NOT_FOUND"
	TextCodeUserExists         = "USER_EXISTS"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeInvalidRole        = "INVALID_ROLE"
	TextCodeInvalidStatus      = "INVALID_STATUS"
	TextCodeValidation         = "VALIDATION_FAILED"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode(TextCodeUserNotFound)

// ErrMismatchedHashAndPassword is returned for any credential mismatch,
// including unknown emails.
var ErrMismatchedHashAndPassword = goerrors.New("Login failed", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCreds)

// ErrUserDisabled is returned when a disabled account tries to log in
var ErrUserDisabled = goerrors.New("Account is disabled.", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeAccountDisabled)

// ErrTooManyLoginAttempts is returned while an account or email is throttled
var ErrTooManyLoginAttempts = goerrors.New("Too many login attempts, try again later.", goerrors.CategoryRateLimit).
	WithCode(http.StatusTooManyRequests).
	WithTextCode(TextCodeTooManyAttempts)

// ErrUnableToFindSession is the error when the request carries no token
var ErrUnableToFindSession = goerrors.New("Not authenticated.", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeSessionNotFound)

// ErrUnableToDecodeSession unable to decode claims from token
var ErrUnableToDecodeSession = goerrors.New("unable to decode session", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeSessionDecodeError)

// ErrTokenExpired is returned for tokens past their issuance window
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed is returned for tokens that can not be parsed
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrTokenInvalidSignature is returned when the signature does not verify
var ErrTokenInvalidSignature = goerrors.New("token signature is invalid", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenSignature)

// ErrTokenRevoked is returned for tokens on the deny-list
var ErrTokenRevoked = goerrors.New("token has been revoked", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenRevoked)

// ErrSessionStale is returned when the account behind a valid token was
// disabled or removed after the token was issued
var ErrSessionStale = goerrors.New("Session is no longer valid.", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeSessionStale)

// ErrForbidden is returned when a valid identity lacks the required role
var ErrForbidden = goerrors.New("Access denied.", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeForbidden)

// ErrTenantScopeRequired is returned for client roles missing an organization
var ErrTenantScopeRequired = goerrors.New("Organization scope required.", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeTenantRequired)

// ErrUserNotFound is returned when a target user is absent or out of scope
var ErrUserNotFound = goerrors.New("User not found.", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode(TextCodeUserNotFound)

// ErrUserExists is returned when creating a user with a taken email
var ErrUserExists = goerrors.New("User already exists.", goerrors.CategoryConflict).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeUserExists)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeEmptyPassword)

// ErrInvalidRole is returned for roles outside the allowed set of an operation
var ErrInvalidRole = goerrors.New("Invalid role.", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeInvalidRole)

// ErrInvalidStatus is returned for statuses outside active/disabled
var ErrInvalidStatus = goerrors.New("Invalid status.", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeInvalidStatus)

// NewValidationError wraps a payload validation failure
func NewValidationError(message string, err error) *goerrors.Error {
	e := goerrors.New(message, goerrors.CategoryValidation).
		WithCode(goerrors.CodeBadRequest).
		WithTextCode(TextCodeValidation)
	if err != nil {
		e = e.WithMetadata(map[string]any{"validation": err.Error()})
	}
	return e
}

// withMeta clones a sentinel before attaching metadata so package level
// errors stay untouched.
func withMeta(base *goerrors.Error, meta map[string]any) *goerrors.Error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	return clone.WithMetadata(meta)
}

// HasTextCode reports whether err is a rich error carrying textCode
func HasTextCode(err error, textCode string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCode
}

// HTTPStatus maps an error to the response status code
func HTTPStatus(err error) int {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return http.StatusInternalServerError
	}

	if richErr.Code != 0 {
		return richErr.Code
	}

	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show a caller. Internal
// failures collapse into a generic message.
func PublicMessage(err error, fallback string) string {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return fallback
	}
	if HTTPStatus(err) >= http.StatusInternalServerError {
		return fallback
	}
	return richErr.Message
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
