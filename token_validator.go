package auth

import "context"

// TokenValidator validates tokens and extracts claims without tying callers
// to a specific signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// ContextTokenValidator is implemented by validators that consult
// request scoped stores, like the revocation deny-list.
type ContextTokenValidator interface {
	ValidateContext(ctx context.Context, tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	if f == nil {
		return nil, ErrUnableToDecodeSession
	}
	return f(tokenString)
}

// ValidateWithContext uses the context aware path when v supports it
func ValidateWithContext(ctx context.Context, v TokenValidator, tokenString string) (AuthClaims, error) {
	if v == nil {
		return nil, ErrUnableToDecodeSession
	}
	if cv, ok := v.(ContextTokenValidator); ok {
		return cv.ValidateContext(ctx, tokenString)
	}
	return v.Validate(tokenString)
}
