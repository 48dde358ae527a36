package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// DefaultContextKey is the fiber locals key holding validated claims
const DefaultContextKey = "user"

// ActorLocalsKey is the fiber locals key holding the resolved actor
const ActorLocalsKey = "auth.actor"

var actorCtxKey = &contextKey{"actor"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithActor sets the Actor in the given context
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey, actor)
}

// ActorFromContext finds the actor in the context.
func ActorFromContext(ctx context.Context) (*Actor, bool) {
	if ctx == nil {
		return nil, false
	}
	raw, ok := ctx.Value(actorCtxKey).(*Actor)
	return raw, ok && raw != nil
}

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(ctx context.Context, claims AuthClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// GetClaims extracts the AuthClaims from the standard context
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}

// ActorFromFiber resolves the actor attached by the session authenticator
func ActorFromFiber(c *fiber.Ctx) (*Actor, bool) {
	if actor, ok := c.Locals(ActorLocalsKey).(*Actor); ok && actor != nil {
		return actor, true
	}
	return ActorFromContext(c.UserContext())
}

// ClaimsFromFiber extracts the AuthClaims stored under key
func ClaimsFromFiber(c *fiber.Ctx, key string) (AuthClaims, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	claims, ok := c.Locals(key).(AuthClaims)
	return claims, ok
}
