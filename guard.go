package auth

import (
	"github.com/gofiber/fiber/v2"
)

// Authorize checks the actor role is a member of allow. There is no
// hierarchy: admin passes only when listed.
func Authorize(actor *Actor, allow RoleSet) error {
	if actor == nil {
		return ErrUnableToFindSession
	}
	if !allow.Contains(actor.Role) {
		return withMeta(ErrForbidden, map[string]any{
			"actor_id": actor.ID,
			"role":     actor.Role,
			"allowed":  allow.Roles(),
		})
	}
	return nil
}

// GuardOption customizes HasRole
type GuardOption func(*guardConfig)

type guardConfig struct {
	errorHandler fiber.ErrorHandler
	sink         ActivitySink
}

// WithGuardErrorHandler renders guard failures, defaults to returning
// the error to the app error handler.
func WithGuardErrorHandler(h fiber.ErrorHandler) GuardOption {
	return func(g *guardConfig) {
		g.errorHandler = h
	}
}

// WithGuardActivitySink records denied requests
func WithGuardActivitySink(sink ActivitySink) GuardOption {
	return func(g *guardConfig) {
		g.sink = sink
	}
}

// HasRole returns a middleware letting through only actors whose role is
// one of roles. It must run after the session authenticator.
func HasRole(roles ...Role) fiber.Handler {
	return RoleGuard(roles)
}

// RoleGuard is HasRole with options
func RoleGuard(roles []Role, opts ...GuardOption) fiber.Handler {
	allow := NewRoleSet(roles...)
	cfg := &guardConfig{
		errorHandler: func(c *fiber.Ctx, err error) error { return err },
		sink:         noopActivitySink{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	return func(c *fiber.Ctx) error {
		actor, _ := ActorFromFiber(c)
		if err := Authorize(actor, allow); err != nil {
			if actor != nil {
				_ = normalizeActivitySink(cfg.sink).Record(c.UserContext(), ActivityEvent{
					EventType: ActivityEventAccessDenied,
					Actor:     actor.Ref(),
					UserID:    actor.ID,
					OrgID:     actor.OrgID,
					Metadata: map[string]any{
						"path":   c.Path(),
						"method": c.Method(),
					},
				})
			}
			return cfg.errorHandler(c, err)
		}
		return c.Next()
	}
}
