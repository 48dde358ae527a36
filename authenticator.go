package auth

import (
	"context"
	"net/http"
	"reflect"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// LoginResult is what a successful login hands back to the transport
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Identity  Identity
	User      *User
}

// Auther ties credential verification to token issuance
type Auther struct {
	provider     IdentityProvider
	tokenService TokenService
	limiter      *LoginLimiter
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, tokenService TokenService) *Auther {
	return &Auther{
		provider:     provider,
		tokenService: tokenService,
		logger:       defLogger(),
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
}

// WithLogger sets the logger
func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithLoginLimiter throttles login attempts per email
func (s *Auther) WithLoginLimiter(limiter *LoginLimiter) *Auther {
	s.limiter = limiter
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credentials and issues a session token
func (s *Auther) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)

	if !s.limiter.Allow(email) {
		s.logger.Warn("Login throttled", "email", email)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", "", map[string]any{
			"email":  email,
			"reason": TextCodeTooManyAttempts,
		})
		return nil, ErrTooManyLoginAttempts
	}

	identity, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		s.logger.Warn("Login verify identity error", "email", email, "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", "", map[string]any{
			"email": email,
			"error": err.Error(),
		})
		return nil, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		return nil, ErrIdentityNotFound
	}

	token, expiresAt, err := s.tokenService.Generate(identity)
	if err != nil {
		s.logger.Error("Login failed to issue token", "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), identity.OrganizationID(), map[string]any{
			"email": email,
			"error": err.Error(),
		})
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromIdentity(identity), identity.ID(), identity.OrganizationID(), map[string]any{
		"email": email,
		"role":  identity.Role(),
	})

	result := &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Identity:  identity,
	}
	if ui, ok := identity.(UserIdentity); ok {
		result.User = ui.User()
	}
	return result, nil
}

// Logout revokes the presented token. Logging out twice is not an error.
func (s *Auther) Logout(ctx context.Context, raw string) error {
	claims, err := s.tokenService.ValidateContext(ctx, raw)
	if err != nil {
		if HasTextCode(err, TextCodeTokenRevoked) {
			return nil
		}
		return err
	}

	if err := s.tokenService.Revoke(ctx, claims); err != nil {
		s.logger.Error("Logout failed to revoke token", "error", err)
		return err
	}

	s.emitAuthEvent(ctx, ActivityEventLogout, ActorRef{ID: claims.UserID(), Type: claims.Role()}, claims.UserID(), claims.OrganizationID(), map[string]any{
		"jti": claims.TokenID(),
	})
	return nil
}

// SessionFromToken validates raw and resolves the actor it carries
func (s *Auther) SessionFromToken(ctx context.Context, raw string) (*Actor, error) {
	claims, err := s.tokenService.ValidateContext(ctx, raw)
	if err != nil {
		s.logger.Debug("SessionFromToken validation failed", "error", err)
		return nil, err
	}
	return ActorFromClaims(claims)
}

// IdentityFromActor reloads the identity behind an actor. Disabled
// accounts are rejected even if their token is still valid.
func (s *Auther) IdentityFromActor(ctx context.Context, actor *Actor) (Identity, error) {
	if actor == nil {
		return nil, ErrUnableToFindSession
	}
	identity, err := s.provider.FindIdentityByIdentifier(ctx, actor.ID)
	if err != nil {
		s.logger.Warn("IdentityFromActor find identity by identifier", "user_id", actor.ID, "error", err)
		return nil, err
	}
	return identity, nil
}

// RefreshActor rebuilds actor from the stored user. Role, organization
// and status changes take effect on tokens issued before them; a user
// that is gone or disabled ends the session.
func (s *Auther) RefreshActor(ctx context.Context, actor *Actor) (*Actor, error) {
	if actor == nil {
		return nil, ErrUnableToFindSession
	}

	identity, err := s.IdentityFromActor(ctx, actor)
	if err != nil {
		if HTTPStatus(err) >= http.StatusInternalServerError {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reload session user")
		}
		return nil, withMeta(ErrSessionStale, map[string]any{
			"user_id": actor.ID,
			"jti":     actor.TokenID,
			"cause":   PublicMessage(err, ""),
		})
	}

	fresh := *actor
	fresh.Email = identity.Email()
	fresh.Role = identity.Role()
	fresh.OrgID = identity.OrganizationID()
	return &fresh, nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID, orgID string, metadata map[string]any) {
	recordActivity(ctx, s.activitySink, s.logger, s.now, ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		OrgID:     orgID,
		Metadata:  metadata,
	})
}

func (s *Auther) actorFromIdentity(identity Identity) ActorRef {
	if identity == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   identity.ID(),
		Type: identity.Role(),
	}
}
