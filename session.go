package auth

import (
	"time"

	"github.com/google/uuid"
)

// Actor is the resolved identity of an authenticated request
type Actor struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	OrgID     string    `json:"orgId,omitempty"`
	TokenID   string    `json:"-"`
	IssuedAt  time.Time `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ActorFromClaims builds the actor carried by validated claims
func ActorFromClaims(claims AuthClaims) (*Actor, error) {
	if claims == nil {
		return nil, ErrUnableToDecodeSession
	}

	id := claims.UserID()
	if id == "" {
		return nil, withMeta(ErrUnableToDecodeSession, map[string]any{
			"reason": "missing subject",
		})
	}

	return &Actor{
		ID:        id,
		Email:     claims.Email(),
		Role:      claims.Role(),
		OrgID:     claims.OrganizationID(),
		TokenID:   claims.TokenID(),
		IssuedAt:  claims.IssuedAt(),
		ExpiresAt: claims.Expires(),
	}, nil
}

// UUID parses the actor id
func (a *Actor) UUID() (uuid.UUID, error) {
	return uuid.Parse(a.ID)
}

// OrgUUID parses the actor organization, uuid.Nil when absent
func (a *Actor) OrgUUID() (uuid.UUID, error) {
	if a.OrgID == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(a.OrgID)
}

// Ref returns the activity reference for the actor
func (a *Actor) Ref() ActorRef {
	if a == nil {
		return ActorRef{Type: "system"}
	}
	return ActorRef{ID: a.ID, Type: a.Role}
}

// IsAdmin reports the platform super admin role
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}
