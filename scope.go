package auth

import (
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TenantScope restricts what an actor can see and mutate. Admin and
// platform roles are unrestricted, client roles are pinned to their
// organization.
type TenantScope struct {
	unrestricted bool
	orgID        uuid.UUID
	actorID      string
	actorRole    Role
}

// ScopeFor derives the scope of actor
func ScopeFor(actor *Actor) (TenantScope, error) {
	if actor == nil {
		return TenantScope{}, ErrUnableToFindSession
	}

	switch {
	case IsPlatformRole(actor.Role):
		return TenantScope{
			unrestricted: true,
			actorID:      actor.ID,
			actorRole:    actor.Role,
		}, nil
	case IsClientRole(actor.Role):
		orgID, err := actor.OrgUUID()
		if err != nil || orgID == uuid.Nil {
			return TenantScope{}, withMeta(ErrTenantScopeRequired, map[string]any{
				"actor_id": actor.ID,
				"role":     actor.Role,
			})
		}
		return TenantScope{
			orgID:     orgID,
			actorID:   actor.ID,
			actorRole: actor.Role,
		}, nil
	default:
		return TenantScope{}, withMeta(ErrForbidden, map[string]any{
			"actor_id": actor.ID,
			"role":     actor.Role,
		})
	}
}

// Unrestricted reports whether the scope spans every organization
func (s TenantScope) Unrestricted() bool {
	return s.unrestricted
}

// OrgID is the pinned organization, uuid.Nil when unrestricted
func (s TenantScope) OrgID() uuid.UUID {
	return s.orgID
}

// Apply narrows a user listing to the scope
func (s TenantScope) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	if s.unrestricted {
		return q
	}
	return q.Where("?TableAlias.org_id = ?", s.orgID)
}

// Allows reports whether target is visible inside the scope
func (s TenantScope) Allows(target *User) bool {
	if target == nil {
		return false
	}
	if s.unrestricted {
		return true
	}
	return s.orgID != uuid.Nil && target.OrgID == s.orgID
}

// AssertOwns must pass before any mutation of target is persisted.
// Out of scope targets are reported as not found, admin accounts can
// only be changed by an admin.
func (s TenantScope) AssertOwns(target *User) error {
	if !s.Allows(target) {
		meta := map[string]any{"actor_id": s.actorID}
		if target != nil {
			meta["target_id"] = target.ID.String()
		}
		return withMeta(ErrUserNotFound, meta)
	}

	if target.Role == RoleAdmin && s.actorRole != RoleAdmin {
		return withMeta(ErrForbidden, map[string]any{
			"actor_id":  s.actorID,
			"target_id": target.ID.String(),
			"reason":    "admin target",
		})
	}

	return nil
}

// ResolveOrg returns the organization a new or updated record must carry.
// Restricted scopes always force their own organization.
func (s TenantScope) ResolveOrg(requested uuid.UUID) uuid.UUID {
	if !s.unrestricted {
		return s.orgID
	}
	return requested
}
