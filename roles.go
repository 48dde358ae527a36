package auth

// Role is the user's role. Exactly one per user.
type Role = string

const (
	// RoleAdmin is the platform super admin
	RoleAdmin Role = "admin"
	// RolePlatformEditor edits across tenants
	RolePlatformEditor Role = "platform_editor"
	// RolePlatformViewer reads across tenants
	RolePlatformViewer Role = "platform_viewer"
	// RoleClientAdmin administers a single organization
	RoleClientAdmin Role = "client_admin"
	// RoleClientEditor edits within a single organization
	RoleClientEditor Role = "client_editor"
	// RoleClientViewer reads within a single organization
	RoleClientViewer Role = "client_viewer"
)

// IsValidRole checks if the role is one of the predefined roles
func IsValidRole(r string) bool {
	switch r {
	case RoleAdmin, RolePlatformEditor, RolePlatformViewer,
		RoleClientAdmin, RoleClientEditor, RoleClientViewer:
		return true
	default:
		return false
	}
}

// IsClientRole reports whether the role is tenant bound
func IsClientRole(r string) bool {
	switch r {
	case RoleClientAdmin, RoleClientEditor, RoleClientViewer:
		return true
	default:
		return false
	}
}

// IsPlatformRole reports whether the role operates across tenants
func IsPlatformRole(r string) bool {
	switch r {
	case RoleAdmin, RolePlatformEditor, RolePlatformViewer:
		return true
	default:
		return false
	}
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{
		RoleAdmin,
		RolePlatformEditor,
		RolePlatformViewer,
		RoleClientAdmin,
		RoleClientEditor,
		RoleClientViewer,
	}
}

// ClientRoles returns the tenant bound roles
func ClientRoles() []Role {
	return []Role{RoleClientAdmin, RoleClientEditor, RoleClientViewer}
}

// ParseRole safely parses a string into a Role
func ParseRole(roleStr string) (Role, bool) {
	return roleStr, IsValidRole(roleStr)
}

// RoleSet is an allow-set of roles. Membership is exact, there is no
// hierarchy: admin is only included when listed.
type RoleSet map[Role]struct{}

// NewRoleSet builds a RoleSet from the given roles
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Contains checks exact membership
func (s RoleSet) Contains(role string) bool {
	_, ok := s[role]
	return ok
}

// Roles returns the members of the set in canonical order
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, len(s))
	for _, r := range GetAllRoles() {
		if s.Contains(r) {
			out = append(out, r)
		}
	}
	return out
}
