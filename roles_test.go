package auth_test

import (
	"testing"

	auth "github.com/hireloop/portal-auth"
	"github.com/stretchr/testify/assert"
)

func TestRoleClassification(t *testing.T) {
	tests := []struct {
		role     string
		valid    bool
		client   bool
		platform bool
	}{
		{role: auth.RoleAdmin, valid: true, platform: true},
		{role: auth.RolePlatformEditor, valid: true, platform: true},
		{role: auth.RolePlatformViewer, valid: true, platform: true},
		{role: auth.RoleClientAdmin, valid: true, client: true},
		{role: auth.RoleClientEditor, valid: true, client: true},
		{role: auth.RoleClientViewer, valid: true, client: true},
		{role: "superuser"},
		{role: "Admin"},
		{role: ""},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			assert.Equal(t, tt.valid, auth.IsValidRole(tt.role))
			assert.Equal(t, tt.client, auth.IsClientRole(tt.role))
			assert.Equal(t, tt.platform, auth.IsPlatformRole(tt.role))

			_, ok := auth.ParseRole(tt.role)
			assert.Equal(t, tt.valid, ok)
		})
	}
}

func TestRoleSet_ExactMembership(t *testing.T) {
	set := auth.NewRoleSet(auth.RoleClientAdmin, auth.RolePlatformEditor)

	assert.True(t, set.Contains(auth.RoleClientAdmin))
	assert.True(t, set.Contains(auth.RolePlatformEditor))
	assert.False(t, set.Contains(auth.RoleAdmin), "admin is not implied")
	assert.False(t, set.Contains(auth.RoleClientEditor))
	assert.False(t, set.Contains(""))

	assert.Equal(t, []auth.Role{auth.RolePlatformEditor, auth.RoleClientAdmin}, set.Roles())
}

func TestRoleSet_Empty(t *testing.T) {
	set := auth.NewRoleSet()
	for _, role := range auth.GetAllRoles() {
		assert.False(t, set.Contains(role), role)
	}
	assert.Empty(t, set.Roles())
}

func TestClientRoles(t *testing.T) {
	for _, role := range auth.ClientRoles() {
		assert.True(t, auth.IsClientRole(role))
	}
	assert.Len(t, auth.GetAllRoles(), 6)
}
