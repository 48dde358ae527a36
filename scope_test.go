package auth_test

import (
	"testing"

	"github.com/google/uuid"
	auth "github.com/hireloop/portal-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeFor(t *testing.T) {
	orgID := uuid.New()

	tests := []struct {
		name         string
		actor        *auth.Actor
		unrestricted bool
		orgID        uuid.UUID
		wantCode     string
		wantStatus   int
	}{
		{
			name:         "admin",
			actor:        &auth.Actor{ID: "a1", Role: auth.RoleAdmin},
			unrestricted: true,
		},
		{
			name:         "platform viewer ignores org",
			actor:        &auth.Actor{ID: "a2", Role: auth.RolePlatformViewer, OrgID: orgID.String()},
			unrestricted: true,
		},
		{
			name:  "client admin pinned",
			actor: &auth.Actor{ID: "c1", Role: auth.RoleClientAdmin, OrgID: orgID.String()},
			orgID: orgID,
		},
		{
			name:       "client without org",
			actor:      &auth.Actor{ID: "c2", Role: auth.RoleClientViewer},
			wantCode:   auth.TextCodeTenantRequired,
			wantStatus: 403,
		},
		{
			name:       "client with garbage org",
			actor:      &auth.Actor{ID: "c3", Role: auth.RoleClientEditor, OrgID: "acme"},
			wantCode:   auth.TextCodeTenantRequired,
			wantStatus: 403,
		},
		{
			name:       "unknown role",
			actor:      &auth.Actor{ID: "x1", Role: "root"},
			wantCode:   auth.TextCodeForbidden,
			wantStatus: 403,
		},
		{
			name:       "no actor",
			wantCode:   auth.TextCodeSessionNotFound,
			wantStatus: 401,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := auth.ScopeFor(tt.actor)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, auth.HasTextCode(err, tt.wantCode))
				assert.Equal(t, tt.wantStatus, auth.HTTPStatus(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.unrestricted, scope.Unrestricted())
			assert.Equal(t, tt.orgID, scope.OrgID())
		})
	}
}

func TestTenantScope_AssertOwns(t *testing.T) {
	acme := uuid.New()
	globex := uuid.New()

	admin := &auth.Actor{ID: "root", Role: auth.RoleAdmin}
	editor := &auth.Actor{ID: "editor", Role: auth.RolePlatformEditor}
	boss := &auth.Actor{ID: "boss", Role: auth.RoleClientAdmin, OrgID: acme.String()}

	acmeViewer := newTestUser(auth.RoleClientViewer, acme)
	globexViewer := newTestUser(auth.RoleClientViewer, globex)
	platformAdmin := newTestUser(auth.RoleAdmin, uuid.Nil)

	tests := []struct {
		name     string
		actor    *auth.Actor
		target   *auth.User
		wantCode string
	}{
		{name: "admin owns everyone", actor: admin, target: globexViewer},
		{name: "admin owns admin", actor: admin, target: platformAdmin},
		{name: "editor owns client", actor: editor, target: acmeViewer},
		{name: "editor cannot touch admin", actor: editor, target: platformAdmin, wantCode: auth.TextCodeForbidden},
		{name: "client owns own tenant", actor: boss, target: acmeViewer},
		{name: "client cross tenant hidden", actor: boss, target: globexViewer, wantCode: auth.TextCodeUserNotFound},
		{name: "client cannot see admin", actor: boss, target: platformAdmin, wantCode: auth.TextCodeUserNotFound},
		{name: "nil target", actor: admin, target: nil, wantCode: auth.TextCodeUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := auth.ScopeFor(tt.actor)
			require.NoError(t, err)

			err = scope.AssertOwns(tt.target)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				assert.True(t, scope.Allows(tt.target))
				return
			}
			require.Error(t, err)
			assert.True(t, auth.HasTextCode(err, tt.wantCode))
		})
	}
}

func TestTenantScope_ResolveOrg(t *testing.T) {
	acme := uuid.New()
	requested := uuid.New()

	client, err := auth.ScopeFor(&auth.Actor{ID: "boss", Role: auth.RoleClientAdmin, OrgID: acme.String()})
	require.NoError(t, err)
	assert.Equal(t, acme, client.ResolveOrg(requested))
	assert.Equal(t, acme, client.ResolveOrg(uuid.Nil))

	platform, err := auth.ScopeFor(&auth.Actor{ID: "root", Role: auth.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, requested, platform.ResolveOrg(requested))
}
