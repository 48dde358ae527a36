package auth_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	auth "github.com/hireloop/portal-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestUsers_CreateNormalizesAndDefaults(t *testing.T) {
	repo, _ := setupRepository(t)
	acme := createOrg(t, repo, "ACME", "Acme Corp")

	user := createUser(t, repo, "  Boss@ACME.test ", "correct-horse", auth.RoleClientAdmin, acme.ID)

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "boss@acme.test", user.Email)
	assert.Equal(t, auth.UserStatusActive, user.Status)
	assert.NotNil(t, user.CreatedAt)
	require.NotNil(t, user.Organization)
	assert.Equal(t, "ACME", user.OrganizationCode())
	assert.Equal(t, "Acme Corp", user.OrganizationName())
	assert.NoError(t, auth.ComparePasswordAndHash("correct-horse", user.PasswordHash))
}

func TestUsers_CreateDuplicateEmail(t *testing.T) {
	repo, _ := setupRepository(t)
	createUser(t, repo, "root@portal.test", "correct-horse", auth.RoleAdmin, uuid.Nil)

	_, err := repo.Users().Create(context.Background(), &auth.User{
		Email:        "ROOT@portal.test",
		PasswordHash: "x",
		Role:         auth.RolePlatformViewer,
	})
	require.Error(t, err)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeUserExists))
	assert.Equal(t, 400, auth.HTTPStatus(err))
}

func TestUsers_FindByEmailCaseInsensitive(t *testing.T) {
	repo, _ := setupRepository(t)
	created := createUser(t, repo, "viewer@portal.test", "correct-horse", auth.RolePlatformViewer, uuid.Nil)

	found, err := repo.Users().FindByEmail(context.Background(), " VIEWER@Portal.Test")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.Users().FindByEmail(context.Background(), "nobody@portal.test")
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))

	_, err = repo.Users().FindByEmail(context.Background(), "")
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestUsers_Resolve(t *testing.T) {
	repo, _ := setupRepository(t)
	created := createUser(t, repo, "editor@portal.test", "correct-horse", auth.RolePlatformEditor, uuid.Nil)
	ctx := context.Background()

	byID, err := repo.Users().Resolve(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.Email, byID.Email)

	byEmail, err := repo.Users().Resolve(ctx, "editor@portal.test")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = repo.Users().Resolve(ctx, uuid.NewString())
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestUsers_ListScoped(t *testing.T) {
	repo, _ := setupRepository(t)
	acme := createOrg(t, repo, "ACME", "Acme Corp")
	globex := createOrg(t, repo, "GLOBEX", "Globex")

	createUser(t, repo, "root@portal.test", "correct-horse", auth.RoleAdmin, uuid.Nil)
	createUser(t, repo, "b@acme.test", "correct-horse", auth.RoleClientViewer, acme.ID)
	createUser(t, repo, "a@acme.test", "correct-horse", auth.RoleClientAdmin, acme.ID)
	createUser(t, repo, "c@globex.test", "correct-horse", auth.RoleClientAdmin, globex.ID)

	ctx := context.Background()

	platform, err := auth.ScopeFor(&auth.Actor{ID: "root", Role: auth.RoleAdmin})
	require.NoError(t, err)
	all, err := repo.Users().List(ctx, platform)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	client, err := auth.ScopeFor(&auth.Actor{ID: "a", Role: auth.RoleClientAdmin, OrgID: acme.ID.String()})
	require.NoError(t, err)
	scoped, err := repo.Users().List(ctx, client)
	require.NoError(t, err)
	require.Len(t, scoped, 2)
	assert.Equal(t, "a@acme.test", scoped[0].Email)
	assert.Equal(t, "b@acme.test", scoped[1].Email)
	for _, u := range scoped {
		assert.Equal(t, acme.ID, u.OrgID)
	}
}

func TestUsers_UpdateFields(t *testing.T) {
	repo, _ := setupRepository(t)
	acme := createOrg(t, repo, "ACME", "Acme Corp")
	user := createUser(t, repo, "viewer@acme.test", "correct-horse", auth.RoleClientViewer, acme.ID)
	ctx := context.Background()

	first := "Ada"
	role := auth.RoleClientEditor
	setup := true
	integrations := []string{"greenhouse"}

	updated, err := repo.Users().UpdateFields(ctx, user.ID, auth.UserPatch{
		FirstName:           &first,
		Role:                &role,
		SetupComplete:       &setup,
		AllowedIntegrations: &integrations,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", updated.FirstName)
	assert.Equal(t, "User", updated.LastName)
	assert.Equal(t, auth.RoleClientEditor, updated.Role)
	assert.True(t, updated.SetupComplete)
	assert.Equal(t, []string{"greenhouse"}, updated.AllowedIntegrations)
	assert.Equal(t, user.Email, updated.Email)

	_, err = repo.Users().UpdateFields(ctx, uuid.New(), auth.UserPatch{FirstName: &first})
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestUsers_UpdateStatusAndPassword(t *testing.T) {
	repo, _ := setupRepository(t)
	user := createUser(t, repo, "editor@portal.test", "correct-horse", auth.RolePlatformEditor, uuid.Nil)
	ctx := context.Background()

	disabled, err := repo.Users().UpdateStatus(ctx, user.ID, auth.UserStatusDisabled)
	require.NoError(t, err)
	assert.True(t, disabled.IsDisabled())

	hash, err := auth.HashPassword("battery-staple")
	require.NoError(t, err)
	require.NoError(t, repo.Users().ResetPassword(ctx, user.ID, hash))

	reloaded, err := repo.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NoError(t, auth.ComparePasswordAndHash("battery-staple", reloaded.PasswordHash))
	assert.Error(t, auth.ComparePasswordAndHash("correct-horse", reloaded.PasswordHash))

	assert.True(t, repository.IsRecordNotFound(repo.Users().ResetPassword(ctx, uuid.New(), hash)))
}

func TestUsers_TrackLogins(t *testing.T) {
	repo, _ := setupRepository(t)
	user := createUser(t, repo, "root@portal.test", "correct-horse", auth.RoleAdmin, uuid.Nil)
	ctx := context.Background()

	require.NoError(t, repo.Users().TrackAttemptedLogin(ctx, user))
	require.NoError(t, repo.Users().TrackAttemptedLogin(ctx, user))
	assert.Equal(t, 2, user.LoginAttempts)

	reloaded, err := repo.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.LoginAttempts)
	assert.NotNil(t, reloaded.LoginAttemptAt)

	require.NoError(t, repo.Users().TrackSuccessfulLogin(ctx, user))
	reloaded, err = repo.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.LoginAttempts)
	assert.Nil(t, reloaded.LoginAttemptAt)
	assert.NotNil(t, reloaded.LoggedInAt)
}

func TestOrganizations_Resolve(t *testing.T) {
	repo, _ := setupRepository(t)
	acme := createOrg(t, repo, "ACME", "Acme Corp")
	ctx := context.Background()

	byCode, err := repo.Organizations().Resolve(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, acme.ID, byCode.ID)

	byID, err := repo.Organizations().Resolve(ctx, acme.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", byID.Name)

	_, err = repo.Organizations().GetByCode(ctx, "INITECH")
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestRepositoryManager_RunInTx(t *testing.T) {
	repo, _ := setupRepository(t)
	require.NoError(t, repo.Validate())
	ctx := context.Background()

	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := repo.Users().CreateTx(ctx, tx, &auth.User{
			Email:        "tx@portal.test",
			PasswordHash: "x",
			Role:         auth.RolePlatformViewer,
		})
		return err
	})
	require.NoError(t, err)

	found, err := repo.Users().FindByEmail(ctx, "tx@portal.test")
	require.NoError(t, err)
	assert.Equal(t, auth.RolePlatformViewer, found.Role)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, repo.RunInTx(cancelled, nil, func(context.Context, bun.Tx) error { return nil }), context.Canceled)
}
