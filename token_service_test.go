package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	auth "github.com/hireloop/portal-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenService(cfg *testConfig, clock *testClock, opts ...auth.TokenServiceOption) *auth.TokenServiceImpl {
	opts = append(opts, auth.WithTokenClock(clock.Now))
	return auth.NewTokenService(cfg, opts...)
}

func TestTokenService_RoundTrip(t *testing.T) {
	clock := newTestClock()
	ts := newTokenService(newTestConfig(), clock)

	orgID := uuid.New()
	user := newTestUser(auth.RoleClientAdmin, orgID)

	token, expiresAt, err := ts.Generate(auth.NewIdentityFromUser(user))
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, clock.Now().Add(time.Hour), expiresAt)

	claims, err := ts.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID())
	assert.Equal(t, user.ID.String(), claims.Subject())
	assert.Equal(t, user.Email, claims.Email())
	assert.Equal(t, auth.RoleClientAdmin, claims.Role())
	assert.Equal(t, orgID.String(), claims.OrganizationID())
	assert.NotEmpty(t, claims.TokenID())
	assert.True(t, claims.HasRole(auth.RoleClientAdmin))
	assert.False(t, claims.HasRole(auth.RoleAdmin))
	assert.Equal(t, clock.Now(), claims.IssuedAt())
}

func TestTokenService_PlatformUserHasNoOrganization(t *testing.T) {
	clock := newTestClock()
	ts := newTokenService(newTestConfig(), clock)

	token, _, err := ts.Generate(auth.NewIdentityFromUser(newTestUser(auth.RoleAdmin, uuid.Nil)))
	require.NoError(t, err)

	claims, err := ts.Validate(token)
	require.NoError(t, err)
	assert.Empty(t, claims.OrganizationID())
}

func TestTokenService_UniqueTokenIDs(t *testing.T) {
	clock := newTestClock()
	ts := newTokenService(newTestConfig(), clock)
	identity := auth.NewIdentityFromUser(newTestUser(auth.RoleAdmin, uuid.Nil))

	first, _, err := ts.Generate(identity)
	require.NoError(t, err)
	second, _, err := ts.Generate(identity)
	require.NoError(t, err)

	a, err := ts.Validate(first)
	require.NoError(t, err)
	b, err := ts.Validate(second)
	require.NoError(t, err)
	assert.NotEqual(t, a.TokenID(), b.TokenID())
}

func TestTokenService_Expiry(t *testing.T) {
	tests := []struct {
		name    string
		advance time.Duration
		wantErr bool
	}{
		{name: "fresh", advance: 0},
		{name: "just before an hour", advance: 59*time.Minute + 59*time.Second},
		{name: "after an hour", advance: time.Hour + time.Second, wantErr: true},
		{name: "a day later", advance: 24 * time.Hour, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newTestClock()
			ts := newTokenService(newTestConfig(), clock)

			token, _, err := ts.Generate(auth.NewIdentityFromUser(newTestUser(auth.RoleClientViewer, uuid.New())))
			require.NoError(t, err)

			clock.Advance(tt.advance)
			_, err = ts.Validate(token)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, auth.IsTokenExpiredError(err))
			assert.Equal(t, 401, auth.HTTPStatus(err))
		})
	}
}

func TestTokenService_LongTTLStillBoundByIssuance(t *testing.T) {
	clock := newTestClock()
	ts := newTokenService(newTestConfig(), clock)

	token, expiresAt, err := ts.Issue(auth.NewIdentityFromUser(newTestUser(auth.RoleAdmin, uuid.Nil)), auth.IssueOptions{
		TTL: 24 * time.Hour,
	})
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(24*time.Hour), expiresAt)

	clock.Advance(2 * time.Hour)
	_, err = ts.Validate(token)
	require.Error(t, err)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeTokenExpired))
}

func TestTokenService_IssueValidation(t *testing.T) {
	ts := newTokenService(newTestConfig(), newTestClock())

	_, _, err := ts.Generate(nil)
	assert.Error(t, err)

	_, _, err = ts.Issue(auth.NewIdentityFromUser(newTestUser(auth.RoleAdmin, uuid.Nil)), auth.IssueOptions{TTL: -time.Minute})
	assert.Error(t, err)
}

func TestTokenService_Malformed(t *testing.T) {
	ts := newTokenService(newTestConfig(), newTestClock())

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := ts.Validate(raw)
		require.Error(t, err, raw)
		assert.True(t, auth.IsMalformedError(err), raw)
		assert.Equal(t, 401, auth.HTTPStatus(err), raw)
	}
}

func TestTokenService_RejectsForeignSignature(t *testing.T) {
	clock := newTestClock()
	identity := auth.NewIdentityFromUser(newTestUser(auth.RoleAdmin, uuid.Nil))

	foreignCfg := newTestConfig()
	foreignCfg.key = "ffffffffffffffffffffffffffffffff"
	token, _, err := newTokenService(foreignCfg, clock).Generate(identity)
	require.NoError(t, err)

	_, err = newTokenService(newTestConfig(), clock).Validate(token)
	require.Error(t, err)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeTokenSignature))
}

func TestTokenService_KeyRotation(t *testing.T) {
	clock := newTestClock()
	identity := auth.NewIdentityFromUser(newTestUser(auth.RoleClientEditor, uuid.New()))

	oldCfg := newTestConfig()
	oldCfg.keyID = "k0"
	oldCfg.key = "00000000000000000000000000000000"
	oldToken, _, err := newTokenService(oldCfg, clock).Generate(identity)
	require.NoError(t, err)

	rotated := newTestConfig()
	rotated.retired = map[string]string{"k0": oldCfg.key}
	ts := newTokenService(rotated, clock)

	claims, err := ts.Validate(oldToken)
	require.NoError(t, err)
	assert.Equal(t, identity.ID(), claims.UserID())

	newToken, _, err := ts.Generate(identity)
	require.NoError(t, err)
	_, err = newTokenService(oldCfg, clock).Validate(newToken)
	assert.Error(t, err, "retired keys are not used for signing")

	_, err = newTokenService(newTestConfig(), clock).Validate(oldToken)
	require.Error(t, err)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeTokenSignature))
}

func TestTokenService_RejectsOtherIssuer(t *testing.T) {
	clock := newTestClock()
	identity := auth.NewIdentityFromUser(newTestUser(auth.RoleAdmin, uuid.Nil))

	otherCfg := newTestConfig()
	otherCfg.issuer = "someone-else"
	token, _, err := newTokenService(otherCfg, clock).Generate(identity)
	require.NoError(t, err)

	_, err = newTokenService(newTestConfig(), clock).Validate(token)
	require.Error(t, err)
	assert.Equal(t, 401, auth.HTTPStatus(err))
}

func TestTokenService_Revoke(t *testing.T) {
	clock := newTestClock()
	store := auth.NewMemoryRevocationStore()
	ts := newTokenService(newTestConfig(), clock, auth.WithRevocationStore(store))
	ctx := context.Background()

	token, _, err := ts.Generate(auth.NewIdentityFromUser(newTestUser(auth.RoleAdmin, uuid.Nil)))
	require.NoError(t, err)

	claims, err := ts.ValidateContext(ctx, token)
	require.NoError(t, err)

	require.NoError(t, ts.Revoke(ctx, claims))
	assert.Equal(t, 1, store.Len())

	_, err = ts.ValidateContext(ctx, token)
	require.Error(t, err)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeTokenRevoked))

	other, _, err := ts.Generate(auth.NewIdentityFromUser(newTestUser(auth.RoleAdmin, uuid.Nil)))
	require.NoError(t, err)
	_, err = ts.ValidateContext(ctx, other)
	assert.NoError(t, err)
}

func TestTokenService_RevokeWithoutStore(t *testing.T) {
	clock := newTestClock()
	ts := newTokenService(newTestConfig(), clock)

	token, _, err := ts.Generate(auth.NewIdentityFromUser(newTestUser(auth.RoleAdmin, uuid.Nil)))
	require.NoError(t, err)
	claims, err := ts.Validate(token)
	require.NoError(t, err)

	assert.NoError(t, ts.Revoke(context.Background(), claims))
	assert.NoError(t, ts.Revoke(context.Background(), nil))
}

func TestTokenService_DefaultTTL(t *testing.T) {
	cfg := newTestConfig()
	cfg.ttl = 0
	cfg.keyID = ""
	ts := newTokenService(cfg, newTestClock())
	assert.Equal(t, auth.DefaultTokenExpiration, ts.TTL())
}

func TestValidateWithContext(t *testing.T) {
	_, err := auth.ValidateWithContext(context.Background(), nil, "token")
	assert.Error(t, err)

	called := false
	v := auth.TokenValidatorFunc(func(token string) (auth.AuthClaims, error) {
		called = true
		return &auth.JWTClaims{UID: "u1"}, nil
	})
	claims, err := auth.ValidateWithContext(context.Background(), v, "token")
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "u1", claims.UserID())
}
