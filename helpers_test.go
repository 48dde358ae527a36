package auth_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	auth "github.com/hireloop/portal-auth"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testConfig struct {
	key      string
	keyID    string
	retired  map[string]string
	ttl      time.Duration
	issuer   string
	audience []string
}

func newTestConfig() *testConfig {
	return &testConfig{
		key:      testSecret,
		keyID:    "k1",
		ttl:      time.Hour,
		issuer:   "portal-auth",
		audience: []string{"portal"},
	}
}

func (c *testConfig) GetSigningKey() string { return c.key }
func (c *testConfig) GetSigningKeyID() string { return c.keyID }
func (c *testConfig) GetRetiredSigningKeys() map[string]string { return c.retired }
func (c *testConfig) GetSigningMethod() string { return "HS256" }
func (c *testConfig) GetContextKey() string { return "user" }
func (c *testConfig) GetTokenExpiration() time.Duration { return c.ttl }
func (c *testConfig) GetTokenLookup() string { return "header:Authorization" }
func (c *testConfig) GetAuthScheme() string { return "Bearer" }
func (c *testConfig) GetIssuer() string { return c.issuer }
func (c *testConfig) GetAudience() []string { return c.audience }

type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestUser(role auth.Role, orgID uuid.UUID) *auth.User {
	return &auth.User{
		ID:     uuid.New(),
		Email:  role + "@portal.test",
		Role:   role,
		OrgID:  orgID,
		Status: auth.UserStatusActive,
	}
}

func setupRepository(t *testing.T) (auth.RepositoryManager, *bun.DB) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, auth.CreateSchema(context.Background(), db))
	return auth.NewRepositoryManager(db), db
}

func createOrg(t *testing.T, repo auth.RepositoryManager, code, name string) *auth.Organization {
	t.Helper()
	org, err := repo.Organizations().Create(context.Background(), &auth.Organization{OrgCode: code, Name: name})
	require.NoError(t, err)
	return org
}

func createUser(t *testing.T, repo auth.RepositoryManager, email, password string, role auth.Role, orgID uuid.UUID) *auth.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	user, err := repo.Users().Create(context.Background(), &auth.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		OrgID:        orgID,
		FirstName:    "Test",
		LastName:     "User",
	})
	require.NoError(t, err)
	return user
}
