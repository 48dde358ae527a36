package integration

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupStore(t *testing.T) (Store, *bun.DB) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, EnsureSchema(context.Background(), db))
	return NewStore(db), db
}

func TestStoreConnectionLifecycle(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	orgID := uuid.New()

	connected, err := store.IsConnected(ctx, orgID, Greenhouse)
	require.NoError(t, err)
	assert.False(t, connected, "missing record reads as disconnected")

	require.NoError(t, store.SetConnected(ctx, orgID, Greenhouse, true))

	connected, err = store.IsConnected(ctx, orgID, Greenhouse)
	require.NoError(t, err)
	assert.True(t, connected)

	require.NoError(t, store.SetConnected(ctx, orgID, Greenhouse, false))

	connected, err = store.IsConnected(ctx, orgID, Greenhouse)
	require.NoError(t, err)
	assert.False(t, connected)
}

func TestStoreIsolatesOrganizations(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	orgA, orgB := uuid.New(), uuid.New()

	require.NoError(t, store.SetConnected(ctx, orgA, Greenhouse, true))

	connected, err := store.IsConnected(ctx, orgB, Greenhouse)
	require.NoError(t, err)
	assert.False(t, connected)

	connected, err = store.IsConnected(ctx, orgA, "lever")
	require.NoError(t, err)
	assert.False(t, connected)
}
