package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorages(t *testing.T) {
	stores := map[string]Storage{
		"memory": NewMemoryStorage(),
		"file":   NewFileStorage(filepath.Join(t.TempDir(), "nested", "session.json")),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			_, ok := store.Get("token")
			assert.False(t, ok)

			require.NoError(t, store.Set("token", "abc"))
			require.NoError(t, store.Set("role", "admin"))

			v, ok := store.Get("token")
			assert.True(t, ok)
			assert.Equal(t, "abc", v)

			require.NoError(t, store.Remove("token", "missing"))
			_, ok = store.Get("token")
			assert.False(t, ok)

			v, ok = store.Get("role")
			assert.True(t, ok)
			assert.Equal(t, "admin", v)
		})
	}
}

func TestFileStoragePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	require.NoError(t, NewFileStorage(path).Set("token", "abc"))

	v, ok := NewFileStorage(path).Get("token")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
