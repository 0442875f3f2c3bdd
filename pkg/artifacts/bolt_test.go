package artifacts

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "artifacts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// TestAddAndGetArtifact tests the store round trip
func TestAddAndGetArtifact(t *testing.T) {
	store := newTestStore(t)

	id, err := store.AddArtifact("resource_details", []byte(`{"volume":"tank/x"}`), map[string]string{
		"server_id": "server1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	artifact, err := store.GetArtifact(id)
	require.NoError(t, err)
	assert.Equal(t, "resource_details", artifact.Kind)
	assert.JSONEq(t, `{"volume":"tank/x"}`, string(artifact.Content))
	assert.Equal(t, "server1", artifact.Metadata["server_id"])
	assert.False(t, artifact.CreatedAt.IsZero())
}

// TestGetArtifactMissing tests the not-found path
func TestGetArtifactMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetArtifact("nope")
	assert.Error(t, err)
}

// TestListArtifacts tests enumeration
func TestListArtifacts(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		_, err := store.AddArtifact("resource_details", []byte("{}"), nil)
		require.NoError(t, err)
	}

	artifacts, err := store.ListArtifacts()
	require.NoError(t, err)
	assert.Len(t, artifacts, 3)
}

// TestUniqueArtifactIDs tests that assigned IDs never collide
func TestUniqueArtifactIDs(t *testing.T) {
	store := newTestStore(t)

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		id, err := store.AddArtifact("k", nil, nil)
		require.NoError(t, err)
		assert.False(t, seen[id])
		seen[id] = true
	}
}
