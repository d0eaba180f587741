package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()

	_, ok, err := s.Get(KeyCompanion)
	require.NoError(t, err)
	assert.False(t, ok, "unset key must report ok=false")

	require.NoError(t, s.Set(KeyCompanion, "astrid"))
	v, ok, err := s.Get(KeyCompanion)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "astrid", v)

	require.NoError(t, s.Set(KeyCompanion, "ivar"))
	v, _, err = s.Get(KeyCompanion)
	require.NoError(t, err)
	assert.Equal(t, "ivar", v)

	require.NoError(t, s.Set(KeySessionID, ""))
	v, ok, err = s.Get(KeySessionID)
	require.NoError(t, err)
	assert.True(t, ok, "empty string is a value, not absence")
	assert.Equal(t, "", v)

	require.NoError(t, s.Remove(KeyCompanion))
	_, ok, err = s.Get(KeyCompanion)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Remove("never-set"))
}

func TestMemoryStore(t *testing.T) {
	exerciseStorage(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "mimre.db"))
	require.NoError(t, err)
	defer s.Close()

	exerciseStorage(t, s)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mimre.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(KeySessionID, "sess-1"))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.Get(KeySessionID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sess-1", v)
}
