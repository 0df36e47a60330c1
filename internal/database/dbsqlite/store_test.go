package dbsqlite

import (
	"path/filepath"
	"testing"

	"github.com/setavenger/blindbit-tweaks/internal/database"
	"github.com/setavenger/blindbit-tweaks/internal/database/dbtest"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	dbtest.Run(t, func(t *testing.T) database.DB {
		s, err := Open(filepath.Join(t.TempDir(), "data", "tweaks.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestReopenKeepsBlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tweaks.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.InsertBlock(t.Context(), blockAt(5), nil))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	height, ok, err := s.HighestBlockHeight(t.Context())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(5), height)
}
