package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/lobby-roster/internal/store"
	"github.com/DoyleJ11/lobby-roster/internal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(filepath.Join(t.TempDir(), "lobby.db"))
		require.NoError(t, err)
		return s
	})
}

func TestOpen_IsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lobby.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestUpSection(t *testing.T) {
	got := upSection("-- +migrate Up\nCREATE TABLE x (id INTEGER);\n-- +migrate Down\nDROP TABLE x;")
	assert.Equal(t, "\nCREATE TABLE x (id INTEGER);\n", got)
	assert.Equal(t, "SELECT 1;", upSection("SELECT 1;"))
}
