package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/lobby-roster/internal/store"
	"github.com/DoyleJ11/lobby-roster/internal/store/storetest"
)

func TestStore(t *testing.T) {
	dsn := os.Getenv("LOBBY_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("LOBBY_TEST_DATABASE_URL not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(dsn)
		require.NoError(t, err)
		require.NoError(t, s.reset(context.Background()))
		return s
	})
}
