// Package storetest holds the behaviour every store backend must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/lobby-roster/internal/store"
)

// Run exercises a backend. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("sessions", func(t *testing.T) { testSessions(t, newStore(t)) })
	t.Run("stale versions ignored", func(t *testing.T) { testStaleVersion(t, newStore(t)) })
	t.Run("admins", func(t *testing.T) { testAdmins(t, newStore(t)) })
	t.Run("destinations", func(t *testing.T) { testDestinations(t, newStore(t)) })
}

func sampleSession(id string, version int) store.SessionRecord {
	return store.SessionRecord{
		ID:          id,
		Version:     version,
		CreatorID:   42,
		CreatorName: "Owner",
		Slot:        "1930",
		Players:     []store.Member{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}},
		Observers:   []store.Member{{ID: 3, Name: "C"}},
		ChatID:      -100,
		MessageID:   7,
		Status:      "open",
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func testSessions(t *testing.T, s store.Store) {
	ctx := context.Background()
	defer s.Close()

	_, err := s.GetSession(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	rec := sampleSession("a", 1)
	require.NoError(t, s.SaveSession(ctx, rec))

	got, err := s.GetSession(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, rec.Players, got.Players)
	assert.Equal(t, rec.Observers, got.Observers)
	assert.Equal(t, rec.Slot, got.Slot)
	assert.Equal(t, rec.ChatID, got.ChatID)
	assert.Equal(t, rec.MessageID, got.MessageID)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, s.SaveSession(ctx, sampleSession("b", 1)))
	all, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.DeleteSession(ctx, "a"))
	require.NoError(t, s.DeleteSession(ctx, "a"))
	_, err = s.GetSession(ctx, "a")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testStaleVersion(t *testing.T, s store.Store) {
	ctx := context.Background()
	defer s.Close()

	newer := sampleSession("a", 3)
	newer.Players = append(newer.Players, store.Member{ID: 9, Name: "Z"})
	require.NoError(t, s.SaveSession(ctx, newer))

	require.NoError(t, s.SaveSession(ctx, sampleSession("a", 2)))

	got, err := s.GetSession(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Version)
	assert.Len(t, got.Players, 3)
}

func testAdmins(t *testing.T, s store.Store) {
	ctx := context.Background()
	defer s.Close()

	require.NoError(t, s.PutAdmin(ctx, store.Admin{ID: 5, Alias: "five", AddedAt: time.Now().UTC()}))
	require.NoError(t, s.PutAdmin(ctx, store.Admin{ID: 4, Alias: "four", AddedAt: time.Now().UTC()}))
	require.NoError(t, s.PutAdmin(ctx, store.Admin{ID: 5, Alias: "V", AddedAt: time.Now().UTC()}))

	a, err := s.GetAdmin(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "V", a.Alias)

	all, err := s.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(4), all[0].ID)

	require.NoError(t, s.DeleteAdmin(ctx, 5))
	_, err = s.GetAdmin(ctx, 5)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testDestinations(t *testing.T, s store.Store) {
	ctx := context.Background()
	defer s.Close()

	require.NoError(t, s.PutDestination(ctx, store.Destination{ChatID: -2, Kind: store.KindGroup, Title: "g"}))
	require.NoError(t, s.PutDestination(ctx, store.Destination{ChatID: -1, Kind: store.KindChannel, Title: "c"}))

	all, err := s.ListDestinations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(-2), all[0].ChatID)
	assert.Equal(t, store.KindGroup, all[0].Kind)

	require.NoError(t, s.DeleteDestination(ctx, -2))
	all, err = s.ListDestinations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
