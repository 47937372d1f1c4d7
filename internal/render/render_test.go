package render

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/lobby-roster/internal/engine"
	"github.com/DoyleJ11/lobby-roster/internal/lobby"
	"github.com/DoyleJ11/lobby-roster/internal/timeslot"
	"github.com/DoyleJ11/lobby-roster/pkg/types"
)

type fakeLabeler struct {
	owner   engine.ActorID
	aliases map[engine.ActorID]string
	err     error
}

func (f fakeLabeler) IsOwner(id engine.ActorID) bool { return id == f.owner }

func (f fakeLabeler) AdminAlias(_ context.Context, id engine.ActorID) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	a, ok := f.aliases[id]
	return a, ok, nil
}

func session(t *testing.T, creator engine.ActorID) lobby.Session {
	t.Helper()
	slot, err := timeslot.Parse("1930")
	require.NoError(t, err)
	return lobby.NewSession("abc", engine.Member{ID: creator, Name: "c"}, slot, time.Unix(0, 0))
}

func TestCard_EmptyLobby(t *testing.T) {
	msg := Card(DefaultTitle, session(t, 1), OwnerLabel)

	assert.Contains(t, msg.Text, "⏰ Time: 19:30")
	assert.Contains(t, msg.Text, "Lobby creator: Owner")
	assert.Contains(t, msg.Text, NoPlayers)
	assert.Contains(t, msg.Text, NoObservers)
	require.Len(t, msg.Buttons, 3)
	assert.Equal(t, types.CallbackData(types.ActionJoinPlayer, "abc"), msg.Buttons[0][0].Data)
	assert.Equal(t, types.CallbackData(types.ActionJoinObserver, "abc"), msg.Buttons[1][0].Data)
	assert.Equal(t, types.CallbackData(types.ActionStartGame, "abc"), msg.Buttons[2][0].Data)
}

func TestCard_NumbersPlayersInJoinOrderAndEscapes(t *testing.T) {
	s := session(t, 1)
	s.Roster.Players = []engine.Member{{ID: 10, Name: "Zed"}, {ID: 11, Name: "<b>Amy</b>"}}
	s.Roster.Observers = []engine.Member{{ID: 12, Name: "Obi"}}

	msg := Card(DefaultTitle, s, "x")

	zed := strings.Index(msg.Text, "1) "+Mention(s.Roster.Players[0]))
	amy := strings.Index(msg.Text, "2) "+Mention(s.Roster.Players[1]))
	assert.GreaterOrEqual(t, zed, 0)
	assert.Greater(t, amy, zed)
	assert.Contains(t, msg.Text, "&lt;b&gt;Amy&lt;/b&gt;")
	assert.Contains(t, msg.Text, ObserverMarker+" "+Mention(s.Roster.Observers[0]))
	assert.NotContains(t, msg.Text, NoPlayers)
}

func TestRender_IsIdempotent(t *testing.T) {
	r := &Renderer{Labeler: fakeLabeler{owner: 1}}
	s := session(t, 1)
	s.Roster.Players = []engine.Member{{ID: 10, Name: "Zed"}}
	snap := lobby.Snapshot{Version: 3, Session: s}

	first := r.Render(context.Background(), snap)
	second := r.Render(context.Background(), snap)
	assert.Equal(t, first, second)
}

func TestRenderer_CreatorLabel(t *testing.T) {
	ctx := context.Background()
	r := &Renderer{Labeler: fakeLabeler{owner: 1, aliases: map[engine.ActorID]string{2: "Rex"}}}

	assert.Equal(t, OwnerLabel, r.CreatorLabel(ctx, 1))
	assert.Equal(t, "Rex", r.CreatorLabel(ctx, 2))
	assert.Equal(t, AdminLabel, r.CreatorLabel(ctx, 3))

	broken := &Renderer{Labeler: fakeLabeler{owner: 1, err: errors.New("db down")}}
	assert.Equal(t, AdminLabel, broken.CreatorLabel(ctx, 2))

	assert.Equal(t, AdminLabel, (&Renderer{}).CreatorLabel(ctx, 1))
}

func TestPings(t *testing.T) {
	msg := PlayerPing([]engine.Member{{ID: 1}, {ID: 2}})
	assert.Equal(t, 2, strings.Count(msg.Text, "tg://user?id="))

	msg = AdminPing([]engine.ActorID{5})
	assert.Contains(t, msg.Text, `tg://user?id=5`)
}
