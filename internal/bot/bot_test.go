package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/lobby-roster/internal/notify/notifytest"
	"github.com/DoyleJ11/lobby-roster/internal/sequencer"
	"github.com/DoyleJ11/lobby-roster/internal/service"
	"github.com/DoyleJ11/lobby-roster/internal/store"
	"github.com/DoyleJ11/lobby-roster/internal/store/memory"
	"github.com/DoyleJ11/lobby-roster/internal/telegram"
	"github.com/DoyleJ11/lobby-roster/pkg/types"
)

const (
	ownerID   = 1
	adminID   = 2
	playerID  = 100
	channelID = -100
	groupID   = -200
)

type answer struct {
	ID    string
	Text  string
	Alert bool
}

type fakeAPI struct {
	*notifytest.Recorder

	mu      sync.Mutex
	answers []answer
}

func (f *fakeAPI) AnswerCallback(_ context.Context, id, text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, answer{id, text, alert})
	return nil
}

func (f *fakeAPI) Answers() []answer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]answer(nil), f.answers...)
}

// lastText is the newest message sent to chat.
func (f *fakeAPI) lastText(chat int64) string {
	sends := f.Filter(notifytest.OpSend, chat)
	if len(sends) == 0 {
		return ""
	}
	return sends[len(sends)-1].Message.Text
}

func newTestBot(t *testing.T) (*Bot, *fakeAPI, *memory.Store) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	st := memory.New()
	require.NoError(t, st.PutAdmin(ctx, store.Admin{ID: adminID, Alias: "Rex"}))
	require.NoError(t, st.PutDestination(ctx, store.Destination{ChatID: channelID, Kind: store.KindChannel, Title: "News"}))
	require.NoError(t, st.PutDestination(ctx, store.Destination{ChatID: groupID, Kind: store.KindGroup, Title: "Players"}))

	api := &fakeAPI{Recorder: &notifytest.Recorder{}}
	svc := service.New(ctx, st, api, service.Options{
		Owner:     ownerID,
		Sequencer: sequencer.Options{Attempts: 1, Backoff: time.Millisecond},
	})
	return New(svc, api, nil), api, st
}

func privateText(from int64, text string) telegram.Update {
	return telegram.Update{Message: &telegram.Message{
		From: &telegram.User{ID: from, FirstName: "U"},
		Chat: telegram.Chat{ID: from, Type: telegram.ChatPrivate},
		Text: text,
	}}
}

func press(from int64, id string, action types.Action) telegram.Update {
	return telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:   "cb",
		From: telegram.User{ID: from, FirstName: "Player"},
		Data: types.CallbackData(action, id),
	}}
}

// createLobby runs the /list flow and returns the new session id.
func createLobby(t *testing.T, b *Bot, api *fakeAPI) string {
	t.Helper()
	ctx := context.Background()
	b.Handle(ctx, privateText(adminID, "/list"))
	require.Equal(t, promptText, api.lastText(adminID))

	b.Handle(ctx, privateText(adminID, "1930"))
	require.Equal(t, createdText("19:30"), api.lastText(adminID))

	cards := api.Filter(notifytest.OpSend, channelID)
	require.Len(t, cards, 1)
	action, id, ok := types.ParseCallbackData(cards[0].Message.Buttons[0][0].Data)
	require.True(t, ok)
	require.Equal(t, types.ActionJoinPlayer, action)
	return id
}

func TestBot_ListFlowCreatesLobby(t *testing.T) {
	b, api, _ := newTestBot(t)
	createLobby(t, b, api)
}

func TestBot_ListRejectsNonAdmin(t *testing.T) {
	b, api, _ := newTestBot(t)
	b.Handle(context.Background(), privateText(playerID, "/list"))
	assert.Equal(t, errorText(service.KindForbidden), api.lastText(playerID))

	// Without a prompt plain text is ignored.
	b.Handle(context.Background(), privateText(playerID, "1930"))
	assert.Len(t, api.Filter(notifytest.OpSend, playerID), 1)
}

func TestBot_InvalidTimeKeepsPrompt(t *testing.T) {
	ctx := context.Background()
	b, api, _ := newTestBot(t)

	b.Handle(ctx, privateText(adminID, "/list"))
	b.Handle(ctx, privateText(adminID, "19:30"))
	assert.Equal(t, errorText(service.KindValidation), api.lastText(adminID))

	b.Handle(ctx, privateText(adminID, "/cancel"))
	assert.Equal(t, cancelledText, api.lastText(adminID))
	b.Handle(ctx, privateText(adminID, "/cancel"))
	assert.Equal(t, nothingText, api.lastText(adminID))
}

func TestBot_JoinCallbacks(t *testing.T) {
	ctx := context.Background()
	b, api, _ := newTestBot(t)
	id := createLobby(t, b, api)

	b.Handle(ctx, press(playerID, id, types.ActionJoinPlayer))
	b.Handle(ctx, press(playerID, id, types.ActionJoinPlayer))
	b.Handle(ctx, press(playerID, id, types.ActionJoinObserver))
	b.Handle(ctx, press(adminID, id, types.ActionJoinObserver))

	got := api.Answers()
	require.Len(t, got, 4)
	assert.Equal(t, joinedPlayerText(1), got[0].Text)
	assert.Equal(t, errorText(service.KindAlreadyJoined), got[1].Text)
	assert.Equal(t, errorText(service.KindForbidden), got[2].Text)
	assert.Equal(t, joinedObserverText(1), got[3].Text)
}

func TestBot_StartCallback(t *testing.T) {
	ctx := context.Background()
	b, api, _ := newTestBot(t)
	id := createLobby(t, b, api)
	b.Handle(ctx, press(playerID, id, types.ActionJoinPlayer))

	b.Handle(ctx, press(playerID, id, types.ActionStartGame))
	b.Handle(ctx, press(adminID, id, types.ActionStartGame))
	b.Handle(ctx, press(adminID, id, types.ActionStartGame))

	got := api.Answers()
	require.Len(t, got, 4)
	assert.Equal(t, errorText(service.KindForbidden), got[1].Text)
	assert.Equal(t, startingText, got[2].Text)
	assert.Equal(t, errorText(service.KindNotFound), got[3].Text)

	pings := api.Filter(notifytest.OpSend, groupID)
	assert.NotEmpty(t, pings)
	assert.Len(t, api.Filter(notifytest.OpDelete, channelID), 1)
}

func TestBot_StartAnsweredBeforeFanOut(t *testing.T) {
	ctx := context.Background()
	b, api, _ := newTestBot(t)
	id := createLobby(t, b, api)

	var (
		mu       sync.Mutex
		answered []bool
	)
	api.Fail = func(c notifytest.Call) error {
		if c.Op == notifytest.OpSend && c.ChatID == groupID {
			got := api.Answers()
			mu.Lock()
			answered = append(answered, len(got) > 0 && got[len(got)-1].Text == startingText)
			mu.Unlock()
		}
		return nil
	}

	b.Handle(ctx, press(adminID, id, types.ActionStartGame))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, answered)
	for _, ok := range answered {
		assert.True(t, ok, "ping sent before the press was answered")
	}
}

func TestBot_DispatchRunsConcurrently(t *testing.T) {
	ctx := context.Background()
	b, api, _ := newTestBot(t)
	id := createLobby(t, b, api)

	for i := 0; i < 20; i++ {
		b.Dispatch(ctx, press(int64(1000+i), id, types.ActionJoinPlayer))
	}
	b.Wait()

	answers := api.Answers()
	require.Len(t, answers, 20)
	seats := map[string]bool{}
	for _, a := range answers {
		seats[a.Text] = true
	}
	assert.Len(t, seats, 20, "every player gets a distinct seat")
}

func TestBot_MembershipRegistersDestination(t *testing.T) {
	ctx := context.Background()
	b, api, st := newTestBot(t)

	join := telegram.Update{MyChatMember: &telegram.ChatMemberUpdated{
		Chat:          telegram.Chat{ID: -300, Type: telegram.ChatSupergroup, Title: "Lounge"},
		OldChatMember: telegram.ChatMember{Status: telegram.MemberLeft},
		NewChatMember: telegram.ChatMember{Status: telegram.MemberMember},
	}}
	b.Handle(ctx, join)

	dests, err := st.ListDestinations(ctx)
	require.NoError(t, err)
	require.Len(t, dests, 3)
	assert.Equal(t, store.KindGroup, dests[0].Kind)
	assert.Contains(t, api.lastText(ownerID), "Lounge")

	leave := *join.MyChatMember
	leave.OldChatMember, leave.NewChatMember = leave.NewChatMember, telegram.ChatMember{Status: telegram.MemberKicked}
	b.Handle(ctx, telegram.Update{MyChatMember: &leave})

	dests, err = st.ListDestinations(ctx)
	require.NoError(t, err)
	assert.Len(t, dests, 2)
	assert.True(t, strings.HasPrefix(api.lastText(ownerID), "Removed from"))
}

func TestBot_AdminCommands(t *testing.T) {
	ctx := context.Background()
	b, api, _ := newTestBot(t)

	b.Handle(ctx, privateText(adminID, "/addadmin 5 Ian"))
	assert.Equal(t, errorText(service.KindForbidden), api.lastText(adminID))

	b.Handle(ctx, privateText(ownerID, "/addadmin five"))
	assert.Equal(t, usageAddAdmin, api.lastText(ownerID))

	b.Handle(ctx, privateText(ownerID, "/addadmin@lobbybot 5 Ian Malcolm"))
	assert.Equal(t, "Admin 5 added.", api.lastText(ownerID))

	b.Handle(ctx, privateText(ownerID, "/admins"))
	assert.Contains(t, api.lastText(ownerID), "Ian Malcolm")

	b.Handle(ctx, privateText(ownerID, "/deladmin 5"))
	assert.Equal(t, "Admin 5 removed.", api.lastText(ownerID))
}

func TestBot_Menu(t *testing.T) {
	ctx := context.Background()
	b, api, _ := newTestBot(t)

	b.Handle(ctx, privateText(playerID, "/menu"))
	assert.Equal(t, notAllowedText, api.lastText(playerID))

	b.Handle(ctx, privateText(adminID, "/start"))
	text := api.lastText(adminID)
	assert.Contains(t, text, "News")
	assert.Contains(t, text, "Players")
	assert.NotContains(t, text, "Admins")

	b.Handle(ctx, privateText(ownerID, "/menu"))
	assert.Contains(t, api.lastText(ownerID), "Rex")
}

func TestBot_IgnoresGroupMessages(t *testing.T) {
	b, api, _ := newTestBot(t)
	u := privateText(adminID, "/list")
	u.Message.Chat = telegram.Chat{ID: groupID, Type: telegram.ChatGroup}
	b.Handle(context.Background(), u)
	assert.Empty(t, api.Calls())
}

func TestCommand(t *testing.T) {
	tests := []struct {
		in   string
		name string
		args int
		ok   bool
	}{
		{"/list", "list", 0, true},
		{"/AddAdmin@bot 5 x", "addadmin", 2, true},
		{"1930", "", 0, false},
		{"", "", 0, false},
	}
	for _, tt := range tests {
		name, args, ok := command(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.name, name, tt.in)
		assert.Len(t, args, tt.args, tt.in)
	}
}
