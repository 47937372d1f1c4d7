package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/lobby-roster/internal/engine"
	"github.com/DoyleJ11/lobby-roster/internal/notify/notifytest"
	"github.com/DoyleJ11/lobby-roster/internal/service"
	"github.com/DoyleJ11/lobby-roster/internal/store"
	"github.com/DoyleJ11/lobby-roster/internal/store/memory"
	"github.com/DoyleJ11/lobby-roster/internal/telegram"
	"github.com/DoyleJ11/lobby-roster/pkg/types"
)

type dispatchRecorder struct {
	mu      sync.Mutex
	updates []telegram.Update
}

func (d *dispatchRecorder) Dispatch(_ context.Context, u telegram.Update) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updates = append(d.updates, u)
}

func newTestServer(t *testing.T) (*httptest.Server, *service.Service, *dispatchRecorder) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	st := memory.New()
	require.NoError(t, st.PutDestination(ctx, store.Destination{ChatID: -100, Kind: store.KindChannel}))
	svc := service.New(ctx, st, &notifytest.Recorder{}, service.Options{Owner: 1})

	d := &dispatchRecorder{}
	srv := httptest.NewServer(SetupRoutes(svc, Options{WebhookSecret: "s3cret", Dispatcher: d, BaseContext: ctx}))
	t.Cleanup(srv.Close)
	return srv, svc, d
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessions_ListAndGet(t *testing.T) {
	ctx := context.Background()
	srv, svc, _ := newTestServer(t)

	snap, err := svc.CreateSession(ctx, engine.Member{ID: 1, Name: "Boss"}, "1930")
	require.NoError(t, err)
	_, err = svc.JoinAsPlayer(ctx, snap.Session.ID, engine.Member{ID: 7, Name: "Sattler"})
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/sessions")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []types.SessionView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, snap.Session.ID, list[0].ID)
	assert.Equal(t, "19:30", list[0].Time)
	assert.Equal(t, []types.Member{{ID: 7, Name: "Sattler"}}, list[0].Players)
	assert.Contains(t, list[0].Card, "Sattler")

	resp2, err := http.Get(srv.URL + "/sessions/" + snap.Session.ID)
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var one types.SessionView
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&one))
	assert.Equal(t, 2, one.Version)
	assert.Equal(t, "open", one.Status)
}

func TestSessions_GetMissing(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/sessions/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var msg types.ServerMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	assert.Equal(t, types.MsgError, msg.Type)
	assert.Equal(t, "not_found", msg.Error.Code)
}

func TestWebhook(t *testing.T) {
	srv, _, d := newTestServer(t)
	body := `{"update_id":9,"message":{"message_id":1,"chat":{"id":5,"type":"private"},"text":"/list"}}`

	resp, err := http.Post(srv.URL+"/telegram/wrong", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/telegram/s3cret", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/telegram/s3cret", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	d.mu.Lock()
	defer d.mu.Unlock()
	require.Len(t, d.updates, 1)
	assert.Equal(t, int64(9), d.updates[0].UpdateID)
	assert.Equal(t, "/list", d.updates[0].Message.Text)
}

func TestWebhook_NotMountedWithoutSecret(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := service.New(ctx, memory.New(), &notifytest.Recorder{}, service.Options{Owner: 1})
	srv := httptest.NewServer(SetupRoutes(svc, Options{Dispatcher: &dispatchRecorder{}}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/telegram/", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
