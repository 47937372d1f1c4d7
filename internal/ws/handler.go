// Package ws streams a session's rendered card to websocket clients, one
// message per committed version.
package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lobby-roster/internal/lobby"
	"github.com/DoyleJ11/lobby-roster/internal/service"
	"github.com/DoyleJ11/lobby-roster/pkg/types"
)

const writeTimeout = 3 * time.Second

func Handler(svc *service.Service, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}

		lb, err := svc.Lobby(r.Context(), id)
		if errors.Is(err, lobby.ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		// Clients only listen; CloseRead handles pings and the close frame.
		ctx := conn.CloseRead(r.Context())

		out := make(chan lobby.Snapshot, 8)
		clientID := uuid.NewString()
		if err := lb.Watch(ctx, clientID, out); err != nil {
			_ = write(ctx, conn, types.ServerMessage{Type: types.MsgClosed})
			conn.Close(websocket.StatusNormalClosure, "session closed")
			return
		}
		defer lb.Unwatch(clientID)

		for {
			select {
			case snap, ok := <-out:
				if !ok {
					select {
					case <-lb.Done():
						conn.Close(websocket.StatusGoingAway, "server stopping")
					default:
						// Dropped for falling behind.
						conn.Close(websocket.StatusTryAgainLater, "too slow")
					}
					return
				}

				view := svc.SessionView(ctx, lobby.View{Version: snap.Version, Session: snap.Session})
				msg := types.ServerMessage{Type: types.MsgCardSnapshot, Version: snap.Version, Session: &view}
				closed := snap.Session.Status == lobby.StatusClosed
				if closed {
					msg.Type = types.MsgClosed
				}
				if err := write(ctx, conn, msg); err != nil {
					log.Debug("write snapshot", zap.String("session", id), zap.Error(err))
					return
				}
				if closed {
					conn.Close(websocket.StatusNormalClosure, "session closed")
					return
				}

			case <-ctx.Done():
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
