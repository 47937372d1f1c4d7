package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lobby-roster/internal/lobby"
	"github.com/DoyleJ11/lobby-roster/internal/service"
	"github.com/DoyleJ11/lobby-roster/internal/telegram"
	"github.com/DoyleJ11/lobby-roster/pkg/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, types.ServerMessage{
		Type:  types.MsgError,
		Error: &types.ErrorBody{Code: code, Message: message},
	})
}

func ListSessions(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := svc.Sessions(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
			return
		}
		out := make([]types.SessionView, len(views))
		for i, v := range views {
			out[i] = svc.SessionView(r.Context(), v)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func GetSession(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		lb, err := svc.Lobby(r.Context(), id)
		if err == nil {
			var view lobby.View
			view, err = lb.View(r.Context())
			if err == nil {
				writeJSON(w, http.StatusOK, svc.SessionView(r.Context(), view))
				return
			}
		}
		if errors.Is(err, lobby.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
	}
}

// Webhook accepts Bot API updates posted to /telegram/{secret}. It replies
// as soon as the update is queued; handling continues on ctx.
func Webhook(ctx context.Context, secret string, d Dispatcher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := chi.URLParam(r, "secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			http.NotFound(w, r)
			return
		}
		u, err := telegram.DecodeUpdate(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil {
			log.Warn("bad webhook payload", zap.Error(err))
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		d.Dispatch(ctx, u)
		w.WriteHeader(http.StatusOK)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
