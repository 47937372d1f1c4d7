package service

import (
	"context"

	"github.com/DoyleJ11/lobby-roster/internal/engine"
	"github.com/DoyleJ11/lobby-roster/internal/lobby"
	"github.com/DoyleJ11/lobby-roster/pkg/types"
)

// SessionView is the public JSON form of v, card included.
func (s *Service) SessionView(ctx context.Context, v lobby.View) types.SessionView {
	sess := v.Session
	card := s.Render(ctx, lobby.Snapshot{Version: v.Version, Session: sess})
	return types.SessionView{
		ID:        sess.ID,
		Version:   v.Version,
		Status:    string(sess.Status),
		Time:      sess.Slot.String(),
		Creator:   types.Member{ID: int64(sess.CreatorID), Name: sess.CreatorName},
		Players:   wireMembers(sess.Roster.Players),
		Observers: wireMembers(sess.Roster.Observers),
		Card:      card.Text,
		Clients:   v.NumClients,
		CreatedAt: sess.CreatedAt,
	}
}

func wireMembers(in []engine.Member) []types.Member {
	out := make([]types.Member, len(in))
	for i, m := range in {
		out[i] = types.Member{ID: int64(m.ID), Name: m.Name}
	}
	return out
}
