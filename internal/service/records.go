package service

import (
	"fmt"

	"github.com/DoyleJ11/lobby-roster/internal/engine"
	"github.com/DoyleJ11/lobby-roster/internal/lobby"
	"github.com/DoyleJ11/lobby-roster/internal/store"
	"github.com/DoyleJ11/lobby-roster/internal/timeslot"
)

func toRecord(snap lobby.Snapshot) store.SessionRecord {
	s := snap.Session
	rec := store.SessionRecord{
		ID:          s.ID,
		Version:     snap.Version,
		CreatorID:   int64(s.CreatorID),
		CreatorName: s.CreatorName,
		Slot:        s.Slot.Token(),
		Players:     toMembers(s.Roster.Players),
		Observers:   toMembers(s.Roster.Observers),
		Status:      string(s.Status),
		CreatedAt:   s.CreatedAt,
	}
	if s.Announcement != nil {
		rec.ChatID = s.Announcement.ChatID
		rec.MessageID = s.Announcement.MessageID
	}
	return rec
}

func fromRecord(rec store.SessionRecord) (lobby.Snapshot, error) {
	slot, err := timeslot.Parse(rec.Slot)
	if err != nil {
		return lobby.Snapshot{}, fmt.Errorf("session %s: %w", rec.ID, err)
	}
	s := lobby.Session{
		ID:          rec.ID,
		CreatorID:   engine.ActorID(rec.CreatorID),
		CreatorName: rec.CreatorName,
		Slot:        slot,
		Roster: engine.State{
			Players:   fromMembers(rec.Players),
			Observers: fromMembers(rec.Observers),
		},
		Status:    lobby.Status(rec.Status),
		CreatedAt: rec.CreatedAt,
	}
	if rec.MessageID != 0 {
		s.Announcement = &lobby.Announcement{ChatID: rec.ChatID, MessageID: rec.MessageID}
	}
	return lobby.Snapshot{Version: rec.Version, Session: s}, nil
}

func toMembers(in []engine.Member) []store.Member {
	out := make([]store.Member, len(in))
	for i, m := range in {
		out[i] = store.Member{ID: int64(m.ID), Name: m.Name}
	}
	return out
}

func fromMembers(in []store.Member) []engine.Member {
	out := make([]engine.Member, len(in))
	for i, m := range in {
		out[i] = engine.Member{ID: engine.ActorID(m.ID), Name: m.Name}
	}
	return out
}
