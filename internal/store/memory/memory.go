package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/DoyleJ11/lobby-roster/internal/store"
)

// Store keeps everything in process memory. It is the default backend and
// the one tests use.
type Store struct {
	mu           sync.RWMutex
	sessions     map[string]store.SessionRecord
	admins       map[int64]store.Admin
	destinations map[int64]store.Destination
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		sessions:     make(map[string]store.SessionRecord),
		admins:       make(map[int64]store.Admin),
		destinations: make(map[int64]store.Destination),
	}
}

func cloneSession(rec store.SessionRecord) store.SessionRecord {
	rec.Players = slices.Clone(rec.Players)
	rec.Observers = slices.Clone(rec.Observers)
	return rec
}

func (s *Store) SaveSession(_ context.Context, rec store.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.sessions[rec.ID]; ok && cur.Version >= rec.Version {
		return nil
	}
	s.sessions[rec.ID] = cloneSession(rec)
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (store.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[id]
	if !ok {
		return store.SessionRecord{}, store.ErrNotFound
	}
	return cloneSession(rec), nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *Store) ListSessions(_ context.Context) ([]store.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.SessionRecord, 0, len(s.sessions))
	for _, rec := range s.sessions {
		out = append(out, cloneSession(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) PutAdmin(_ context.Context, a store.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[a.ID] = a
	return nil
}

func (s *Store) GetAdmin(_ context.Context, id int64) (store.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.admins[id]
	if !ok {
		return store.Admin{}, store.ErrNotFound
	}
	return a, nil
}

func (s *Store) DeleteAdmin(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.admins, id)
	return nil
}

func (s *Store) ListAdmins(_ context.Context) ([]store.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Admin, 0, len(s.admins))
	for _, a := range s.admins {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) PutDestination(_ context.Context, d store.Destination) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destinations[d.ChatID] = d
	return nil
}

func (s *Store) DeleteDestination(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.destinations, chatID)
	return nil
}

func (s *Store) ListDestinations(_ context.Context) ([]store.Destination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Destination, 0, len(s.destinations))
	for _, d := range s.destinations {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out, nil
}

func (s *Store) Close() error { return nil }
