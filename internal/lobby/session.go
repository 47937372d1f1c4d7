package lobby

import (
	"errors"
	"time"

	"github.com/DoyleJ11/lobby-roster/internal/engine"
	"github.com/DoyleJ11/lobby-roster/internal/timeslot"
)

var ErrNotFound = errors.New("session not found")
var ErrNotOpen = errors.New("session not open")
var ErrAlreadyClosing = errors.New("session already starting")

type Status string

const (
	StatusOpen    Status = "open"
	StatusClosing Status = "closing"
	StatusClosed  Status = "closed"
)

// Announcement locates the live card of a session.
type Announcement struct {
	ChatID    int64
	MessageID int64
}

type Session struct {
	ID           string
	CreatorID    engine.ActorID
	CreatorName  string
	Slot         timeslot.Slot
	Roster       engine.State
	Announcement *Announcement
	Status       Status
	CreatedAt    time.Time
}

// Clone deep-copies the session so it can leave the actor goroutine.
func (s Session) Clone() Session {
	out := s
	out.Roster = s.Roster.Clone()
	if s.Announcement != nil {
		a := *s.Announcement
		out.Announcement = &a
	}
	return out
}

// NewSession builds an Open session with an empty roster.
func NewSession(id string, creator engine.Member, slot timeslot.Slot, now time.Time) Session {
	return Session{
		ID:          id,
		CreatorID:   creator.ID,
		CreatorName: creator.Name,
		Slot:        slot,
		Roster:      engine.NewEmptyState(),
		Status:      StatusOpen,
		CreatedAt:   now,
	}
}

// Export fields
type Snapshot struct {
	Version int
	Session Session
}

type View struct {
	Version    int
	NumClients int
	Session    Session
}

// Result is the reply to Mutate, Attach and BeginClose. On rejection
// Snapshot holds the unchanged, previously committed state.
type Result struct {
	Snapshot Snapshot
	Events   []engine.Event
	Err      error
}
