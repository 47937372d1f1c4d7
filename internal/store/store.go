// Package store defines the key-value persistence contract for sessions,
// admins and broadcast destinations. Backends live in subpackages.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("record not found")

type Member struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SessionRecord is the persisted form of one lobby session.
type SessionRecord struct {
	ID          string
	Version     int
	CreatorID   int64
	CreatorName string
	Slot        string // HHMM
	Players     []Member
	Observers   []Member
	ChatID      int64 // 0 when no announcement is attached
	MessageID   int64
	Status      string
	CreatedAt   time.Time
}

type Admin struct {
	ID      int64
	Alias   string
	AddedAt time.Time
}

type DestinationKind string

const (
	KindChannel DestinationKind = "channel"
	KindGroup   DestinationKind = "group"
)

type Destination struct {
	ChatID  int64
	Kind    DestinationKind
	Title   string
	AddedAt time.Time
}

type Sessions interface {
	// SaveSession upserts rec unless a record with the same id and an equal
	// or higher version is already stored.
	SaveSession(ctx context.Context, rec SessionRecord) error
	GetSession(ctx context.Context, id string) (SessionRecord, error)
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context) ([]SessionRecord, error)
}

type Admins interface {
	PutAdmin(ctx context.Context, a Admin) error
	GetAdmin(ctx context.Context, id int64) (Admin, error)
	DeleteAdmin(ctx context.Context, id int64) error
	ListAdmins(ctx context.Context) ([]Admin, error)
}

type Destinations interface {
	PutDestination(ctx context.Context, d Destination) error
	DeleteDestination(ctx context.Context, chatID int64) error
	ListDestinations(ctx context.Context) ([]Destination, error)
}

type Store interface {
	Sessions
	Admins
	Destinations
	Close() error
}
