package engine

import (
	"errors"
	"slices"
)

var ErrAlreadyJoined = errors.New("already joined")
var ErrForbidden = errors.New("forbidden")
var ErrFull = errors.New("observer seats full")
var ErrRoleConflict = errors.New("already joined in another role")
var ErrUnsupportedCommand = errors.New("unsupported command")

// MaxObservers caps the observer list of a single lobby.
const MaxObservers = 2

// ActorID identifies a chat user.
type ActorID int64

type Member struct {
	ID   ActorID
	Name string
}

// State is the roster of one lobby. Order of both slices is join order.
type State struct {
	Players   []Member
	Observers []Member
}

type CommandType string

const (
	CmdJoinPlayer   CommandType = "JoinPlayer"
	CmdJoinObserver CommandType = "JoinObserver"
)

type Command struct {
	Type       CommandType
	Actor      Member
	Privileged bool
}

type EventType string

const (
	EvtPlayerJoined   EventType = "PlayerJoined"
	EvtObserverJoined EventType = "ObserverJoined"
)

type Event struct {
	Type  EventType
	Actor Member
	Seat  int // 1-indexed position in the list joined
}

/*
	CmdJoinPlayer   -> EvtPlayerJoined   | ErrAlreadyJoined | ErrRoleConflict
	CmdJoinObserver -> EvtObserverJoined | ErrForbidden | ErrFull | ErrAlreadyJoined | ErrRoleConflict

	A rejected command returns the input state untouched.
*/

func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdJoinPlayer:
		next, err := AdmitPlayer(s, cmd.Actor)
		if err != nil {
			return nil, s, err
		}
		return []Event{{Type: EvtPlayerJoined, Actor: cmd.Actor, Seat: len(next.Players)}}, next, nil

	case CmdJoinObserver:
		next, err := AdmitObserver(s, cmd.Actor, cmd.Privileged)
		if err != nil {
			return nil, s, err
		}
		return []Event{{Type: EvtObserverJoined, Actor: cmd.Actor, Seat: len(next.Observers)}}, next, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// AdmitPlayer appends m to the players unless already seated anywhere.
func AdmitPlayer(s State, m Member) (State, error) {
	if IndexOf(s.Players, m.ID) >= 0 {
		return s, ErrAlreadyJoined
	}
	if IndexOf(s.Observers, m.ID) >= 0 {
		return s, ErrRoleConflict
	}

	next := s.Clone()
	next.Players = append(next.Players, m)
	return next, nil
}

// AdmitObserver is gated on privilege and capped at MaxObservers.
func AdmitObserver(s State, m Member, privileged bool) (State, error) {
	if !privileged {
		return s, ErrForbidden
	}
	if len(s.Observers) >= MaxObservers {
		return s, ErrFull
	}
	if IndexOf(s.Observers, m.ID) >= 0 {
		return s, ErrAlreadyJoined
	}
	if IndexOf(s.Players, m.ID) >= 0 {
		return s, ErrRoleConflict
	}

	next := s.Clone()
	next.Observers = append(next.Observers, m)
	return next, nil
}

// Clone returns a copy that shares no backing arrays with s.
func (s State) Clone() State {
	return State{
		Players:   slices.Clone(s.Players),
		Observers: slices.Clone(s.Observers),
	}
}
