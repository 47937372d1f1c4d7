package service

import (
	"errors"

	"github.com/DoyleJ11/lobby-roster/internal/directory"
	"github.com/DoyleJ11/lobby-roster/internal/engine"
	"github.com/DoyleJ11/lobby-roster/internal/lobby"
	"github.com/DoyleJ11/lobby-roster/internal/timeslot"
)

var ErrNoDestinations = errors.New("no broadcast destination registered")
var ErrCollaborator = errors.New("collaborator failure")

// Kind is the user-facing class of an error.
type Kind int

const (
	KindNone Kind = iota
	KindValidation
	KindNotFound
	KindNotOpen
	KindAlreadyJoined
	KindForbidden
	KindFull
	KindConflict
	KindCollaborator
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindNotOpen:
		return "not_open"
	case KindAlreadyJoined:
		return "already_joined"
	case KindForbidden:
		return "forbidden"
	case KindFull:
		return "full"
	case KindConflict:
		return "conflict"
	default:
		return "collaborator"
	}
}

// Classify maps any error returned by Service onto a Kind. Unknown errors
// are collaborator failures.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, timeslot.ErrInvalid), errors.Is(err, directory.ErrOwner):
		return KindValidation
	case errors.Is(err, lobby.ErrNotFound):
		return KindNotFound
	case errors.Is(err, lobby.ErrNotOpen), errors.Is(err, lobby.ErrAlreadyClosing):
		return KindNotOpen
	case errors.Is(err, engine.ErrAlreadyJoined):
		return KindAlreadyJoined
	case errors.Is(err, engine.ErrForbidden):
		return KindForbidden
	case errors.Is(err, engine.ErrFull):
		return KindFull
	case errors.Is(err, engine.ErrRoleConflict):
		return KindConflict
	default:
		return KindCollaborator
	}
}
