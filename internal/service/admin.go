package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/lobby-roster/internal/engine"
	"github.com/DoyleJ11/lobby-roster/internal/lobby"
	"github.com/DoyleJ11/lobby-roster/internal/pending"
	"github.com/DoyleJ11/lobby-roster/internal/store"
	"github.com/DoyleJ11/lobby-roster/internal/timeslot"
)

func (s *Service) requireOwner(by engine.ActorID) error {
	if !s.roles.IsOwner(by) {
		return engine.ErrForbidden
	}
	return nil
}

func (s *Service) AddAdmin(ctx context.Context, by, id engine.ActorID, alias string) error {
	if err := s.requireOwner(by); err != nil {
		return err
	}
	if err := s.roles.AddAdmin(ctx, id, alias); err != nil {
		return err
	}
	s.log.Info("admin added", zap.Int64("admin", int64(id)), zap.String("alias", alias))
	return nil
}

func (s *Service) RemoveAdmin(ctx context.Context, by, id engine.ActorID) error {
	if err := s.requireOwner(by); err != nil {
		return err
	}
	if err := s.roles.RemoveAdmin(ctx, id); err != nil {
		return fmt.Errorf("%w: %w", ErrCollaborator, err)
	}
	s.log.Info("admin removed", zap.Int64("admin", int64(id)))
	return nil
}

func (s *Service) Admins(ctx context.Context, by engine.ActorID) ([]store.Admin, error) {
	if err := s.requireOwner(by); err != nil {
		return nil, err
	}
	admins, err := s.roles.Admins(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCollaborator, err)
	}
	return admins, nil
}

// RegisterDestination records a chat the bot was added to.
func (s *Service) RegisterDestination(ctx context.Context, chatID int64, kind store.DestinationKind, title string) error {
	if err := s.dests.Register(ctx, chatID, kind, title); err != nil {
		return fmt.Errorf("%w: %w", ErrCollaborator, err)
	}
	s.log.Info("destination registered", zap.Int64("chat", chatID), zap.String("kind", string(kind)))
	return nil
}

func (s *Service) UnregisterDestination(ctx context.Context, chatID int64) error {
	if err := s.dests.Unregister(ctx, chatID); err != nil {
		return fmt.Errorf("%w: %w", ErrCollaborator, err)
	}
	s.log.Info("destination removed", zap.Int64("chat", chatID))
	return nil
}

func (s *Service) Destinations(ctx context.Context) ([]store.Destination, error) {
	d, err := s.dests.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCollaborator, err)
	}
	return d, nil
}

// BeginTimePrompt arms the "send me a time" prompt for a privileged actor.
func (s *Service) BeginTimePrompt(ctx context.Context, actor engine.ActorID, chatID int64) error {
	if err := s.requirePrivileged(ctx, actor); err != nil {
		return err
	}
	s.prompts.Begin(actor, chatID, pending.KindAwaitTime)
	return nil
}

// CancelPrompt drops the actor's prompt and reports whether one was armed.
func (s *Service) CancelPrompt(actor engine.ActorID) bool {
	return s.prompts.Cancel(actor)
}

// SubmitTime answers an armed prompt. handled is false when actor has no
// prompt, so the text is not meant for us. An invalid time keeps the prompt
// armed for another try.
func (s *Service) SubmitTime(ctx context.Context, actor engine.Member, text string) (snap lobby.Snapshot, handled bool, err error) {
	it, ok := s.prompts.Take(actor.ID)
	if !ok {
		return lobby.Snapshot{}, false, nil
	}
	text = strings.TrimSpace(text)
	if _, err := timeslot.Parse(text); err != nil {
		s.prompts.Begin(actor.ID, it.ChatID, it.Kind)
		return lobby.Snapshot{}, true, err
	}
	snap, err = s.CreateSession(ctx, actor, text)
	return snap, true, err
}
