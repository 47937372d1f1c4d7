// Package service is the lobby facade the chat front end and the HTTP API
// call into. It validates input, checks privileges and routes every state
// change through the hub so each session sees a single ordered history.
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lobby-roster/internal/directory"
	"github.com/DoyleJ11/lobby-roster/internal/engine"
	"github.com/DoyleJ11/lobby-roster/internal/hub"
	"github.com/DoyleJ11/lobby-roster/internal/lobby"
	"github.com/DoyleJ11/lobby-roster/internal/notify"
	"github.com/DoyleJ11/lobby-roster/internal/pending"
	"github.com/DoyleJ11/lobby-roster/internal/render"
	"github.com/DoyleJ11/lobby-roster/internal/sequencer"
	"github.com/DoyleJ11/lobby-roster/internal/store"
	"github.com/DoyleJ11/lobby-roster/internal/timeslot"
)

type Options struct {
	Owner engine.ActorID
	// Title heads every card; empty means render.DefaultTitle.
	Title        string
	PendingTTL   time.Duration
	SaveAttempts uint
	SinkTimeout  time.Duration
	Sequencer    sequencer.Options
	Logger       *zap.Logger
	// NewID overrides session id generation in tests.
	NewID func() (string, error)
}

type Service struct {
	hub      *hub.Hub
	roles    *directory.Roles
	dests    *directory.Destinations
	notifier notify.Notifier
	renderer *render.Renderer
	cards    *cardSink
	seq      *sequencer.Sequencer
	prompts  *pending.Book
	sessions store.Sessions
	log      *zap.Logger
}

// New wires the service. The hub it starts lives until ctx is cancelled or
// Shutdown is called.
func New(ctx context.Context, st store.Store, n notify.Notifier, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.SaveAttempts == 0 {
		opts.SaveAttempts = 3
	}

	roles := directory.NewRoles(opts.Owner, st)
	dests := directory.NewDestinations(st)
	renderer := &render.Renderer{Title: opts.Title, Labeler: roles}
	cards := newCardSink(n, renderer)
	journal := &journalSink{sessions: st, attempts: opts.SaveAttempts}

	h := hub.NewHub(ctx, hub.Options{
		Lobby: lobby.Options{
			Sinks:       []lobby.Sink{journal, cards},
			SinkTimeout: opts.SinkTimeout,
			Logger:      log,
		},
		NewID: opts.NewID,
	})

	seqOpts := opts.Sequencer
	seqOpts.Logger = log
	return &Service{
		hub:      h,
		roles:    roles,
		dests:    dests,
		notifier: n,
		renderer: renderer,
		cards:    cards,
		seq:      sequencer.New(n, roles, dests, h, seqOpts),
		prompts:  pending.New(opts.PendingTTL),
		sessions: st,
		log:      log.Named("service"),
	}
}

func (s *Service) Prompts() *pending.Book { return s.prompts }

func (s *Service) Owner() engine.ActorID { return s.roles.Owner() }

func (s *Service) IsPrivileged(ctx context.Context, id engine.ActorID) (bool, error) {
	ok, err := s.roles.IsPrivileged(ctx, id)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrCollaborator, err)
	}
	return ok, nil
}

func (s *Service) requirePrivileged(ctx context.Context, id engine.ActorID) error {
	ok, err := s.IsPrivileged(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return engine.ErrForbidden
	}
	return nil
}

// CreateSession opens a session for a privileged actor and posts its card to
// the first broadcast channel, in ascending chat id order, that accepts it.
// If no channel accepts the card the session is discarded.
func (s *Service) CreateSession(ctx context.Context, actor engine.Member, token string) (lobby.Snapshot, error) {
	if err := s.requirePrivileged(ctx, actor.ID); err != nil {
		return lobby.Snapshot{}, err
	}
	slot, err := timeslot.Parse(strings.TrimSpace(token))
	if err != nil {
		return lobby.Snapshot{}, err
	}
	channels, err := s.dests.Broadcast(ctx)
	if err != nil {
		return lobby.Snapshot{}, fmt.Errorf("%w: %w", ErrCollaborator, err)
	}
	if len(channels) == 0 {
		return lobby.Snapshot{}, ErrNoDestinations
	}

	snap, err := s.hub.Create(ctx, actor, slot)
	if err != nil {
		return lobby.Snapshot{}, fmt.Errorf("%w: %w", ErrCollaborator, err)
	}
	id := snap.Session.ID
	log := s.log.With(zap.String("session", id))

	msg := s.renderer.Render(ctx, snap)
	var errs error
	for _, chat := range channels {
		msgID, err := s.notifier.Send(ctx, chat, msg)
		if err != nil {
			log.Warn("post card", zap.Int64("chat", chat), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("post card in %d: %w", chat, err))
			continue
		}
		s.cards.seed(id, msg)

		res, err := s.hub.Attach(ctx, id, lobby.Announcement{ChatID: chat, MessageID: msgID})
		if err == nil {
			err = res.Err
		}
		if err != nil {
			detached := context.WithoutCancel(ctx)
			if derr := s.notifier.Delete(detached, chat, msgID); derr != nil {
				log.Warn("remove orphaned card", zap.Error(derr))
			}
			s.discard(detached, id)
			return lobby.Snapshot{}, err
		}
		log.Info("session created",
			zap.Int64("creator", int64(actor.ID)),
			zap.String("slot", slot.String()),
			zap.Int64("chat", chat))
		return res.Snapshot, nil
	}

	s.discard(context.WithoutCancel(ctx), id)
	return lobby.Snapshot{}, fmt.Errorf("%w: %w", ErrCollaborator, errs)
}

func (s *Service) discard(ctx context.Context, id string) {
	if err := s.hub.Evict(ctx, id); err != nil {
		s.log.Error("discard session", zap.String("session", id), zap.Error(err))
	}
}

// JoinAsPlayer admits actor to the player list. Unknown sessions report
// lobby.ErrNotFound before any other check.
func (s *Service) JoinAsPlayer(ctx context.Context, id string, actor engine.Member) (lobby.Result, error) {
	lb, err := s.hub.Lookup(ctx, id)
	if err != nil {
		return lobby.Result{}, err
	}
	return join(ctx, lb, engine.Command{Type: engine.CmdJoinPlayer, Actor: actor})
}

// JoinAsObserver admits a privileged actor to one of the observer seats.
func (s *Service) JoinAsObserver(ctx context.Context, id string, actor engine.Member) (lobby.Result, error) {
	lb, err := s.hub.Lookup(ctx, id)
	if err != nil {
		return lobby.Result{}, err
	}
	privileged, err := s.IsPrivileged(ctx, actor.ID)
	if err != nil {
		return lobby.Result{}, err
	}
	return join(ctx, lb, engine.Command{Type: engine.CmdJoinObserver, Actor: actor, Privileged: privileged})
}

func join(ctx context.Context, lb *lobby.Lobby, cmd engine.Command) (lobby.Result, error) {
	res, err := lb.Mutate(ctx, func(st engine.State) ([]engine.Event, engine.State, error) {
		return engine.Apply(st, cmd)
	})
	if err != nil {
		return res, err
	}
	return res, res.Err
}

// StartSession closes the session and runs the closing sequence. Exactly one
// concurrent caller wins; the rest get lobby.ErrAlreadyClosing or
// lobby.ErrNotFound and nothing is sent on their behalf.
func (s *Service) StartSession(ctx context.Context, id string, actor engine.ActorID) (sequencer.Report, error) {
	st, err := s.BeginStart(ctx, id, actor)
	if err != nil {
		return sequencer.Report{}, err
	}
	return st.Run(ctx), nil
}

// Start is a won close whose closing sequence has not run yet.
type Start struct {
	seq  *sequencer.Sequencer
	snap lobby.Snapshot
}

// Run runs the closing sequence. Call it exactly once.
func (st *Start) Run(ctx context.Context) sequencer.Report {
	return st.seq.Run(ctx, st.snap)
}

// BeginStart flips the session to Closing on behalf of a privileged actor so
// the caller can acknowledge the win before the fan-out. The winner must call
// Run on the result.
func (s *Service) BeginStart(ctx context.Context, id string, actor engine.ActorID) (*Start, error) {
	lb, err := s.hub.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requirePrivileged(ctx, actor); err != nil {
		return nil, err
	}
	res, err := lb.BeginClose(ctx)
	if err == nil {
		err = res.Err
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("session starting", zap.String("session", id), zap.Int64("by", int64(actor)))
	return &Start{seq: s.seq, snap: res.Snapshot}, nil
}

// Lobby returns the live actor for id.
func (s *Service) Lobby(ctx context.Context, id string) (*lobby.Lobby, error) {
	return s.hub.Lookup(ctx, id)
}

// RenderFor renders the current card of id.
func (s *Service) RenderFor(ctx context.Context, id string) (notify.Message, lobby.View, error) {
	lb, err := s.hub.Lookup(ctx, id)
	if err != nil {
		return notify.Message{}, lobby.View{}, err
	}
	view, err := lb.View(ctx)
	if err != nil {
		return notify.Message{}, lobby.View{}, err
	}
	return s.Render(ctx, lobby.Snapshot{Version: view.Version, Session: view.Session}), view, nil
}

func (s *Service) Render(ctx context.Context, snap lobby.Snapshot) notify.Message {
	return s.renderer.Render(ctx, snap)
}

// Sessions lists live sessions, oldest first.
func (s *Service) Sessions(ctx context.Context) ([]lobby.View, error) {
	lobbies, err := s.hub.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]lobby.View, 0, len(lobbies))
	for _, lb := range lobbies {
		v, err := lb.View(ctx)
		if err != nil {
			// Retired between List and View.
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Session.CreatedAt.Equal(out[j].Session.CreatedAt) {
			return out[i].Session.CreatedAt.Before(out[j].Session.CreatedAt)
		}
		return out[i].Session.ID < out[j].Session.ID
	})
	return out, nil
}

// Restore rehydrates open sessions from the store. Sessions that were
// mid-start when the process stopped cannot resume and are dropped.
func (s *Service) Restore(ctx context.Context) (int, error) {
	recs, err := s.sessions.ListSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCollaborator, err)
	}
	var errs error
	restored := 0
	for _, rec := range recs {
		if lobby.Status(rec.Status) != lobby.StatusOpen {
			s.log.Warn("dropping interrupted session", zap.String("session", rec.ID), zap.String("status", rec.Status))
			errs = multierr.Append(errs, s.sessions.DeleteSession(ctx, rec.ID))
			continue
		}
		snap, err := fromRecord(rec)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if err := s.hub.Restore(ctx, snap); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		restored++
	}
	s.log.Info("sessions restored", zap.Int("restored", restored), zap.Int("stored", len(recs)))
	return restored, errs
}

// Shutdown stops every lobby without retiring it.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.hub.Shutdown(ctx)
}
