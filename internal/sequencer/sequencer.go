// Package sequencer runs the one-way closing transition of a lobby: batched
// notifications to every group, card teardown, and eviction.
package sequencer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/lobby-roster/internal/engine"
	"github.com/DoyleJ11/lobby-roster/internal/lobby"
	"github.com/DoyleJ11/lobby-roster/internal/notify"
	"github.com/DoyleJ11/lobby-roster/internal/render"
)

// BatchSize is how many users one tag message mentions.
const BatchSize = 5

type Evictor interface {
	Evict(ctx context.Context, id string) error
}

type TargetSource interface {
	NotifyTargets(ctx context.Context) ([]engine.ActorID, error)
}

type GroupSource interface {
	Groups(ctx context.Context) ([]int64, error)
}

type Options struct {
	// Attempts per individual send, including the first.
	Attempts int
	// Backoff is the first retry delay; it doubles per attempt.
	Backoff time.Duration
	// Concurrency bounds how many groups are notified in parallel.
	Concurrency int
	// Deadline bounds the notifications and card teardown.
	Deadline time.Duration
	// EvictTimeout bounds eviction, which runs after Deadline even if it
	// has already passed.
	EvictTimeout time.Duration
	Logger       *zap.Logger
}

type Sequencer struct {
	notifier notify.Notifier
	targets  TargetSource
	groups   GroupSource
	evictor  Evictor
	opts     Options
	log      *zap.Logger
}

func New(n notify.Notifier, targets TargetSource, groups GroupSource, evictor Evictor, opts Options) *Sequencer {
	if opts.Attempts < 1 {
		opts.Attempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 4
	}
	if opts.Deadline <= 0 {
		opts.Deadline = 2 * time.Minute
	}
	if opts.EvictTimeout <= 0 {
		opts.EvictTimeout = 10 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Sequencer{
		notifier: n,
		targets:  targets,
		groups:   groups,
		evictor:  evictor,
		opts:     opts,
		log:      log.Named("sequencer"),
	}
}

// Report summarises one closing sequence. Err aggregates every failure.
type Report struct {
	SessionID    string
	Sent         int
	Failed       int
	CardRemoved  bool
	NoticePosted bool
	Evicted      bool
	Err          error
}

type tally struct {
	mu     sync.Mutex
	report Report
}

func (t *tally) add(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.report.Failed++
		t.report.Err = multierr.Append(t.report.Err, err)
		return
	}
	t.report.Sent++
}

// Run must only be called by the winner of BeginClose for snap's session.
// It detaches from the caller's cancellation: once started, the sequence
// always reaches eviction.
func (s *Sequencer) Run(ctx context.Context, snap lobby.Snapshot) (report Report) {
	detached := context.WithoutCancel(ctx)
	ctx, cancel := context.WithTimeout(detached, s.opts.Deadline)
	defer cancel()

	id := snap.Session.ID
	log := s.log.With(zap.String("session", id))
	t := &tally{report: Report{SessionID: id}}

	defer func() {
		ectx, cancel := context.WithTimeout(detached, s.opts.EvictTimeout)
		defer cancel()
		if err := s.evictor.Evict(ectx, id); err != nil {
			log.Error("evict failed", zap.Error(err))
			report.Err = multierr.Append(report.Err, err)
			return
		}
		report.Evicted = true
	}()

	groups, err := s.groups.Groups(ctx)
	if err != nil {
		log.Error("list groups", zap.Error(err))
		t.report.Err = multierr.Append(t.report.Err, err)
	}
	targets, err := s.targets.NotifyTargets(ctx)
	if err != nil {
		log.Error("list admins", zap.Error(err))
		t.report.Err = multierr.Append(t.report.Err, err)
	}

	playerBatches := engine.Batches(snap.Session.Roster.Players, BatchSize)
	adminBatches := engine.Batches(targets, BatchSize)

	g := new(errgroup.Group)
	g.SetLimit(s.opts.Concurrency)
	for _, chat := range groups {
		g.Go(func() error {
			for i, b := range playerBatches {
				t.add(s.send(ctx, log, chat, render.PlayerPing(b), "players", i))
			}
			for i, b := range adminBatches {
				t.add(s.send(ctx, log, chat, render.AdminPing(b), "admins", i))
			}
			return nil
		})
	}
	_ = g.Wait()

	if a := snap.Session.Announcement; a != nil {
		s.teardown(ctx, log, *a, t)
	}

	log.Info("session started",
		zap.Int("groups", len(groups)),
		zap.Int("players", len(snap.Session.Roster.Players)),
		zap.Int("sent", t.report.Sent),
		zap.Int("failed", t.report.Failed))
	return t.result()
}

func (t *tally) result() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.report
}

func (s *Sequencer) teardown(ctx context.Context, log *zap.Logger, a lobby.Announcement, t *tally) {
	err := s.retry(ctx, func() error { return s.notifier.Delete(ctx, a.ChatID, a.MessageID) })
	if err != nil {
		log.Warn("remove card", zap.Int64("chat", a.ChatID), zap.Int64("message", a.MessageID), zap.Error(err))
		t.add(fmt.Errorf("remove card in %d: %w", a.ChatID, err))
	} else {
		t.add(nil)
		t.report.CardRemoved = true
	}

	err = s.retry(ctx, func() error {
		_, err := s.notifier.Send(ctx, a.ChatID, render.LiveNotice())
		return err
	})
	if err != nil {
		log.Warn("post live notice", zap.Int64("chat", a.ChatID), zap.Error(err))
		t.add(fmt.Errorf("post live notice in %d: %w", a.ChatID, err))
		return
	}
	t.add(nil)
	t.report.NoticePosted = true
}

func (s *Sequencer) send(ctx context.Context, log *zap.Logger, chat int64, msg notify.Message, kind string, batch int) error {
	err := s.retry(ctx, func() error {
		_, err := s.notifier.Send(ctx, chat, msg)
		return err
	})
	if err != nil {
		log.Warn("notify batch failed",
			zap.Int64("chat", chat),
			zap.String("kind", kind),
			zap.Int("batch", batch),
			zap.Error(err))
		return fmt.Errorf("notify %s batch %d in %d: %w", kind, batch, chat, err)
	}
	return nil
}

// retry honours a delay requested by the chat service over the exponential
// schedule and gives up at once on errors that cannot succeed.
func (s *Sequencer) retry(ctx context.Context, op func() error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.opts.Backoff
	exp.Multiplier = 2
	b := &hintedBackOff{BackOff: exp}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := op()
		switch {
		case err == nil:
		case notify.IsPermanent(err):
			return struct{}{}, backoff.Permanent(err)
		default:
			if d, ok := notify.RetryAfter(err); ok {
				b.hint = d
			}
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(s.opts.Attempts)))
	return err
}

// hintedBackOff waits for the server's requested delay once, then falls back
// to the wrapped schedule.
type hintedBackOff struct {
	backoff.BackOff
	hint time.Duration
}

func (h *hintedBackOff) NextBackOff() time.Duration {
	if d := h.hint; d > 0 {
		h.hint = 0
		return d
	}
	return h.BackOff.NextBackOff()
}
