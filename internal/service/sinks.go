package service

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/DoyleJ11/lobby-roster/internal/lobby"
	"github.com/DoyleJ11/lobby-roster/internal/notify"
	"github.com/DoyleJ11/lobby-roster/internal/render"
	"github.com/DoyleJ11/lobby-roster/internal/store"
)

// journalSink mirrors committed snapshots into the session store and deletes
// the record once the session is retired.
type journalSink struct {
	sessions store.Sessions
	attempts uint
}

func (j *journalSink) Publish(ctx context.Context, snap lobby.Snapshot) error {
	op := func() (struct{}, error) {
		if snap.Session.Status == lobby.StatusClosed {
			return struct{}{}, j.sessions.DeleteSession(ctx, snap.Session.ID)
		}
		return struct{}{}, j.sessions.SaveSession(ctx, toRecord(snap))
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	_, err := backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(j.attempts))
	return err
}

// cardSink keeps the live card in step with the roster. It skips renders
// identical to the last one it delivered for the session.
type cardSink struct {
	notifier notify.Notifier
	renderer *render.Renderer

	mu   sync.Mutex
	last map[string]string
}

func newCardSink(n notify.Notifier, r *render.Renderer) *cardSink {
	return &cardSink{notifier: n, renderer: r, last: make(map[string]string)}
}

// seed records a card that was posted directly, so the attach commit that
// follows does not trigger a no-op edit.
func (c *cardSink) seed(id string, msg notify.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[id] = msg.Text
}

func (c *cardSink) Publish(ctx context.Context, snap lobby.Snapshot) error {
	id := snap.Session.ID
	if snap.Session.Status != lobby.StatusOpen {
		c.mu.Lock()
		delete(c.last, id)
		c.mu.Unlock()
		return nil
	}
	a := snap.Session.Announcement
	if a == nil {
		return nil
	}

	msg := c.renderer.Render(ctx, snap)
	c.mu.Lock()
	same := c.last[id] == msg.Text
	c.mu.Unlock()
	if same {
		return nil
	}

	if err := c.notifier.Edit(ctx, a.ChatID, a.MessageID, msg); err != nil {
		return err
	}
	c.mu.Lock()
	c.last[id] = msg.Text
	c.mu.Unlock()
	return nil
}
