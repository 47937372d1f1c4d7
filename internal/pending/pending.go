// Package pending tracks short-lived conversational prompts, such as an admin
// who ran /list and still owes the bot a start time.
package pending

import (
	"context"
	"sync"
	"time"

	"github.com/DoyleJ11/lobby-roster/internal/engine"
)

type Kind string

const KindAwaitTime Kind = "await_time"

type Interaction struct {
	Actor     engine.ActorID
	ChatID    int64
	Kind      Kind
	StartedAt time.Time
}

// Book holds at most one interaction per actor. A zero ttl never expires.
type Book struct {
	mu    sync.Mutex
	items map[engine.ActorID]Interaction
	ttl   time.Duration
	now   func() time.Time
}

func New(ttl time.Duration) *Book {
	return &Book{
		items: make(map[engine.ActorID]Interaction),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (b *Book) TTL() time.Duration { return b.ttl }

// Begin starts (or restarts) an interaction for actor.
func (b *Book) Begin(actor engine.ActorID, chatID int64, kind Kind) Interaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	it := Interaction{Actor: actor, ChatID: chatID, Kind: kind, StartedAt: b.now()}
	b.items[actor] = it
	return it
}

func (b *Book) Peek(actor engine.ActorID) (Interaction, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live(actor)
}

// Take returns and removes the actor's interaction.
func (b *Book) Take(actor engine.ActorID) (Interaction, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	it, ok := b.live(actor)
	if ok {
		delete(b.items, actor)
	}
	return it, ok
}

// Cancel reports whether there was a live interaction to cancel. Only the
// actor that began an interaction can cancel it, since the key is theirs.
func (b *Book) Cancel(actor engine.ActorID) bool {
	_, ok := b.Take(actor)
	return ok
}

// live must be called with mu held.
func (b *Book) live(actor engine.ActorID) (Interaction, bool) {
	it, ok := b.items[actor]
	if !ok {
		return Interaction{}, false
	}
	if b.expired(it) {
		delete(b.items, actor)
		return Interaction{}, false
	}
	return it, true
}

func (b *Book) expired(it Interaction) bool {
	return b.ttl > 0 && b.now().Sub(it.StartedAt) >= b.ttl
}

// Sweep drops expired interactions and returns how many it removed.
func (b *Book) Sweep() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for actor, it := range b.items {
		if b.expired(it) {
			delete(b.items, actor)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (b *Book) Run(ctx context.Context, interval time.Duration) {
	if b.ttl <= 0 || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			b.Sweep()
		}
	}
}
