package lobby

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sink receives committed snapshots outside the session's critical section.
// Versions arrive strictly increasing; intermediate versions may be skipped.
// The last snapshot a sink sees for an evicted session has StatusClosed.
type Sink interface {
	Publish(ctx context.Context, snap Snapshot) error
}

type SinkFunc func(ctx context.Context, snap Snapshot) error

func (f SinkFunc) Publish(ctx context.Context, snap Snapshot) error { return f(ctx, snap) }

// relay is a latest-wins mailbox drained by one goroutine per lobby.
type relay struct {
	sinks   []Sink
	timeout time.Duration
	log     *zap.Logger

	mu     sync.Mutex
	latest *Snapshot
	closed bool

	wake chan struct{}
	done chan struct{}
}

func newRelay(sinks []Sink, timeout time.Duration, log *zap.Logger) *relay {
	r := &relay{
		sinks:   sinks,
		timeout: timeout,
		log:     log,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// offer never blocks; it is called from inside the actor loop.
func (r *relay) offer(snap Snapshot) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if r.latest == nil || snap.Version > r.latest.Version {
		r.latest = &snap
	}
	r.mu.Unlock()
	r.signal()
}

func (r *relay) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.signal()
}

func (r *relay) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *relay) run() {
	defer close(r.done)
	for range r.wake {
		for {
			r.mu.Lock()
			snap, closed := r.latest, r.closed
			r.latest = nil
			r.mu.Unlock()

			if snap == nil {
				if closed {
					return
				}
				break
			}
			r.publish(*snap)
		}
	}
}

func (r *relay) publish(snap Snapshot) {
	for _, s := range r.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := s.Publish(ctx, snap); err != nil {
			r.log.Warn("sink publish failed",
				zap.Int("version", snap.Version),
				zap.String("status", string(snap.Session.Status)),
				zap.Error(err))
		}
		cancel()
	}
}
