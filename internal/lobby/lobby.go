package lobby

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/lobby-roster/internal/engine"
)

type Msg interface{ isLobbyMsg() }

// MutateFunc decides a roster change. It runs on the lobby goroutine and
// must not block or perform I/O.
type MutateFunc func(engine.State) ([]engine.Event, engine.State, error)

type Mutate struct {
	Fn    MutateFunc
	Reply chan Result
}

func (Mutate) isLobbyMsg() {}

type BeginClose struct {
	Reply chan Result
}

func (BeginClose) isLobbyMsg() {}

type Attach struct {
	Announcement Announcement
	Reply        chan Result
}

func (Attach) isLobbyMsg() {}

type Watch struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Watch) isLobbyMsg() {}

type Unwatch struct{ ClientID string }

func (Unwatch) isLobbyMsg() {}

// Shutdown retires the session for good: it is marked closed, sinks see the
// closed snapshot and the loop exits.
type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type Options struct {
	Sinks       []Sink
	SinkTimeout time.Duration
	Logger      *zap.Logger
}

type Lobby struct {
	id      string
	inbox   chan Msg
	session Session
	version int
	clients map[string]chan Snapshot
	relay   *relay
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewLobby starts the actor for one session. Cancelling parent stops the
// actor without retiring the session; only Shutdown does that.
func NewLobby(parent context.Context, initial Snapshot, opts Options) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("session", initial.Session.ID))

	timeout := opts.SinkTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	l := &Lobby{
		id:      initial.Session.ID,
		inbox:   make(chan Msg, 64), // Small buffer
		session: initial.Session.Clone(),
		version: initial.Version,
		clients: make(map[string]chan Snapshot),
		relay:   newRelay(opts.Sinks, timeout, log),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go l.loop()
	return l
}

func (l *Lobby) ID() string { return l.id }

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.stop()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Mutate:
				if l.session.Status != StatusOpen {
					msg.Reply <- Result{Snapshot: l.snapshot(), Err: ErrNotOpen}
					break
				}
				events, next, err := msg.Fn(l.session.Roster.Clone())
				if err != nil {
					msg.Reply <- Result{Snapshot: l.snapshot(), Err: err}
					break
				}
				l.session.Roster = next
				msg.Reply <- Result{Snapshot: l.commit(), Events: events}

			case Attach:
				if l.session.Status != StatusOpen {
					msg.Reply <- Result{Snapshot: l.snapshot(), Err: ErrNotOpen}
					break
				}
				if l.session.Announcement != nil {
					// Set once; repeats are no-ops.
					msg.Reply <- Result{Snapshot: l.snapshot()}
					break
				}
				a := msg.Announcement
				l.session.Announcement = &a
				msg.Reply <- Result{Snapshot: l.commit()}

			case BeginClose:
				if l.session.Status != StatusOpen {
					msg.Reply <- Result{Snapshot: l.snapshot(), Err: ErrAlreadyClosing}
					break
				}
				l.session.Status = StatusClosing
				msg.Reply <- Result{Snapshot: l.commit()}

			case Watch:
				// Register client + send current snapshot immediately
				l.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- l.snapshot()

			case Unwatch:
				if ch, ok := l.clients[msg.ClientID]; ok {
					close(ch)
					delete(l.clients, msg.ClientID)
				}

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					Session:    l.session.Clone(),
				}

			case Shutdown:
				l.session.Status = StatusClosed
				l.commit()
				l.log.Debug("session retired", zap.Int("version", l.version))
				l.stop()
				return
			}
		}
	}
}

// commit bumps the version and fans the new snapshot out to watchers and sinks.
func (l *Lobby) commit() Snapshot {
	l.version++
	snap := l.snapshot()
	l.broadcast(snap)
	l.relay.offer(snap)
	return snap
}

func (l *Lobby) snapshot() Snapshot {
	return Snapshot{Version: l.version, Session: l.session.Clone()}
}

func (l *Lobby) stop() {
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.relay.close()
	l.cancel()
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(l.clients, id)
		}
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the actor loop has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// Flushed is closed once every queued snapshot has reached the sinks.
func (l *Lobby) Flushed() <-chan struct{} { return l.relay.done }

func (l *Lobby) Mutate(ctx context.Context, fn MutateFunc) (Result, error) {
	reply := make(chan Result, 1)
	return l.request(ctx, Mutate{Fn: fn, Reply: reply}, reply)
}

func (l *Lobby) Attach(ctx context.Context, a Announcement) (Result, error) {
	reply := make(chan Result, 1)
	return l.request(ctx, Attach{Announcement: a, Reply: reply}, reply)
}

func (l *Lobby) BeginClose(ctx context.Context) (Result, error) {
	reply := make(chan Result, 1)
	return l.request(ctx, BeginClose{Reply: reply}, reply)
}

// Watch subscribes outbox to committed snapshots. The current snapshot is
// delivered first; outbox must have room for it.
func (l *Lobby) Watch(ctx context.Context, clientID string, outbox chan Snapshot) error {
	select {
	case l.inbox <- Watch{ClientID: clientID, Outbox: outbox}:
		return nil
	case <-l.done:
		return ErrNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unwatch is best effort; a retired lobby has already closed every outbox.
func (l *Lobby) Unwatch(clientID string) {
	select {
	case l.inbox <- Unwatch{ClientID: clientID}:
	case <-l.done:
	}
}

func (l *Lobby) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case l.inbox <- GetState{Reply: reply}:
	case <-l.done:
		return View{}, ErrNotFound
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-l.done:
		select {
		case v := <-reply:
			return v, nil
		default:
			return View{}, ErrNotFound
		}
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// request delivers msg and waits for its reply. A reply written before the
// loop exited always wins over the exit signal.
func (l *Lobby) request(ctx context.Context, msg Msg, reply chan Result) (Result, error) {
	select {
	case l.inbox <- msg:
	case <-l.done:
		return Result{}, ErrNotFound
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	var res Result
	select {
	case res = <-reply:
	case <-l.done:
		select {
		case res = <-reply:
		default:
			return Result{}, ErrNotFound
		}
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	return res, res.Err
}
