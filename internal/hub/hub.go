package hub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lobby-roster/internal/engine"
	"github.com/DoyleJ11/lobby-roster/internal/lobby"
	"github.com/DoyleJ11/lobby-roster/internal/timeslot"
)

var ErrExists = errors.New("session id already registered")
var ErrStopped = errors.New("hub stopped")

const maxIDAttempts = 5

type HubMsg interface{ isHubMsg() }

// CreateLobby registers a new actor for Snapshot.Session.ID. Reply receives
// nil when the id is taken.
type CreateLobby struct {
	Snapshot lobby.Snapshot
	Reply    chan *lobby.Lobby
}

type GetLobby struct {
	ID    string
	Reply chan *lobby.Lobby
}

// RemoveLobby unregisters ID. Reply receives the removed lobby or nil.
type RemoveLobby struct {
	ID    string
	Reply chan *lobby.Lobby
}

type ListLobbies struct {
	Reply chan []*lobby.Lobby
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (RemoveLobby) isHubMsg() {}
func (ListLobbies) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

type Options struct {
	Lobby lobby.Options
	Now   func() time.Time
	NewID func() (string, error)
}

// Hub owns the id -> lobby map. Only insert, lookup and evict go through the
// hub goroutine; everything else talks to the per-session lobby directly.
type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	opts    Options
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = newUUIDv7
	}
	log := opts.Lobby.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		opts:    opts,
		log:     log.Named("hub"),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go h.loop()
	return h
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			clear(h.lobbies)
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				if lb := h.lobbies[msg.Snapshot.Session.ID]; lb != nil {
					msg.Reply <- nil
					break
				}
				lb := lobby.NewLobby(h.ctx, msg.Snapshot, h.opts.Lobby)
				h.lobbies[lb.ID()] = lb
				msg.Reply <- lb

			case GetLobby:
				msg.Reply <- h.lobbies[msg.ID] // May be nil

			case RemoveLobby:
				lb := h.lobbies[msg.ID]
				delete(h.lobbies, msg.ID)
				msg.Reply <- lb

			case ListLobbies:
				out := make([]*lobby.Lobby, 0, len(h.lobbies))
				for _, lb := range h.lobbies {
					out = append(out, lb)
				}
				msg.Reply <- out

			case ShutdownHub:
				// Lobbies share h.ctx and stop with it, without retiring.
				clear(h.lobbies)
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) ask(ctx context.Context, msg HubMsg) error {
	select {
	case h.inbox <- msg:
		return nil
	case <-h.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, h *Hub, reply chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-h.done:
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrStopped
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Create allocates a fresh session id and starts its lobby in the Open state.
func (h *Hub) Create(ctx context.Context, creator engine.Member, slot timeslot.Slot) (lobby.Snapshot, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := h.opts.NewID()
		if err != nil {
			return lobby.Snapshot{}, fmt.Errorf("generate session id: %w", err)
		}
		snap := lobby.Snapshot{Session: lobby.NewSession(id, creator, slot, h.opts.Now())}
		lb, err := h.insert(ctx, snap)
		if err != nil {
			return lobby.Snapshot{}, err
		}
		if lb == nil {
			h.log.Warn("collision on session id, regenerating", zap.String("session", id))
			continue
		}
		return snap, nil
	}
	return lobby.Snapshot{}, fmt.Errorf("generate session id: %w", ErrExists)
}

// Restore re-registers a previously persisted session under its own id.
func (h *Hub) Restore(ctx context.Context, snap lobby.Snapshot) error {
	lb, err := h.insert(ctx, snap)
	if err != nil {
		return err
	}
	if lb == nil {
		return fmt.Errorf("restore %s: %w", snap.Session.ID, ErrExists)
	}
	return nil
}

func (h *Hub) insert(ctx context.Context, snap lobby.Snapshot) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.ask(ctx, CreateLobby{Snapshot: snap, Reply: reply}); err != nil {
		return nil, err
	}
	return await(ctx, h, reply)
}

func (h *Hub) Lookup(ctx context.Context, id string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.ask(ctx, GetLobby{ID: id, Reply: reply}); err != nil {
		return nil, err
	}
	lb, err := await(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	if lb == nil {
		return nil, lobby.ErrNotFound
	}
	return lb, nil
}

func (h *Hub) List(ctx context.Context) ([]*lobby.Lobby, error) {
	reply := make(chan []*lobby.Lobby, 1)
	if err := h.ask(ctx, ListLobbies{Reply: reply}); err != nil {
		return nil, err
	}
	return await(ctx, h, reply)
}

func (h *Hub) Mutate(ctx context.Context, id string, fn lobby.MutateFunc) (lobby.Result, error) {
	lb, err := h.Lookup(ctx, id)
	if err != nil {
		return lobby.Result{}, err
	}
	return lb.Mutate(ctx, fn)
}

func (h *Hub) Attach(ctx context.Context, id string, a lobby.Announcement) (lobby.Result, error) {
	lb, err := h.Lookup(ctx, id)
	if err != nil {
		return lobby.Result{}, err
	}
	return lb.Attach(ctx, a)
}

// BeginClose flips an Open session to Closing. Exactly one caller per id
// succeeds; the rest see lobby.ErrAlreadyClosing or lobby.ErrNotFound.
func (h *Hub) BeginClose(ctx context.Context, id string) (lobby.Snapshot, error) {
	lb, err := h.Lookup(ctx, id)
	if err != nil {
		return lobby.Snapshot{}, err
	}
	res, err := lb.BeginClose(ctx)
	if err != nil {
		return res.Snapshot, err
	}
	return res.Snapshot, nil
}

// Evict unregisters id and retires its lobby. Evicting an unknown id is a no-op.
func (h *Hub) Evict(ctx context.Context, id string) error {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.ask(ctx, RemoveLobby{ID: id, Reply: reply}); err != nil {
		return err
	}
	lb, err := await(ctx, h, reply)
	if err != nil || lb == nil {
		return err
	}

	select {
	case lb.Inbox() <- lobby.Shutdown{}:
	case <-lb.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Shutdown stops every lobby without retiring it and waits for the sinks to
// drain, so persisted sessions survive a restart.
func (h *Hub) Shutdown(ctx context.Context) error {
	lobbies, err := h.List(ctx)
	if err != nil {
		return err
	}
	if err := h.ask(ctx, ShutdownHub{}); err != nil && !errors.Is(err, ErrStopped) {
		return err
	}
	for _, lb := range lobbies {
		select {
		case <-lb.Flushed():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
