// Package notifytest provides an in-memory Notifier for tests.
package notifytest

import (
	"context"
	"sync"

	"github.com/DoyleJ11/lobby-roster/internal/notify"
)

type Op string

const (
	OpSend   Op = "send"
	OpEdit   Op = "edit"
	OpDelete Op = "delete"
)

type Call struct {
	Op        Op
	ChatID    int64
	MessageID int64
	Message   notify.Message
}

// Recorder records every call. Fail, when set, decides per call whether it
// errors; failed calls are recorded too.
type Recorder struct {
	Fail func(c Call) error

	mu     sync.Mutex
	calls  []Call
	nextID int64
}

var _ notify.Notifier = (*Recorder)(nil)

func (r *Recorder) record(c Call) error {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	fail := r.Fail
	r.mu.Unlock()
	if fail != nil {
		return fail(c)
	}
	return nil
}

func (r *Recorder) Send(_ context.Context, chatID int64, msg notify.Message) (int64, error) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.mu.Unlock()

	if err := r.record(Call{Op: OpSend, ChatID: chatID, MessageID: id, Message: msg}); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Recorder) Edit(_ context.Context, chatID, messageID int64, msg notify.Message) error {
	return r.record(Call{Op: OpEdit, ChatID: chatID, MessageID: messageID, Message: msg})
}

func (r *Recorder) Delete(_ context.Context, chatID, messageID int64) error {
	return r.record(Call{Op: OpDelete, ChatID: chatID, MessageID: messageID})
}

func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Filter returns recorded calls matching op and chatID (0 matches any chat).
func (r *Recorder) Filter(op Op, chatID int64) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Op == op && (chatID == 0 || c.ChatID == chatID) {
			out = append(out, c)
		}
	}
	return out
}
