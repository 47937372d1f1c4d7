// Package notify is the outbound chat contract the lobby core talks to.
package notify

import (
	"context"
	"errors"
	"time"
)

const (
	ParseHTML = "HTML"
)

type Button struct {
	Text string
	Data string
}

type Message struct {
	Text      string
	ParseMode string
	Buttons   [][]Button
}

// Notifier posts, edits and deletes chat messages. Every call is independent
// and may fail on its own.
type Notifier interface {
	Send(ctx context.Context, chatID int64, msg Message) (messageID int64, err error)
	Edit(ctx context.Context, chatID, messageID int64, msg Message) error
	Delete(ctx context.Context, chatID, messageID int64) error
}

// Notifier errors may implement these to steer retries.
type (
	retryHinter interface{ RetryDelay() time.Duration }
	permanent   interface{ Permanent() bool }
)

// RetryAfter returns the delay the chat service asked for before the next
// attempt, if err carries one.
func RetryAfter(err error) (time.Duration, bool) {
	var h retryHinter
	if errors.As(err, &h) {
		if d := h.RetryDelay(); d > 0 {
			return d, true
		}
	}
	return 0, false
}

// IsPermanent reports whether retrying err cannot succeed.
func IsPermanent(err error) bool {
	var p permanent
	return errors.As(err, &p) && p.Permanent()
}
