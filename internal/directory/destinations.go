package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/DoyleJ11/lobby-roster/internal/store"
)

type Destinations struct {
	store store.Destinations
	now   func() time.Time
}

func NewDestinations(s store.Destinations) *Destinations {
	return &Destinations{store: s, now: time.Now}
}

// Broadcast lists channel destinations where session cards are posted.
func (d *Destinations) Broadcast(ctx context.Context) ([]int64, error) {
	return d.ofKind(ctx, store.KindChannel)
}

// Groups lists group destinations that receive start notifications.
func (d *Destinations) Groups(ctx context.Context) ([]int64, error) {
	return d.ofKind(ctx, store.KindGroup)
}

func (d *Destinations) ofKind(ctx context.Context, kind store.DestinationKind) ([]int64, error) {
	all, err := d.store.ListDestinations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list destinations: %w", err)
	}
	var out []int64
	for _, dst := range all {
		if dst.Kind == kind {
			out = append(out, dst.ChatID)
		}
	}
	return out, nil
}

func (d *Destinations) Register(ctx context.Context, chatID int64, kind store.DestinationKind, title string) error {
	return d.store.PutDestination(ctx, store.Destination{
		ChatID:  chatID,
		Kind:    kind,
		Title:   title,
		AddedAt: d.now(),
	})
}

func (d *Destinations) Unregister(ctx context.Context, chatID int64) error {
	return d.store.DeleteDestination(ctx, chatID)
}

func (d *Destinations) List(ctx context.Context) ([]store.Destination, error) {
	return d.store.ListDestinations(ctx)
}
