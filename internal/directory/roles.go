// Package directory resolves who is privileged and where the bot may post.
// Both registries are read-only from the lobby core's point of view.
package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/lobby-roster/internal/engine"
	"github.com/DoyleJ11/lobby-roster/internal/store"
)

var ErrOwner = errors.New("owner is implicitly privileged")

type Roles struct {
	owner  engine.ActorID
	admins store.Admins
	now    func() time.Time
}

func NewRoles(owner engine.ActorID, admins store.Admins) *Roles {
	return &Roles{owner: owner, admins: admins, now: time.Now}
}

func (r *Roles) Owner() engine.ActorID { return r.owner }

func (r *Roles) IsOwner(id engine.ActorID) bool { return id == r.owner }

func (r *Roles) IsAdmin(ctx context.Context, id engine.ActorID) (bool, error) {
	_, err := r.admins.GetAdmin(ctx, int64(id))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup admin %d: %w", id, err)
	}
	return true, nil
}

// IsPrivileged reports owner or registered admin.
func (r *Roles) IsPrivileged(ctx context.Context, id engine.ActorID) (bool, error) {
	if r.IsOwner(id) {
		return true, nil
	}
	return r.IsAdmin(ctx, id)
}

// AdminAlias returns the alias an admin registered with, if any.
func (r *Roles) AdminAlias(ctx context.Context, id engine.ActorID) (string, bool, error) {
	a, err := r.admins.GetAdmin(ctx, int64(id))
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup admin %d: %w", id, err)
	}
	return a.Alias, a.Alias != "", nil
}

func (r *Roles) AllAdminIDs(ctx context.Context) ([]engine.ActorID, error) {
	admins, err := r.admins.ListAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	out := make([]engine.ActorID, 0, len(admins))
	for _, a := range admins {
		out = append(out, engine.ActorID(a.ID))
	}
	return out, nil
}

// NotifyTargets is admins plus the owner, deduplicated, admins first in id
// order and the owner last.
func (r *Roles) NotifyTargets(ctx context.Context) ([]engine.ActorID, error) {
	ids, err := r.AllAdminIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if id == r.owner {
			return ids, nil
		}
	}
	return append(ids, r.owner), nil
}

func (r *Roles) AddAdmin(ctx context.Context, id engine.ActorID, alias string) error {
	if id == r.owner {
		return fmt.Errorf("add admin %d: %w", id, ErrOwner)
	}
	return r.admins.PutAdmin(ctx, store.Admin{ID: int64(id), Alias: alias, AddedAt: r.now()})
}

func (r *Roles) RemoveAdmin(ctx context.Context, id engine.ActorID) error {
	return r.admins.DeleteAdmin(ctx, int64(id))
}

func (r *Roles) Admins(ctx context.Context) ([]store.Admin, error) {
	return r.admins.ListAdmins(ctx)
}
