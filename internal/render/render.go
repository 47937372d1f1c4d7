package render

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/DoyleJ11/lobby-roster/internal/engine"
	"github.com/DoyleJ11/lobby-roster/internal/lobby"
	"github.com/DoyleJ11/lobby-roster/internal/notify"
	"github.com/DoyleJ11/lobby-roster/pkg/types"
)

const (
	DefaultTitle = "🌟 JURASSIC MAFIA GROUP 🌟"

	NoPlayers   = "No players have signed up yet."
	NoObservers = "No observers have signed up yet."

	ObserverMarker = "👁️"

	OwnerLabel = "Owner"
	AdminLabel = "Admin"

	LiveNoticeText = "🎮 The lobby is up, come on in!"
)

// Labeler resolves how a creator is shown on the card.
type Labeler interface {
	IsOwner(id engine.ActorID) bool
	AdminAlias(ctx context.Context, id engine.ActorID) (string, bool, error)
}

type Renderer struct {
	Title   string
	Labeler Labeler
}

// Render builds the public card for snap. Label lookup failures fall back to
// the generic admin label; rendering never fails.
func (r *Renderer) Render(ctx context.Context, snap lobby.Snapshot) notify.Message {
	return Card(r.title(), snap.Session, r.CreatorLabel(ctx, snap.Session.CreatorID))
}

func (r *Renderer) title() string {
	if r.Title == "" {
		return DefaultTitle
	}
	return r.Title
}

func (r *Renderer) CreatorLabel(ctx context.Context, id engine.ActorID) string {
	if r.Labeler == nil {
		return AdminLabel
	}
	if r.Labeler.IsOwner(id) {
		return OwnerLabel
	}
	alias, ok, err := r.Labeler.AdminAlias(ctx, id)
	if err != nil || !ok {
		return AdminLabel
	}
	return alias
}

// Card is the deterministic part of rendering: same inputs, same output.
func Card(title string, s lobby.Session, creatorLabel string) notify.Message {
	var b strings.Builder
	b.WriteString(html.EscapeString(title))
	b.WriteString("\n\nRegister your name below to join the lobby.\n")
	fmt.Fprintf(&b, "🎗 Lobby creator: %s\n", html.EscapeString(creatorLabel))
	fmt.Fprintf(&b, "⏰ Time: %s\n\n", s.Slot)

	b.WriteString("🎭 Players:\n")
	if len(s.Roster.Players) == 0 {
		b.WriteString(NoPlayers)
	}
	for i, p := range s.Roster.Players {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d) %s", i+1, Mention(p))
	}

	b.WriteString("\n\n🗿 Observers:\n")
	if len(s.Roster.Observers) == 0 {
		b.WriteString(NoObservers)
	}
	for i, o := range s.Roster.Observers {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %s", ObserverMarker, Mention(o))
	}

	return notify.Message{
		Text:      b.String(),
		ParseMode: notify.ParseHTML,
		Buttons:   Buttons(s.ID),
	}
}

// Buttons are the three standing actions of an open card.
func Buttons(sessionID string) [][]notify.Button {
	return [][]notify.Button{
		{{Text: "🎮 I'm in", Data: types.CallbackData(types.ActionJoinPlayer, sessionID)}},
		{{Text: "👁️ Observer", Data: types.CallbackData(types.ActionJoinObserver, sessionID)}},
		{{Text: "🚀 Start", Data: types.CallbackData(types.ActionStartGame, sessionID)}},
	}
}

func Mention(m engine.Member) string {
	name := m.Name
	if name == "" {
		name = fmt.Sprintf("user %d", m.ID)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, m.ID, html.EscapeString(name))
}

func silentMention(id engine.ActorID) string {
	return fmt.Sprintf(`<a href="tg://user?id=%d">.</a>`, id)
}

// PlayerPing tags one batch of players in a group.
func PlayerPing(batch []engine.Member) notify.Message {
	tags := make([]string, len(batch))
	for i, p := range batch {
		tags[i] = silentMention(p.ID)
	}
	return notify.Message{Text: "Players, you're up:\n" + strings.Join(tags, " "), ParseMode: notify.ParseHTML}
}

// AdminPing tags one batch of admins in a group.
func AdminPing(batch []engine.ActorID) notify.Message {
	tags := make([]string, len(batch))
	for i, id := range batch {
		tags[i] = silentMention(id)
	}
	return notify.Message{Text: "Admins, you're up:\n" + strings.Join(tags, " "), ParseMode: notify.ParseHTML}
}

func LiveNotice() notify.Message {
	return notify.Message{Text: LiveNoticeText}
}
