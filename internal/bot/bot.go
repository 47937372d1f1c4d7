// Package bot turns Telegram updates into service calls and replies.
package bot

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/lobby-roster/internal/engine"
	"github.com/DoyleJ11/lobby-roster/internal/notify"
	"github.com/DoyleJ11/lobby-roster/internal/service"
	"github.com/DoyleJ11/lobby-roster/internal/store"
	"github.com/DoyleJ11/lobby-roster/internal/telegram"
	"github.com/DoyleJ11/lobby-roster/pkg/types"
)

// API is the part of the Bot API the dispatcher talks to.
type API interface {
	notify.Notifier
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}

type Bot struct {
	svc *service.Service
	api API
	log *zap.Logger
	wg  sync.WaitGroup
}

func New(svc *service.Service, api API, log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{svc: svc, api: api, log: log.Named("bot")}
}

// Dispatch handles u on its own goroutine so a slow start sequence never
// holds up other users.
func (b *Bot) Dispatch(ctx context.Context, u telegram.Update) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.Handle(ctx, u)
	}()
}

// Wait blocks until every dispatched update is handled.
func (b *Bot) Wait() { b.wg.Wait() }

func (b *Bot) Handle(ctx context.Context, u telegram.Update) {
	switch {
	case u.CallbackQuery != nil:
		b.onCallback(ctx, u.CallbackQuery)
	case u.MyChatMember != nil:
		b.onMembership(ctx, u.MyChatMember)
	case u.Message != nil:
		b.onMessage(ctx, u.Message)
	}
}

func member(u telegram.User) engine.Member {
	return engine.Member{ID: engine.ActorID(u.ID), Name: u.DisplayName()}
}

func (b *Bot) onCallback(ctx context.Context, q *telegram.CallbackQuery) {
	action, id, ok := types.ParseCallbackData(q.Data)
	if !ok {
		b.answer(ctx, q.ID, "", false)
		return
	}
	actor := member(q.From)
	log := b.log.With(zap.String("session", id), zap.Int64("actor", q.From.ID), zap.String("action", string(action)))

	switch action {
	case types.ActionJoinPlayer:
		res, err := b.svc.JoinAsPlayer(ctx, id, actor)
		if err != nil {
			b.fail(ctx, log, q.ID, err)
			return
		}
		b.answer(ctx, q.ID, joinedPlayerText(seat(res.Events)), false)

	case types.ActionJoinObserver:
		res, err := b.svc.JoinAsObserver(ctx, id, actor)
		if err != nil {
			b.fail(ctx, log, q.ID, err)
			return
		}
		b.answer(ctx, q.ID, joinedObserverText(seat(res.Events)), false)

	case types.ActionStartGame:
		st, err := b.svc.BeginStart(ctx, id, actor.ID)
		if err != nil {
			b.fail(ctx, log, q.ID, err)
			return
		}
		b.answer(ctx, q.ID, startingText, false)
		if report := st.Run(ctx); report.Err != nil {
			log.Warn("start finished with failures", zap.Int("failed", report.Failed), zap.Error(report.Err))
		}
	}
}

func seat(events []engine.Event) int {
	if len(events) == 0 {
		return 0
	}
	return events[0].Seat
}

func (b *Bot) fail(ctx context.Context, log *zap.Logger, callbackID string, err error) {
	kind := service.Classify(err)
	if kind == service.KindCollaborator {
		log.Error("callback failed", zap.Error(err))
	} else {
		log.Debug("callback rejected", zap.Stringer("kind", kind))
	}
	b.answer(ctx, callbackID, errorText(kind), kind == service.KindCollaborator)
}

func (b *Bot) answer(ctx context.Context, callbackID, text string, alert bool) {
	if err := b.api.AnswerCallback(ctx, callbackID, text, alert); err != nil {
		b.log.Debug("answer callback", zap.Error(err))
	}
}

func (b *Bot) onMembership(ctx context.Context, m *telegram.ChatMemberUpdated) {
	var kind store.DestinationKind
	switch m.Chat.Type {
	case telegram.ChatChannel:
		kind = store.KindChannel
	case telegram.ChatGroup, telegram.ChatSupergroup:
		kind = store.KindGroup
	default:
		return
	}

	wasIn, isIn := m.OldChatMember.Present(), m.NewChatMember.Present()
	owner := int64(b.svc.Owner())
	switch {
	case isIn && !wasIn:
		if err := b.svc.RegisterDestination(ctx, m.Chat.ID, kind, m.Chat.Title); err != nil {
			b.log.Error("register destination", zap.Int64("chat", m.Chat.ID), zap.Error(err))
			return
		}
		b.sendHTML(ctx, owner, destinationAddedText(store.Destination{ChatID: m.Chat.ID, Kind: kind, Title: m.Chat.Title}))
	case wasIn && !isIn:
		if err := b.svc.UnregisterDestination(ctx, m.Chat.ID); err != nil {
			b.log.Error("unregister destination", zap.Int64("chat", m.Chat.ID), zap.Error(err))
			return
		}
		b.sendHTML(ctx, owner, destinationRemovedText(m.Chat.Title, m.Chat.ID))
	}
}

// command splits "/cmd@bot a b" into "cmd" and its arguments.
func command(text string) (string, []string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	name, _, _ := strings.Cut(fields[0][1:], "@")
	return strings.ToLower(name), fields[1:], true
}

func (b *Bot) onMessage(ctx context.Context, msg *telegram.Message) {
	if msg.From == nil || msg.Chat.Type != telegram.ChatPrivate {
		return
	}
	actor := member(*msg.From)
	chat := msg.Chat.ID

	name, args, isCmd := command(msg.Text)
	if !isCmd {
		b.onText(ctx, actor, chat, msg.Text)
		return
	}

	switch name {
	case "start", "menu":
		b.menu(ctx, actor.ID, chat)
	case "list":
		if err := b.svc.BeginTimePrompt(ctx, actor.ID, chat); err != nil {
			b.reply(ctx, chat, errorText(service.Classify(err)))
			return
		}
		b.reply(ctx, chat, promptText)
	case "cancel":
		if b.svc.CancelPrompt(actor.ID) {
			b.reply(ctx, chat, cancelledText)
		} else {
			b.reply(ctx, chat, nothingText)
		}
	case "addadmin":
		b.addAdmin(ctx, actor.ID, chat, args)
	case "deladmin":
		b.delAdmin(ctx, actor.ID, chat, args)
	case "admins":
		admins, err := b.svc.Admins(ctx, actor.ID)
		if err != nil {
			b.reply(ctx, chat, errorText(service.Classify(err)))
			return
		}
		b.sendHTML(ctx, chat, adminsText(admins))
	}
}

func (b *Bot) onText(ctx context.Context, actor engine.Member, chat int64, text string) {
	snap, handled, err := b.svc.SubmitTime(ctx, actor, text)
	if !handled {
		return
	}
	if err != nil {
		kind := service.Classify(err)
		if kind == service.KindCollaborator {
			b.log.Error("create session", zap.Int64("actor", int64(actor.ID)), zap.Error(err))
		}
		b.reply(ctx, chat, errorText(kind))
		return
	}
	b.reply(ctx, chat, createdText(snap.Session.Slot.String()))
}

func (b *Bot) menu(ctx context.Context, actor engine.ActorID, chat int64) {
	ok, err := b.svc.IsPrivileged(ctx, actor)
	if err != nil {
		b.reply(ctx, chat, errorText(service.KindCollaborator))
		return
	}
	if !ok {
		b.reply(ctx, chat, notAllowedText)
		return
	}
	dests, err := b.svc.Destinations(ctx)
	if err != nil {
		b.reply(ctx, chat, errorText(service.KindCollaborator))
		return
	}
	// Only the owner sees the admin roster.
	admins, _ := b.svc.Admins(ctx, actor)
	b.sendHTML(ctx, chat, menuText(dests, admins))
}

func (b *Bot) addAdmin(ctx context.Context, actor engine.ActorID, chat int64, args []string) {
	if len(args) == 0 {
		b.reply(ctx, chat, usageAddAdmin)
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.reply(ctx, chat, usageAddAdmin)
		return
	}
	alias := strings.Join(args[1:], " ")
	if err := b.svc.AddAdmin(ctx, actor, engine.ActorID(id), alias); err != nil {
		b.reply(ctx, chat, errorText(service.Classify(err)))
		return
	}
	b.reply(ctx, chat, "Admin "+args[0]+" added.")
}

func (b *Bot) delAdmin(ctx context.Context, actor engine.ActorID, chat int64, args []string) {
	if len(args) != 1 {
		b.reply(ctx, chat, usageDelAdmin)
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.reply(ctx, chat, usageDelAdmin)
		return
	}
	if err := b.svc.RemoveAdmin(ctx, actor, engine.ActorID(id)); err != nil {
		b.reply(ctx, chat, errorText(service.Classify(err)))
		return
	}
	b.reply(ctx, chat, "Admin "+args[0]+" removed.")
}

func (b *Bot) reply(ctx context.Context, chat int64, text string) {
	if _, err := b.api.Send(ctx, chat, notify.Message{Text: text}); err != nil {
		b.log.Warn("reply", zap.Int64("chat", chat), zap.Error(err))
	}
}

func (b *Bot) sendHTML(ctx context.Context, chat int64, text string) {
	if _, err := b.api.Send(ctx, chat, notify.Message{Text: text, ParseMode: notify.ParseHTML}); err != nil {
		b.log.Warn("reply", zap.Int64("chat", chat), zap.Error(err))
	}
}
