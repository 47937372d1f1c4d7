package telegram

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/go-telegram/bot/models"
)

// Update is the part of a Bot API update the lobby bot reacts to.
type Update struct {
	UpdateID      int64
	Message       *Message
	CallbackQuery *CallbackQuery
	MyChatMember  *ChatMemberUpdated
}

type User struct {
	ID        int64
	IsBot     bool
	FirstName string
	LastName  string
	Username  string
}

// DisplayName is the full name, falling back to the username.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	if name == "" {
		name = fmt.Sprintf("user %d", u.ID)
	}
	return name
}

const (
	ChatPrivate    = string(models.ChatTypePrivate)
	ChatGroup      = string(models.ChatTypeGroup)
	ChatSupergroup = string(models.ChatTypeSupergroup)
	ChatChannel    = string(models.ChatTypeChannel)
)

type Chat struct {
	ID    int64
	Type  string
	Title string
}

type Message struct {
	MessageID int64
	From      *User
	Chat      Chat
	Text      string
}

type CallbackQuery struct {
	ID   string
	From User
	Data string
}

// Chat member statuses.
const (
	MemberCreator       = string(models.ChatMemberTypeOwner)
	MemberAdministrator = string(models.ChatMemberTypeAdministrator)
	MemberMember        = string(models.ChatMemberTypeMember)
	MemberRestricted    = string(models.ChatMemberTypeRestricted)
	MemberLeft          = string(models.ChatMemberTypeLeft)
	MemberKicked        = string(models.ChatMemberTypeBanned)
)

type ChatMember struct {
	Status string
}

// Present reports whether the member can still see the chat.
func (m ChatMember) Present() bool {
	switch m.Status {
	case MemberCreator, MemberAdministrator, MemberMember, MemberRestricted:
		return true
	default:
		return false
	}
}

type ChatMemberUpdated struct {
	Chat          Chat
	From          User
	OldChatMember ChatMember
	NewChatMember ChatMember
}

// DecodeUpdate reads one webhook payload.
func DecodeUpdate(r io.Reader) (Update, error) {
	var u models.Update
	if err := json.NewDecoder(r).Decode(&u); err != nil {
		return Update{}, fmt.Errorf("decode update: %w", err)
	}
	return FromModel(&u), nil
}

// FromModel keeps the fields of u the bot uses.
func FromModel(u *models.Update) Update {
	out := Update{UpdateID: u.ID}
	if m := u.Message; m != nil {
		out.Message = &Message{
			MessageID: int64(m.ID),
			Chat:      fromChat(m.Chat),
			Text:      m.Text,
		}
		if m.From != nil {
			from := fromUser(*m.From)
			out.Message.From = &from
		}
	}
	if q := u.CallbackQuery; q != nil {
		out.CallbackQuery = &CallbackQuery{ID: q.ID, From: fromUser(q.From), Data: q.Data}
	}
	if c := u.MyChatMember; c != nil {
		out.MyChatMember = &ChatMemberUpdated{
			Chat:          fromChat(c.Chat),
			From:          fromUser(c.From),
			OldChatMember: ChatMember{Status: string(c.OldChatMember.Type)},
			NewChatMember: ChatMember{Status: string(c.NewChatMember.Type)},
		}
	}
	return out
}

func fromUser(u models.User) User {
	return User{ID: u.ID, IsBot: u.IsBot, FirstName: u.FirstName, LastName: u.LastName, Username: u.Username}
}

func fromChat(c models.Chat) Chat {
	return Chat{ID: c.ID, Type: string(c.Type), Title: c.Title}
}
