package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/DoyleJ11/lobby-roster/internal/service"
	"github.com/DoyleJ11/lobby-roster/internal/store"
)

const (
	promptText     = "Send the start time as four digits, for example 1930. /cancel to stop."
	cancelledText  = "Cancelled."
	nothingText    = "Nothing to cancel."
	notAllowedText = "This bot is for lobby admins."
	startingText   = "Lobby started."
	usageAddAdmin  = "Usage: /addadmin <user id> [alias]"
	usageDelAdmin  = "Usage: /deladmin <user id>"
)

// errorText is what a user sees for each failure class.
func errorText(k service.Kind) string {
	switch k {
	case service.KindValidation:
		return "That doesn't look right. Times are four digits, for example 1930."
	case service.KindNotFound:
		return "This lobby has expired."
	case service.KindNotOpen:
		return "This lobby has already started."
	case service.KindAlreadyJoined:
		return "You're already on the list."
	case service.KindForbidden:
		return "Only admins can do that."
	case service.KindFull:
		return "Observer seats are full."
	case service.KindConflict:
		return "You're already on the list in another role."
	default:
		return "Something went wrong, please try again."
	}
}

func createdText(slot string) string {
	return fmt.Sprintf("Lobby for %s is posted.", slot)
}

func joinedPlayerText(seat int) string {
	return fmt.Sprintf("You're in! Player #%d.", seat)
}

func joinedObserverText(seat int) string {
	return fmt.Sprintf("You're observer #%d.", seat)
}

func destinationAddedText(d store.Destination) string {
	return fmt.Sprintf("Added to %s <b>%s</b> (%d).", d.Kind, html.EscapeString(d.Title), d.ChatID)
}

func destinationRemovedText(title string, chatID int64) string {
	return fmt.Sprintf("Removed from <b>%s</b> (%d).", html.EscapeString(title), chatID)
}

func menuText(dests []store.Destination, admins []store.Admin) string {
	var channels, groups []string
	for _, d := range dests {
		line := fmt.Sprintf("• %s (%d)", html.EscapeString(d.Title), d.ChatID)
		if d.Kind == store.KindChannel {
			channels = append(channels, line)
		} else {
			groups = append(groups, line)
		}
	}

	var b strings.Builder
	b.WriteString("<b>Channels</b>\n")
	writeList(&b, channels)
	b.WriteString("\n<b>Groups</b>\n")
	writeList(&b, groups)
	if admins != nil {
		b.WriteString("\n")
		b.WriteString(adminsText(admins))
	}
	b.WriteString("\n/list to open a lobby.")
	return b.String()
}

func adminsText(admins []store.Admin) string {
	lines := make([]string, len(admins))
	for i, a := range admins {
		alias := a.Alias
		if alias == "" {
			alias = "-"
		}
		lines[i] = fmt.Sprintf("• %d %s", a.ID, html.EscapeString(alias))
	}
	var b strings.Builder
	b.WriteString("<b>Admins</b>\n")
	writeList(&b, lines)
	return b.String()
}

func writeList(b *strings.Builder, lines []string) {
	if len(lines) == 0 {
		b.WriteString("none\n")
		return
	}
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
}
