package types

import "strings"

// Action is the verb carried in a card button's callback data.
type Action string

const (
	ActionJoinPlayer   Action = "join_player"
	ActionJoinObserver Action = "join_observer"
	ActionStartGame    Action = "start_game"
)

// CallbackData encodes "<action>:<session id>".
func CallbackData(a Action, sessionID string) string {
	return string(a) + ":" + sessionID
}

func ParseCallbackData(data string) (Action, string, bool) {
	action, id, ok := strings.Cut(data, ":")
	if !ok || id == "" {
		return "", "", false
	}
	switch a := Action(action); a {
	case ActionJoinPlayer, ActionJoinObserver, ActionStartGame:
		return a, id, true
	default:
		return "", "", false
	}
}
