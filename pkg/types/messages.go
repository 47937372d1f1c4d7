package types

// Server -> Client
// CardSnapshot:
//   session: SessionView
//
// Closed: the session started or was discarded; no further snapshots.
//   session: SessionView // last known state
//
// Error:
//   error: { code: string, message: string }

type ServerMessageType string

const (
	MsgCardSnapshot ServerMessageType = "CardSnapshot"
	MsgClosed       ServerMessageType = "Closed"
	MsgError        ServerMessageType = "Error"
)

type ServerMessage struct {
	Type    ServerMessageType `json:"type"`
	Version int               `json:"version,omitempty"`
	Session *SessionView      `json:"session,omitempty"`
	Error   *ErrorBody        `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
