package types

import "time"

// SessionView:
//   id: string
//   version: number
//   status: "open" | "closing" | "closed"
//   time: "HH:MM"
//   creator: Member
//   players: Member[]  // join order
//   observers: Member[]
//   card: string       // rendered card, HTML
//   clients: number    // live feed subscribers

type Member struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type SessionView struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	Status    string    `json:"status"`
	Time      string    `json:"time"`
	Creator   Member    `json:"creator"`
	Players   []Member  `json:"players"`
	Observers []Member  `json:"observers"`
	Card      string    `json:"card"`
	Clients   int       `json:"clients,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
