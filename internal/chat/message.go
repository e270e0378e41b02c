// Package chat holds the client's local mirror of hub state: rooms,
// messages, membership, unread counts, presence and discovered hubs.
// The server remains the only source of truth; this package just keeps
// a consistent view of what it has pushed so far.
package chat

import "time"

// Kind discriminates the entries in a room's message history.
type Kind string

const (
	KindChat   Kind = "message"
	KindJoin   Kind = "join"
	KindPart   Kind = "part"
	KindNotice Kind = "notice"
	KindSystem Kind = "system"
	KindError  Kind = "error"
)

// Message is a single entry in a room's history. Display order is
// insertion order.
type Message struct {
	Kind Kind
	User string
	Text string
	// Timestamp is the server-supplied wall-clock string, or a
	// local-clock fallback when the server sent none.
	Timestamp string
	// MessageID and SenderIdentity are set on chat messages only and
	// drive self-authorship detection.
	MessageID      string
	SenderIdentity string
	// Own marks chat messages this client sent and the server echoed
	// back.
	Own bool
}

// LocalTimestamp returns the local-clock fallback timestamp in the
// same HH:MM:SS form the server uses.
func LocalTimestamp() string {
	return time.Now().Format("15:04:05")
}

// Hub is a chat server seen announcing on the network, deduplicated by
// destination hash. Staleness is a presentation concern; entries are
// never expired here.
type Hub struct {
	Hash     string  `json:"hash"`
	Name     string  `json:"name"`
	LastSeen float64 `json:"last_seen"`
}

// Presence is the ancillary connection-scoped state outside any room.
type Presence struct {
	Connected    bool
	HubName      string
	Nickname     string
	IdentityHash string
	// LatencyMS is nil while no round-trip measurement is available.
	LatencyMS *int
}
