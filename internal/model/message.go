package model

import (
	"strconv"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one transcript entry of a conversation session. Entries are
// append-only: never edited, never deleted individually.
type Message struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewMessageID returns a millisecond-timestamp id. Uniqueness is best-effort:
// sends within a session are serialized, so collisions are accepted as a
// known weak guarantee rather than guarded against.
func NewMessageID(at time.Time) string {
	return strconv.FormatInt(at.UnixMilli(), 10)
}
