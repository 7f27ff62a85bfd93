// internal/models/conversation.go
package models

import "time"

// Turn roles. System turns are stripped before history is forwarded to the
// reasoning service.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Conversation is an append-only sequence of turns owned by one user.
type Conversation struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"userId" db:"user_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	LastActivity time.Time `json:"lastActivity" db:"last_activity"`
}

// ActiveWithin reports whether the conversation had a turn inside the window.
func (c *Conversation) ActiveWithin(window time.Duration, now time.Time) bool {
	return now.Sub(c.LastActivity) <= window
}

// ConversationTurn is a single utterance or response, ordered by creation
// time within a conversation.
type ConversationTurn struct {
	Role      string                 `json:"role"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}
