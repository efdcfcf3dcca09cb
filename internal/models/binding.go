package models

import "time"

// Binding links the accept/reject controls on a sent message to the
// proposal they act on.
type Binding struct {
	ID        string    `json:"id"`
	ChatID    int64     `json:"chat_id"`
	MessageID int       `json:"message_id"`
	Proposal  Key       `json:"proposal"`
	CreatedAt time.Time `json:"created_at"`
}
