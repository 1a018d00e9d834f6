package domain

import (
	"context"
	"time"
)

// Event types pushed to live subscribers.
const (
	EventMessageNew          = "message_new"
	EventConversationUpdated = "conversation_updated"
	EventMessagesRead        = "messages_read"
)

// Event is the envelope delivered to subscribed clients. Events for one
// conversation are published in commit order; there is no ordering guarantee
// across conversations.
type Event struct {
	Type               string     `json:"type"`
	ConversationID     string     `json:"conversation_id"`
	Message            *Message   `json:"message,omitempty"`
	LastMessagePreview *string    `json:"last_message_preview,omitempty"`
	LastMessageAt      *time.Time `json:"last_message_at,omitempty"`
	ReaderID           string     `json:"reader_id,omitempty"`
}

// EventPublisher fans events out to all live sessions of the given recipients.
// Delivery is best-effort: an offline recipient catches up from the store on
// next load, there is no replay.
type EventPublisher interface {
	Publish(ctx context.Context, recipientIDs []string, ev Event)
}
