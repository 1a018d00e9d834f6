package domain

import (
	"context"
	"time"
)

// ConversationRepository defines persistence operations for conversations.
type ConversationRepository interface {
	// GetOrCreate returns the conversation for the canonical pair (a, b),
	// inserting a new row on first contact. Implementations must resolve a
	// concurrent create through the unique (participant_a, participant_b)
	// constraint and re-read the winning row instead of surfacing the
	// violation.
	GetOrCreate(ctx context.Context, a, b string) (*Conversation, error)
	GetByID(ctx context.Context, id string) (*Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]*Conversation, error)
	// UpdateLastMessage refreshes the denormalised summary columns.
	UpdateLastMessage(ctx context.Context, id, preview string, at time.Time) error
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	// ListForConversation returns the full history ordered by creation,
	// insertion order breaking timestamp ties.
	ListForConversation(ctx context.Context, conversationID string) ([]*Message, error)
	// MarkAllRead flips every unread message not sent by readerID and reports
	// how many rows changed.
	MarkAllRead(ctx context.Context, conversationID, readerID string) (int64, error)
	UnreadCount(ctx context.Context, conversationID, viewerID string) (int, error)
	UnreadCounts(ctx context.Context, viewerID string, conversationIDs []string) (map[string]int, error)
}

// ProfileRepository defines persistence operations for display identities.
type ProfileRepository interface {
	Upsert(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id string) (*Profile, error)
	ListByIDs(ctx context.Context, ids []string) ([]*Profile, error)
}
