package domain

import "time"

// PreviewMaxRunes caps the denormalised last-message preview on a conversation.
const PreviewMaxRunes = 100

// Conversation is the single messaging channel between two users. The pair is
// stored canonically ordered (ParticipantA < ParticipantB) so the unordered
// pair maps to exactly one row; a unique constraint over the two columns
// enforces that at the storage layer.
type Conversation struct {
	ID                 string     `db:"id" json:"id"`
	ParticipantA       string     `db:"participant_a" json:"participant_a"`
	ParticipantB       string     `db:"participant_b" json:"participant_b"`
	LastMessagePreview *string    `db:"last_message_preview" json:"last_message_preview,omitempty"`
	LastMessageAt      *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
}

// HasParticipant reports whether userID may read or write this conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	return userID == c.ParticipantA || userID == c.ParticipantB
}

// OtherParticipant returns the participant that is not the viewer.
func (c *Conversation) OtherParticipant(viewerID string) string {
	if viewerID == c.ParticipantA {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// NormalizePair returns the canonical ordering of two user ids. Self-pairs and
// missing ids fail with ErrInvalidParticipants before anything reaches storage.
func NormalizePair(a, b string) (string, string, error) {
	if a == "" || b == "" || a == b {
		return "", "", ErrInvalidParticipants
	}
	if b < a {
		a, b = b, a
	}
	return a, b, nil
}

// Message is a single direct message. IsRead flips false to true exactly once
// and never reverts; content is immutable after creation.
type Message struct {
	ID             int64     `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversation_id"`
	SenderID       string    `db:"sender_id" json:"sender_id"`
	Content        string    `db:"content" json:"content"`
	IsRead         bool      `db:"is_read" json:"is_read"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Profile is a local read copy of the identity provider's display identity,
// used to annotate inbox and thread views.
type Profile struct {
	ID          string    `db:"id" json:"id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	AvatarURL   *string   `db:"avatar_url" json:"avatar_url,omitempty"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
