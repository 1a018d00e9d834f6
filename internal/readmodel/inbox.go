package readmodel

import (
	"sort"
	"time"

	"github.com/agrilink/messaging/internal/domain"
)

// InboxRow is one conversation as rendered in the viewer's inbox.
type InboxRow struct {
	ConversationID     string         `json:"conversation_id"`
	OtherUser          domain.Profile `json:"other_user"`
	LastMessagePreview *string        `json:"last_message_preview,omitempty"`
	LastMessageAt      *time.Time     `json:"last_message_at,omitempty"`
	LastMessageLabel   string         `json:"last_message_label,omitempty"`
	UnreadCount        int            `json:"unread_count"`
}

// SortInbox orders rows by recency; conversations never messaged in sort last.
func SortInbox(rows []InboxRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].LastMessageAt, rows[j].LastMessageAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}

// ApplyToInbox folds one pushed event into a locally held inbox and returns
// the new state. It is a pure reducer: rows is left untouched.
func ApplyToInbox(rows []InboxRow, viewerID string, now time.Time, ev domain.Event) []InboxRow {
	next := make([]InboxRow, len(rows))
	copy(next, rows)

	for i := range next {
		if next[i].ConversationID != ev.ConversationID {
			continue
		}
		switch ev.Type {
		case domain.EventConversationUpdated:
			next[i].LastMessagePreview = ev.LastMessagePreview
			next[i].LastMessageAt = ev.LastMessageAt
			next[i].LastMessageLabel = ""
			if ev.LastMessageAt != nil {
				next[i].LastMessageLabel = FormatMessageTime(now, *ev.LastMessageAt)
			}
		case domain.EventMessageNew:
			if ev.Message != nil && ev.Message.SenderID != viewerID {
				next[i].UnreadCount++
			}
		case domain.EventMessagesRead:
			if ev.ReaderID == viewerID {
				next[i].UnreadCount = 0
			}
		}
	}

	SortInbox(next)
	return next
}

// FormatMessageTime renders the inbox timestamp label: time of day for today,
// "Yesterday" for one day ago, the weekday inside a week, month and day
// beyond that.
func FormatMessageTime(now, t time.Time) string {
	diffDays := int(now.Sub(t).Hours() / 24)
	switch {
	case diffDays <= 0:
		return t.Format("3:04 PM")
	case diffDays == 1:
		return "Yesterday"
	case diffDays < 7:
		return t.Format("Mon")
	default:
		return t.Format("Jan 2")
	}
}
