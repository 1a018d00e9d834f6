package readmodel_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/agrilink/messaging/internal/domain"
	"github.com/agrilink/messaging/internal/readmodel"
)

func TestFormatMessageTime(t *testing.T) {
	now := time.Date(2026, time.March, 14, 15, 30, 0, 0, time.UTC)

	cases := []struct {
		name string
		at   time.Time
		want string
	}{
		{"Today", now.Add(-2 * time.Hour), now.Add(-2 * time.Hour).Format("3:04 PM")},
		{"JustNow", now, now.Format("3:04 PM")},
		{"Yesterday", now.Add(-30 * time.Hour), "Yesterday"},
		{"ThisWeek", now.Add(-3 * 24 * time.Hour), now.Add(-3 * 24 * time.Hour).Format("Mon")},
		{"Older", now.Add(-10 * 24 * time.Hour), now.Add(-10 * 24 * time.Hour).Format("Jan 2")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, readmodel.FormatMessageTime(now, tc.at))
		})
	}
}

func TestSortInbox(t *testing.T) {
	now := time.Now()
	older := now.Add(-time.Hour)

	rows := []readmodel.InboxRow{
		{ConversationID: "never"},
		{ConversationID: "old", LastMessageAt: &older},
		{ConversationID: "new", LastMessageAt: &now},
	}
	readmodel.SortInbox(rows)

	assert.Equal(t, "new", rows[0].ConversationID)
	assert.Equal(t, "old", rows[1].ConversationID)
	assert.Equal(t, "never", rows[2].ConversationID)
}

func TestApplyToInbox(t *testing.T) {
	now := time.Now()
	base := []readmodel.InboxRow{
		{ConversationID: "c1", UnreadCount: 1},
		{ConversationID: "c2"},
	}

	t.Run("MessageNewFromOtherIncrementsUnread", func(t *testing.T) {
		next := readmodel.ApplyToInbox(base, "alice", now, domain.Event{
			Type:           domain.EventMessageNew,
			ConversationID: "c1",
			Message:        &domain.Message{SenderID: "bob"},
		})
		assert.Equal(t, 2, next[0].UnreadCount)
		// Purity: the input is untouched.
		assert.Equal(t, 1, base[0].UnreadCount)
	})

	t.Run("OwnMessageDoesNotIncrement", func(t *testing.T) {
		next := readmodel.ApplyToInbox(base, "alice", now, domain.Event{
			Type:           domain.EventMessageNew,
			ConversationID: "c1",
			Message:        &domain.Message{SenderID: "alice"},
		})
		assert.Equal(t, 1, next[0].UnreadCount)
	})

	t.Run("ConversationUpdatedRefreshesSummaryAndResorts", func(t *testing.T) {
		preview := "new preview"
		at := now.Add(-time.Minute)
		next := readmodel.ApplyToInbox(base, "alice", now, domain.Event{
			Type:               domain.EventConversationUpdated,
			ConversationID:     "c2",
			LastMessagePreview: &preview,
			LastMessageAt:      &at,
		})
		// c2 now has the most recent message and moves up.
		assert.Equal(t, "c2", next[0].ConversationID)
		assert.Equal(t, &preview, next[0].LastMessagePreview)
		assert.NotEmpty(t, next[0].LastMessageLabel)
	})

	t.Run("OwnReadZeroesUnread", func(t *testing.T) {
		next := readmodel.ApplyToInbox(base, "alice", now, domain.Event{
			Type:           domain.EventMessagesRead,
			ConversationID: "c1",
			ReaderID:       "alice",
		})
		assert.Zero(t, next[0].UnreadCount)
	})

	t.Run("OtherPartysReadLeavesUnread", func(t *testing.T) {
		next := readmodel.ApplyToInbox(base, "alice", now, domain.Event{
			Type:           domain.EventMessagesRead,
			ConversationID: "c1",
			ReaderID:       "bob",
		})
		assert.Equal(t, 1, next[0].UnreadCount)
	})

	t.Run("UnknownConversationIgnored", func(t *testing.T) {
		next := readmodel.ApplyToInbox(base, "alice", now, domain.Event{
			Type:           domain.EventMessageNew,
			ConversationID: "c99",
			Message:        &domain.Message{SenderID: "bob"},
		})
		assert.Equal(t, base, next)
	})
}
