package readmodel

import "github.com/agrilink/messaging/internal/domain"

// ThreadState is the client-held view of one open conversation.
type ThreadState struct {
	ConversationID string
	Messages       []domain.Message
}

// ApplyToThread folds one pushed event into an open thread and returns the
// new state. The second result reports whether the client should acknowledge
// the pushed message as read (it came from the other participant while the
// thread is open). Pure: st is left untouched.
func ApplyToThread(st ThreadState, viewerID string, ev domain.Event) (ThreadState, bool) {
	if ev.ConversationID != st.ConversationID {
		return st, false
	}

	switch ev.Type {
	case domain.EventMessageNew:
		if ev.Message == nil {
			return st, false
		}
		next := ThreadState{
			ConversationID: st.ConversationID,
			Messages:       make([]domain.Message, 0, len(st.Messages)+1),
		}
		next.Messages = append(next.Messages, st.Messages...)
		next.Messages = append(next.Messages, *ev.Message)
		return next, ev.Message.SenderID != viewerID

	case domain.EventMessagesRead:
		if ev.ReaderID == viewerID {
			return st, false
		}
		// The other participant read the thread: flip the viewer's sent
		// messages so read receipts render without a refetch.
		next := ThreadState{
			ConversationID: st.ConversationID,
			Messages:       make([]domain.Message, len(st.Messages)),
		}
		copy(next.Messages, st.Messages)
		for i := range next.Messages {
			if next.Messages[i].SenderID == viewerID {
				next.Messages[i].IsRead = true
			}
		}
		return next, false
	}

	return st, false
}
