package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agrilink/messaging/internal/domain"
)

// MessageService implements the message log and read-state tracking.
type MessageService struct {
	conversations domain.ConversationRepository
	messages      domain.MessageRepository
	publisher     domain.EventPublisher
	log           *zap.SugaredLogger
}

func NewMessageService(
	conversations domain.ConversationRepository,
	messages domain.MessageRepository,
	publisher domain.EventPublisher,
	log *zap.SugaredLogger,
) *MessageService {
	return &MessageService{
		conversations: conversations,
		messages:      messages,
		publisher:     publisher,
		log:           log,
	}
}

// Send appends a message and refreshes the conversation summary. The summary
// update is best-effort metadata: if it fails after the insert, the message
// stays visible and the failure is only logged.
//
// Send is not idempotent; a retry after an ambiguous network failure can
// duplicate a message.
func (s *MessageService) Send(ctx context.Context, conversationID, senderID, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.ErrEmptyMessage
	}

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, domain.ErrConversationNotFound
	}
	if !conv.HasParticipant(senderID) {
		return nil, domain.ErrNotAParticipant
	}

	msg := &domain.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	preview := truncatePreview(content, domain.PreviewMaxRunes)
	if err := s.conversations.UpdateLastMessage(ctx, conversationID, preview, msg.CreatedAt); err != nil {
		s.log.Warnw("update conversation summary",
			"conversation_id", conversationID, "error", err)
	}

	recipients := []string{conv.ParticipantA, conv.ParticipantB}
	s.publisher.Publish(ctx, recipients, domain.Event{
		Type:           domain.EventMessageNew,
		ConversationID: conversationID,
		Message:        msg,
	})
	s.publisher.Publish(ctx, recipients, domain.Event{
		Type:               domain.EventConversationUpdated,
		ConversationID:     conversationID,
		LastMessagePreview: &preview,
		LastMessageAt:      &msg.CreatedAt,
	})

	return msg, nil
}

// List returns the conversation's full history in send order.
func (s *MessageService) List(ctx context.Context, conversationID, viewerID string) ([]*domain.Message, error) {
	if _, err := s.participantConversation(ctx, conversationID, viewerID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListForConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// MarkRead flips every unread message from the other participant and returns
// how many were marked. Repeated calls with nothing left to mark are no-ops.
func (s *MessageService) MarkRead(ctx context.Context, conversationID, viewerID string) (int64, error) {
	conv, err := s.participantConversation(ctx, conversationID, viewerID)
	if err != nil {
		return 0, err
	}
	n, err := s.messages.MarkAllRead(ctx, conversationID, viewerID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	if n > 0 {
		s.publisher.Publish(ctx, []string{conv.ParticipantA, conv.ParticipantB}, domain.Event{
			Type:           domain.EventMessagesRead,
			ConversationID: conversationID,
			ReaderID:       viewerID,
		})
	}
	return n, nil
}

// UnreadCount returns the number of messages from the other participant the
// viewer has not read yet.
func (s *MessageService) UnreadCount(ctx context.Context, conversationID, viewerID string) (int, error) {
	if _, err := s.participantConversation(ctx, conversationID, viewerID); err != nil {
		return 0, err
	}
	n, err := s.messages.UnreadCount(ctx, conversationID, viewerID)
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return n, nil
}

func (s *MessageService) participantConversation(ctx context.Context, conversationID, viewerID string) (*domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, domain.ErrConversationNotFound
	}
	if !conv.HasParticipant(viewerID) {
		return nil, domain.ErrNotAParticipant
	}
	return conv, nil
}

// truncatePreview cuts content to at most max runes so a multi-byte character
// is never split.
func truncatePreview(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
