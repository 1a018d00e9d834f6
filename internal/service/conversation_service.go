package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/agrilink/messaging/internal/domain"
	"github.com/agrilink/messaging/internal/readmodel"
)

// ConversationService implements the conversation directory and the inbox
// read model.
type ConversationService struct {
	conversations domain.ConversationRepository
	messages      domain.MessageRepository
	profiles      domain.ProfileRepository
	log           *zap.SugaredLogger
}

func NewConversationService(
	conversations domain.ConversationRepository,
	messages domain.MessageRepository,
	profiles domain.ProfileRepository,
	log *zap.SugaredLogger,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		profiles:      profiles,
		log:           log,
	}
}

// GetOrCreate resolves the single conversation between viewer and other,
// creating it on first contact. Idempotent per unordered pair: repeated calls
// in either argument order return the same conversation.
func (s *ConversationService) GetOrCreate(ctx context.Context, viewerID, otherID string) (*domain.Conversation, error) {
	a, b, err := domain.NormalizePair(viewerID, otherID)
	if err != nil {
		return nil, err
	}
	conv, err := s.conversations.GetOrCreate(ctx, a, b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConversationCreateFailed, err)
	}
	return conv, nil
}

// Get returns the conversation if the viewer is one of its two participants.
func (s *ConversationService) Get(ctx context.Context, conversationID, viewerID string) (*domain.Conversation, error) {
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

// ListInbox returns the viewer's conversations annotated with the other
// participant's profile, unread count and a relative time label, most recent
// first and never-messaged conversations last.
func (s *ConversationService) ListInbox(ctx context.Context, viewerID string) ([]readmodel.InboxRow, error) {
	convs, err := s.conversations.ListForUser(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if len(convs) == 0 {
		return []readmodel.InboxRow{}, nil
	}

	ids := make([]string, len(convs))
	otherIDs := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
		otherIDs[i] = c.OtherParticipant(viewerID)
	}

	unread, err := s.messages.UnreadCounts(ctx, viewerID, ids)
	if err != nil {
		return nil, fmt.Errorf("unread counts: %w", err)
	}

	profiles, err := s.profiles.ListByIDs(ctx, otherIDs)
	if err != nil {
		// The inbox is still useful without display names.
		s.log.Warnw("load profiles", "error", err)
	}
	byID := make(map[string]*domain.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	now := time.Now()
	rows := make([]readmodel.InboxRow, 0, len(convs))
	for _, c := range convs {
		otherID := c.OtherParticipant(viewerID)
		other := domain.Profile{ID: otherID, DisplayName: "Unknown User"}
		if p, ok := byID[otherID]; ok {
			other = *p
		}
		row := readmodel.InboxRow{
			ConversationID:     c.ID,
			OtherUser:          other,
			LastMessagePreview: c.LastMessagePreview,
			LastMessageAt:      c.LastMessageAt,
			UnreadCount:        unread[c.ID],
		}
		if c.LastMessageAt != nil {
			row.LastMessageLabel = readmodel.FormatMessageTime(now, *c.LastMessageAt)
		}
		rows = append(rows, row)
	}
	readmodel.SortInbox(rows)
	return rows, nil
}
