package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agrilink/messaging/internal/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

// GetOrCreate looks the canonical pair up and inserts on miss. INSERT OR
// IGNORE makes a losing concurrent insert a no-op; the winning row is then
// re-read.
func (r *ConversationRepo) GetOrCreate(ctx context.Context, a, b string) (*domain.Conversation, error) {
	conv, err := r.findByPair(ctx, a, b)
	if err != nil || conv != nil {
		return conv, err
	}

	c := &domain.Conversation{
		ID:           uuid.NewString(),
		ParticipantA: a,
		ParticipantB: b,
		CreatedAt:    time.Now().UTC(),
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO conversations (id, participant_a, participant_b, created_at)
		VALUES (?, ?, ?, ?)
	`, c.ID, a, b, c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		// Someone else created the pair between lookup and insert.
		conv, err = r.findByPair(ctx, a, b)
		if err != nil {
			return nil, err
		}
		if conv == nil {
			return nil, fmt.Errorf("conversation insert ignored but pair (%s, %s) not found", a, b)
		}
		return conv, nil
	}
	return c, nil
}

func (r *ConversationRepo) findByPair(ctx context.Context, a, b string) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, participant_a, participant_b, last_message_preview, last_message_at, created_at
		FROM conversations
		WHERE participant_a = ? AND participant_b = ?
	`, a, b).Scan(
		&c.ID, &c.ParticipantA, &c.ParticipantB,
		&c.LastMessagePreview, &c.LastMessageAt, &c.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation by pair: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, participant_a, participant_b, last_message_preview, last_message_at, created_at
		FROM conversations
		WHERE id = ?
	`, id).Scan(
		&c.ID, &c.ParticipantA, &c.ParticipantB,
		&c.LastMessagePreview, &c.LastMessageAt, &c.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) ListForUser(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, participant_a, participant_b, last_message_preview, last_message_at, created_at
		FROM conversations
		WHERE participant_a = ? OR participant_b = ?
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var res []*domain.Conversation
	for rows.Next() {
		c := &domain.Conversation{}
		if err := rows.Scan(
			&c.ID, &c.ParticipantA, &c.ParticipantB,
			&c.LastMessagePreview, &c.LastMessageAt, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r *ConversationRepo) UpdateLastMessage(ctx context.Context, id, preview string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversations
		SET last_message_preview = ?, last_message_at = ?
		WHERE id = ?
	`, preview, at, id)
	if err != nil {
		return fmt.Errorf("update last message: %w", err)
	}
	return nil
}
