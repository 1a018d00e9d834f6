package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations for the messaging schema on
// PostgreSQL. The unique constraint over the canonically ordered participant
// pair is what resolves the duplicate-pair create race.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id                   UUID         PRIMARY KEY,
			participant_a        VARCHAR(64)  NOT NULL,
			participant_b        VARCHAR(64)  NOT NULL,
			last_message_preview VARCHAR(400),
			last_message_at      TIMESTAMPTZ,
			created_at           TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			CONSTRAINT conversations_participants_ordered CHECK (participant_a < participant_b),
			CONSTRAINT conversations_participant_pair UNIQUE (participant_a, participant_b)
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id              BIGSERIAL    PRIMARY KEY,
			conversation_id UUID         NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			sender_id       VARCHAR(64)  NOT NULL,
			content         TEXT         NOT NULL,
			is_read         BOOLEAN      NOT NULL DEFAULT FALSE,
			created_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS profiles (
			id           VARCHAR(64)  PRIMARY KEY,
			display_name VARCHAR(100) NOT NULL,
			avatar_url   TEXT,
			updated_at   TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_conversations_participant_a ON conversations(participant_a)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_participant_b ON conversations(participant_b)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_last_message_at ON conversations(last_message_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conv_created ON messages(conversation_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(conversation_id) WHERE is_read = FALSE`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}
