package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the pgvector extension and all required tables if they do
// not exist. It is idempotent and safe to run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	if embeddingDimensions <= 0 {
		embeddingDimensions = 1536
	}

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		`CREATE TABLE IF NOT EXISTS interview_sessions (
			id              TEXT PRIMARY KEY,
			candidate_token TEXT NOT NULL,
			group_id        TEXT NOT NULL DEFAULT '',
			started_at      TIMESTAMPTZ,
			doc             JSONB NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS interview_sessions_candidate_idx
			ON interview_sessions (candidate_token, started_at DESC)`,

		`CREATE INDEX IF NOT EXISTS interview_sessions_group_idx
			ON interview_sessions (group_id, started_at DESC)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS question_bank (
			id         TEXT PRIMARY KEY,
			group_id   TEXT NOT NULL DEFAULT '',
			session_id TEXT NOT NULL,
			question   TEXT NOT NULL,
			embedding  vector(%d),
			asked_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, embeddingDimensions),

		`CREATE INDEX IF NOT EXISTS question_bank_group_idx
			ON question_bank (group_id)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}
