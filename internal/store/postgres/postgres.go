// Package postgres provides a PostgreSQL-backed session store.
//
// Sessions are persisted as whole JSONB documents with a few promoted columns
// for lookup, matching the controller's read-modify-write access pattern. The
// package also maintains a pgvector-indexed question bank used to keep newly
// generated questions distinct from what other candidates in the same
// interview group were already asked.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/hireloop/hireloop/internal/interview"
)

// Compile-time interface check.
var _ interview.SessionStore = (*Store)(nil)

// Store is the PostgreSQL-backed session store. All operations are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store, establishes a connection pool to the PostgreSQL
// database at dsn, registers pgvector types on every connection, and runs
// [Migrate] to ensure all required tables and extensions exist.
//
// embeddingDimensions must match the output dimension of the configured
// embedding model (e.g., 1536 for OpenAI text-embedding-3-small). Changing
// this value after the first migration requires a manual schema change.
func New(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so the embedding column
	// can be scanned into and inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Create implements [interview.SessionStore.Create].
func (s *Store) Create(ctx context.Context, sess *interview.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	doc, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("postgres store: marshal session: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO interview_sessions (id, candidate_token, group_id, started_at, doc)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		sess.ID, sess.CandidateToken, sess.GroupID, sess.StartedAt, doc,
	)
	if err != nil {
		return fmt.Errorf("postgres store: create session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return interview.ErrDuplicateID
	}
	return nil
}

// Get implements [interview.SessionStore.Get].
func (s *Store) Get(ctx context.Context, id string) (*interview.Session, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM interview_sessions WHERE id = $1`, id,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, interview.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres store: get session: %w", err)
	}
	return unmarshalSession(doc)
}

// Update implements [interview.SessionStore.Update].
func (s *Store) Update(ctx context.Context, sess *interview.Session) error {
	doc, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("postgres store: marshal session: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE interview_sessions
		SET candidate_token = $2, group_id = $3, started_at = $4, doc = $5
		WHERE id = $1`,
		sess.ID, sess.CandidateToken, sess.GroupID, sess.StartedAt, doc,
	)
	if err != nil {
		return fmt.Errorf("postgres store: update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return interview.ErrNotFound
	}
	return nil
}

// ListByGroup implements [interview.SessionStore.ListByGroup].
func (s *Store) ListByGroup(ctx context.Context, groupID string) ([]*interview.Session, error) {
	if groupID == "" {
		return nil, nil
	}
	return s.query(ctx,
		`SELECT doc FROM interview_sessions WHERE group_id = $1 ORDER BY started_at DESC`,
		groupID,
	)
}

// ListByCandidate implements [interview.SessionStore.ListByCandidate].
func (s *Store) ListByCandidate(ctx context.Context, candidateToken string) ([]*interview.Session, error) {
	if candidateToken == "" {
		return nil, nil
	}
	return s.query(ctx,
		`SELECT doc FROM interview_sessions WHERE candidate_token = $1 ORDER BY started_at DESC`,
		candidateToken,
	)
}

// query runs a doc-returning query and unmarshals every row.
func (s *Store) query(ctx context.Context, sql string, args ...any) ([]*interview.Session, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: query sessions: %w", err)
	}
	defer rows.Close()

	var out []*interview.Session
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("postgres store: scan session: %w", err)
		}
		sess, err := unmarshalSession(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres store: iterate sessions: %w", err)
	}
	return out, nil
}

// AddQuestion appends an asked question and its embedding to the question
// bank so later generations in the same group can steer away from it.
func (s *Store) AddQuestion(ctx context.Context, groupID, sessionID, text string, embedding []float32) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO question_bank (id, group_id, session_id, question, embedding)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), groupID, sessionID, text, pgvector.NewVector(embedding),
	)
	if err != nil {
		return fmt.Errorf("postgres store: add question: %w", err)
	}
	return nil
}

// SimilarQuestions returns up to limit question texts from the group's bank,
// nearest first in cosine space.
func (s *Store) SimilarQuestions(ctx context.Context, groupID string, embedding []float32, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT question FROM question_bank
		WHERE group_id = $1
		ORDER BY embedding <=> $2
		LIMIT $3`,
		groupID, pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres store: similar questions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("postgres store: scan question: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres store: iterate questions: %w", err)
	}
	return out, nil
}

// unmarshalSession decodes a stored session document.
func unmarshalSession(doc []byte) (*interview.Session, error) {
	sess := &interview.Session{}
	if err := json.Unmarshal(doc, sess); err != nil {
		return nil, fmt.Errorf("postgres store: unmarshal session: %w", err)
	}
	return sess, nil
}
