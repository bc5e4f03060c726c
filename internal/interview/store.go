package interview

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("interview: session not found")

// ErrDuplicateID is returned when creating a session whose ID already exists.
var ErrDuplicateID = errors.New("interview: duplicate session id")

// SessionStore is the persistence contract for interview sessions. Sessions
// are read and written as whole documents; the controller serialises writes
// per session, so implementations only need document-level atomicity.
//
// Implementations must be safe for concurrent use.
type SessionStore interface {
	// Create stores a new session. Returns [ErrDuplicateID] when the ID is
	// already taken.
	Create(ctx context.Context, s *Session) error

	// Get returns the session with the given ID, or [ErrNotFound].
	Get(ctx context.Context, id string) (*Session, error)

	// Update replaces the stored document for s.ID. Returns [ErrNotFound]
	// when the session does not exist.
	Update(ctx context.Context, s *Session) error

	// ListByGroup returns all sessions sharing the interview group, newest
	// first.
	ListByGroup(ctx context.Context, groupID string) ([]*Session, error)

	// ListByCandidate returns the candidate's sessions, newest first.
	ListByCandidate(ctx context.Context, candidateToken string) ([]*Session, error)
}
