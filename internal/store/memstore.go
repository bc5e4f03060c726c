// Package store provides session persistence implementations.
//
// MemStore keeps everything in process memory and backs tests and single-node
// runs; the postgres subpackage persists sessions as JSONB documents and adds
// the vector-indexed question bank.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hireloop/hireloop/internal/interview"
)

// Compile-time assertion that MemStore satisfies interview.SessionStore.
var _ interview.SessionStore = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of
// [interview.SessionStore]. Documents are deep-copied on the way in and out
// so callers can never alias stored state.
type MemStore struct {
	mu       sync.RWMutex
	sessions map[string]*interview.Session
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		sessions: make(map[string]*interview.Session),
	}
}

// Create implements [interview.SessionStore.Create].
func (s *MemStore) Create(ctx context.Context, sess *interview.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.ID]; exists {
		return interview.ErrDuplicateID
	}

	cp, err := clone(sess)
	if err != nil {
		return fmt.Errorf("store: create: %w", err)
	}
	s.sessions[sess.ID] = cp
	return nil
}

// Get implements [interview.SessionStore.Get].
func (s *MemStore) Get(ctx context.Context, id string) (*interview.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, interview.ErrNotFound
	}
	return clone(sess)
}

// Update implements [interview.SessionStore.Update].
func (s *MemStore) Update(ctx context.Context, sess *interview.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.ID]; !ok {
		return interview.ErrNotFound
	}

	cp, err := clone(sess)
	if err != nil {
		return fmt.Errorf("store: update: %w", err)
	}
	s.sessions[sess.ID] = cp
	return nil
}

// ListByGroup implements [interview.SessionStore.ListByGroup].
func (s *MemStore) ListByGroup(ctx context.Context, groupID string) ([]*interview.Session, error) {
	return s.list(func(sess *interview.Session) bool {
		return groupID != "" && sess.GroupID == groupID
	})
}

// ListByCandidate implements [interview.SessionStore.ListByCandidate].
func (s *MemStore) ListByCandidate(ctx context.Context, candidateToken string) ([]*interview.Session, error) {
	return s.list(func(sess *interview.Session) bool {
		return candidateToken != "" && sess.CandidateToken == candidateToken
	})
}

// list returns copies of all sessions matching keep, newest first.
func (s *MemStore) list(keep func(*interview.Session) bool) ([]*interview.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*interview.Session
	for _, sess := range s.sessions {
		if !keep(sess) {
			continue
		}
		cp, err := clone(sess)
		if err != nil {
			return nil, fmt.Errorf("store: list: %w", err)
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

// clone deep-copies a session document through its JSON form.
func clone(sess *interview.Session) (*interview.Session, error) {
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	cp := &interview.Session{}
	if err := json.Unmarshal(raw, cp); err != nil {
		return nil, err
	}
	return cp, nil
}
