package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hireloop/hireloop/internal/interview"
	"github.com/hireloop/hireloop/pkg/provider/embeddings"
)

// similarLimit is how many bank entries are pulled into the avoid list per
// generation.
const similarLimit = 10

// questionBank is the vector-indexed bank of asked questions kept by the
// postgres store. Entries are scoped to an interview group.
type questionBank interface {
	AddQuestion(ctx context.Context, groupID, sessionID, text string, embedding []float32) error
	SimilarQuestions(ctx context.Context, groupID string, embedding []float32, limit int) ([]string, error)
}

// bankedGenerator decorates a question generator with the group question
// bank. Before generating it pulls the nearest bank entries into the avoid
// list, and after generating it records the new question, so concurrent
// sessions in the same group steer away from each other even across process
// restarts.
type bankedGenerator struct {
	interview.QuestionGenerator

	bank questionBank
	emb  embeddings.Provider
}

func (b *bankedGenerator) Next(ctx context.Context, p interview.GenParams) interview.Question {
	if p.GroupID != "" {
		if vec, err := b.emb.Embed(ctx, bankSeed(p)); err == nil {
			similar, err := b.bank.SimilarQuestions(ctx, p.GroupID, vec, similarLimit)
			if err != nil {
				slog.Warn("question bank lookup failed", "group", p.GroupID, "err", err)
			} else {
				p.Avoid = append(p.Avoid, similar...)
			}
		}
	}

	q := b.QuestionGenerator.Next(ctx, p)

	if p.GroupID != "" && q.Text != "" {
		vec, err := b.emb.Embed(ctx, q.Text)
		if err == nil {
			err = b.bank.AddQuestion(ctx, p.GroupID, p.SessionID, q.Text, vec)
		}
		if err != nil {
			slog.Warn("question bank append failed", "group", p.GroupID, "err", err)
		}
	}
	return q
}

// bankSeed builds the text whose neighbourhood in the bank is most likely to
// collide with the next question: the role plus the JD focus areas.
func bankSeed(p interview.GenParams) string {
	parts := []string{p.Role}
	if p.JD != nil {
		parts = append(parts, p.JD.InterviewFocusAreas...)
	}
	return strings.Join(parts, " ")
}
