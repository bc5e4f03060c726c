package evaluate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hireloop/hireloop/internal/interview"
	"github.com/hireloop/hireloop/internal/router"
)

// Deepen refines an instant evaluation with model-backed depth and feedback.
// The two calls run in parallel under the evaluator's timeout; each falls back
// independently, and any fallback marks the phase deep_failed. The returned
// evaluation always carries a recomputed overall.
func (e *Evaluator) Deepen(ctx context.Context, q interview.Question, answer string, ev interview.Evaluation) interview.Evaluation {
	ctx, cancel := context.WithTimeout(ctx, e.deepTimeout)
	defer cancel()

	var (
		depth    float64
		feedback string
		depthErr error
		fbErr    error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		depth, depthErr = e.rateDepth(gctx, q, answer)
		return nil
	})
	g.Go(func() error {
		feedback, fbErr = e.generateFeedback(gctx, q, answer, ev)
		return nil
	})
	_ = g.Wait()

	ev.Phase = interview.PhaseDeep

	if depthErr != nil {
		slog.Warn("deep depth rating failed, using similarity fallback", "err", depthErr)
		depth = ev.Similarity * 0.8
		ev.Phase = interview.PhaseDeepFailed
	}
	ev.Depth = interview.Round1(min(100, max(0, depth)))

	if fbErr != nil {
		slog.Warn("deep feedback failed, using banded fallback", "err", fbErr)
		ev.Phase = interview.PhaseDeepFailed
	} else if feedback != "" {
		ev.Feedback = feedback
	}

	recomputeOverall(&ev)
	if fbErr != nil {
		ev.Feedback = feedbackFor(ev.Overall)
	}
	return ev
}

// rateDepth asks a model for a single depth number on the fast lane.
func (e *Evaluator) rateDepth(ctx context.Context, q interview.Question, answer string) (float64, error) {
	prompt := fmt.Sprintf(
		"Rate the technical depth of this interview answer from 0 to 100.\n"+
			"Depth means specifics, mechanisms, and reasoning rather than surface mentions.\n\n"+
			"Question: %s\n\nAnswer: %s\n\n"+
			`Respond with ONLY a JSON object: {"depth": 70}`,
		q.Text, clip(answer, 2000),
	)

	raw, err := e.llm.Generate(ctx, prompt, router.Opts{Fast: true, Temperature: 0.1})
	if err != nil {
		return 0, err
	}

	var out struct {
		Depth float64 `json:"depth"`
	}
	if err := decodeJSON(raw, &out); err != nil {
		return 0, err
	}
	if out.Depth < 0 || out.Depth > 100 {
		return 0, fmt.Errorf("evaluate: depth %v out of range", out.Depth)
	}
	return out.Depth, nil
}

// generateFeedback asks a model for short coaching feedback on the answer.
func (e *Evaluator) generateFeedback(ctx context.Context, q interview.Question, answer string, ev interview.Evaluation) (string, error) {
	prompt := fmt.Sprintf(
		"You are an interview coach. Give the candidate 2-3 sentences of direct,\n"+
			"specific feedback on this answer. Mention one strength and one concrete improvement.\n"+
			"Do not include scores or JSON, just the feedback text.\n\n"+
			"Question: %s\nExpected points: %s\nScore so far: %.0f/100\n\nAnswer: %s",
		q.Text, strings.Join(q.Keywords, ", "), ev.Overall, clip(answer, 2000),
	)

	raw, err := e.llm.Generate(ctx, prompt, router.Opts{Temperature: 0.4})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// clip truncates s to n bytes.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
