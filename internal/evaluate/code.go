package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hireloop/hireloop/internal/interview"
	"github.com/hireloop/hireloop/internal/question"
	"github.com/hireloop/hireloop/internal/router"
)

// Code scores a coding answer in a single model call. The model grades
// correctness, code quality, efficiency, and edge-case handling; when no model
// answers, the evaluation degrades to embedding similarity against the ideal
// answer with conservative defaults. An empty language defaults to python.
func (e *Evaluator) Code(ctx context.Context, q interview.Question, answer, language string) interview.Evaluation {
	if language == "" {
		language = "python"
	}
	raw, err := e.llm.Generate(ctx, codePrompt(q, answer, language), router.Opts{Temperature: 0.2})
	if err != nil {
		slog.Warn("code evaluation model call failed, using similarity fallback", "err", err)
		return e.codeFallback(ctx, q, answer)
	}

	var out struct {
		Correctness float64  `json:"correctness"`
		Quality     float64  `json:"quality"`
		Efficiency  float64  `json:"efficiency"`
		EdgeCase    float64  `json:"edge_case"`
		Overall     float64  `json:"overall"`
		Feedback    string   `json:"feedback"`
		FollowUps   []string `json:"follow_up_questions"`
	}
	if err := decodeJSON(raw, &out); err != nil {
		slog.Warn("code evaluation returned malformed JSON, using similarity fallback", "err", err)
		return e.codeFallback(ctx, q, answer)
	}

	overall := interview.Round1(clamp100(out.Overall))
	return interview.Evaluation{
		Similarity:    interview.Round1(clamp100(out.Correctness)),
		Content:       interview.Round1(clamp100(out.Correctness)),
		Communication: interview.Round1(clamp100(out.Quality)),
		Depth:         interview.Round1(clamp100(out.Efficiency)),
		Confidence:    neutralConfidence,
		Efficiency:    interview.Round1(clamp100(out.Efficiency)),
		EdgeCase:      interview.Round1(clamp100(out.EdgeCase)),
		Overall:       overall,
		Strength:      interview.StrengthFor(overall),
		Feedback:      out.Feedback,
		FollowUps:     out.FollowUps,
		Phase:         interview.PhaseCode,
	}
}

// codeFallback builds a code evaluation without any model.
func (e *Evaluator) codeFallback(ctx context.Context, q interview.Question, answer string) interview.Evaluation {
	sim := 100 * e.scorer.Similarity(ctx, answer, q.IdealAnswer)
	overall := interview.Round1(sim * 0.8)
	return interview.Evaluation{
		Similarity:    interview.Round1(sim),
		Content:       interview.Round1(sim),
		Communication: 50,
		Depth:         50,
		Confidence:    neutralConfidence,
		Efficiency:    50,
		EdgeCase:      40,
		Overall:       overall,
		Strength:      interview.StrengthFor(overall),
		Feedback:      feedbackFor(overall),
		Phase:         interview.PhaseCode,
	}
}

// codePrompt builds the grading prompt for a coding answer.
func codePrompt(q interview.Question, answer, language string) string {
	return fmt.Sprintf(
		"You are a senior engineer reviewing a candidate's solution to a coding question.\n\n"+
			"Question: %s\n\nCandidate's code (%s):\n%s\n\n"+
			"Grade each dimension from 0 to 100 and suggest 1-2 short verbal follow-up\n"+
			"questions about this specific code.\n"+
			"Respond with ONLY a JSON object:\n"+
			`{"correctness": 0, "quality": 0, "efficiency": 0, "edge_case": 0, "overall": 0, "feedback": "2-3 sentences", "follow_up_questions": ["..."]}`,
		q.Text, language, clip(answer, 6000),
	)
}

// clamp100 bounds v to [0, 100].
func clamp100(v float64) float64 {
	return min(100, max(0, v))
}

// decodeJSON extracts and unmarshals the first JSON object in model output.
func decodeJSON(text string, v any) error {
	obj, err := question.ExtractJSON(text)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("evaluate: decode model JSON: %w", err)
	}
	return nil
}
