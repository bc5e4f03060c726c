// Package evaluate scores candidate answers.
//
// Scoring is two-phased. The instant phase is local and fast: embedding
// similarity against the ideal answer, keyword coverage, and heuristic
// communication and depth estimates combine into an overall score the UI can
// show immediately. The deep phase refines depth and feedback through the
// model router with a hard timeout; when it misses, the instant numbers stand
// with deterministic fallbacks. Coding answers take a separate single-call
// path.
package evaluate

import (
	"context"
	"strings"
	"time"

	"github.com/hireloop/hireloop/internal/interview"
	"github.com/hireloop/hireloop/internal/observe"
	"github.com/hireloop/hireloop/internal/router"
	"github.com/hireloop/hireloop/internal/score"
)

// overall score weights.
const (
	weightContent       = 0.40
	weightKeywords      = 0.20
	weightDepth         = 0.15
	weightCommunication = 0.15
	weightConfidence    = 0.10
)

// neutralConfidence stands in until tone analysis exists.
const neutralConfidence = 50

// defaultDeepTimeout bounds the model-backed refinement phase.
const defaultDeepTimeout = 15 * time.Second

// structureMarkers signal organised delivery in an answer.
var structureMarkers = []string{
	"firstly", "secondly", "however", "moreover",
	"for example", "in addition", "furthermore", "therefore",
	"in conclusion", "on the other hand", "specifically", "for instance",
}

// TextGenerator is the slice of the model router the evaluator needs.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, opts router.Opts) (string, error)
}

// Evaluator scores answers. Safe for concurrent use.
type Evaluator struct {
	llm         TextGenerator
	scorer      *score.Scorer
	deepTimeout time.Duration
	metrics     *observe.Metrics
}

// NewEvaluator creates an Evaluator. deepTimeout <= 0 selects the default.
func NewEvaluator(llm TextGenerator, scorer *score.Scorer, deepTimeout time.Duration) *Evaluator {
	if deepTimeout <= 0 {
		deepTimeout = defaultDeepTimeout
	}
	return &Evaluator{
		llm:         llm,
		scorer:      scorer,
		deepTimeout: deepTimeout,
		metrics:     observe.DefaultMetrics(),
	}
}

// Instant runs the local scoring phase. It never fails; embedding outages
// degrade to neutral similarity inside the scorer.
func (e *Evaluator) Instant(ctx context.Context, q interview.Question, answer string) interview.Evaluation {
	start := time.Now()
	defer func() {
		e.metrics.EvaluationDuration.Record(ctx, time.Since(start).Seconds())
	}()

	if strings.TrimSpace(answer) == "" {
		return interview.Evaluation{
			Strength:       interview.StrengthWeak,
			Feedback:       "No answer provided.",
			Phase:          interview.PhaseInstant,
			MissedKeywords: append([]string(nil), q.Keywords...),
		}
	}

	sim := 100 * e.scorer.Similarity(ctx, answer, q.IdealAnswer)
	matched, missed := matchKeywords(answer, q.Keywords)
	kwPct := 100 * float64(len(matched)) / float64(max(1, len(q.Keywords)))

	content := 0.6*sim + 0.4*kwPct
	comm := communicationScore(answer)
	words := wordCount(answer)
	sentences := sentenceCount(answer)
	depth := min(100, 0.5*sim+0.3*kwPct+0.2*float64(min(words, 100)))

	overall := interview.Round1(
		weightContent*content +
			weightKeywords*kwPct +
			weightDepth*depth +
			weightCommunication*comm +
			weightConfidence*neutralConfidence,
	)

	return interview.Evaluation{
		Similarity:      interview.Round1(sim),
		KeywordScore:    interview.Round1(kwPct),
		Content:         interview.Round1(content),
		Communication:   interview.Round1(comm),
		Depth:           interview.Round1(depth),
		Confidence:      neutralConfidence,
		Overall:         overall,
		Strength:        interview.StrengthFor(overall),
		Feedback:        instantFeedback(sim, kwPct, missed, words, sentences, overall),
		Phase:           interview.PhaseInstant,
		MatchedKeywords: matched,
		MissedKeywords:  missed,
	}
}

// matchKeywords splits q's keywords into matched and missed by lowercase
// substring presence in the answer.
func matchKeywords(answer string, keywords []string) (matched, missed []string) {
	lower := strings.ToLower(answer)
	for _, k := range keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			matched = append(matched, k)
		} else {
			missed = append(missed, k)
		}
	}
	return matched, missed
}

// communicationScore estimates delivery quality from length, sentence
// structure, and discourse markers. Capped at 100.
func communicationScore(answer string) float64 {
	words := wordCount(answer)

	var base float64
	switch {
	case words < 10:
		base = 15
	case words < 20:
		base = 35
	case words < 50:
		base = 55
	case words < 100:
		base = 70
	case words < 200:
		base = 82
	default:
		base = 88
	}

	sentences := sentenceCount(answer)
	if sentences >= 3 {
		base += 8
	}
	if sentences >= 5 {
		base += 5
	}

	lower := strings.ToLower(answer)
	for _, m := range structureMarkers {
		if strings.Contains(lower, m) {
			base += 3
		}
	}

	return min(100, base)
}

// wordCount counts whitespace-separated tokens.
func wordCount(s string) int {
	return len(strings.Fields(s))
}

// sentenceCount counts non-empty segments between terminal punctuation.
func sentenceCount(s string) int {
	count := 0
	segment := false
	for _, r := range s {
		switch r {
		case '.', '!', '?':
			if segment {
				count++
				segment = false
			}
		default:
			if !segment && r != ' ' && r != '\n' && r != '\t' {
				segment = true
			}
		}
	}
	if segment {
		count++
	}
	return count
}

// instantFeedback assembles the instant-phase feedback from per-dimension
// bands: one sentence for similarity, one for keyword coverage (naming up to
// three missed terms), one for length or structure, and a closing remark at
// the overall extremes.
func instantFeedback(sim, kwPct float64, missed []string, words, sentences int, overall float64) string {
	var parts []string

	switch {
	case sim >= 70:
		parts = append(parts, "Your answer aligns well with the expected response.")
	case sim >= 40:
		parts = append(parts, "Your answer partially covers the expected content.")
	default:
		parts = append(parts, "Your answer doesn't closely match what was expected.")
	}

	if kwPct >= 70 {
		parts = append(parts, "Good use of relevant technical terminology.")
	} else if len(missed) > 0 {
		name := missed
		if len(name) > 3 {
			name = name[:3]
		}
		parts = append(parts, "Consider mentioning: "+strings.Join(name, ", ")+".")
	}

	if words < 30 {
		parts = append(parts, "Try to elaborate more — provide specific examples and details.")
	} else if sentences < 3 {
		parts = append(parts, "Structure your answer into multiple points for clarity.")
	}

	if overall >= 75 {
		parts = append(parts, "Strong response overall!")
	} else if overall < 40 {
		parts = append(parts, "Review the core concepts and practice with concrete examples.")
	}

	return strings.Join(parts, " ")
}

// feedbackFor is the coarse single-band feedback used when the deep phase
// fails after it already replaced the instant text.
func feedbackFor(overall float64) string {
	switch {
	case overall >= 70:
		return "Solid answer covering the main points. Consider adding a concrete example to strengthen it further."
	case overall >= 40:
		return "Partially correct but missing key aspects. Review the core concepts and aim for more specific detail."
	default:
		return "The answer needs significant improvement. Focus on addressing the question directly with relevant specifics."
	}
}

// recomputeOverall rebuilds the weighted overall after a dimension changed.
func recomputeOverall(ev *interview.Evaluation) {
	ev.Overall = interview.Round1(
		weightContent*ev.Content +
			weightKeywords*ev.KeywordScore +
			weightDepth*ev.Depth +
			weightCommunication*ev.Communication +
			weightConfidence*ev.Confidence,
	)
	ev.Strength = interview.StrengthFor(ev.Overall)
}
