// Package question generates adaptive interview questions.
//
// Generation is layered: a smart model path that follows a planned
// question-type progression and self-rates quality, a monolithic fallback
// prompt used when the smart path misfires, and static per-role question
// lists when no model answers at all. Every candidate question passes a
// redundancy gate before it is asked: a cheap lexical prefilter followed by
// an embedding similarity check against everything already asked in the
// interview group.
package question

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/google/uuid"

	"github.com/hireloop/hireloop/internal/interview"
	"github.com/hireloop/hireloop/internal/observe"
	"github.com/hireloop/hireloop/internal/router"
	"github.com/hireloop/hireloop/internal/score"
)

const (
	// redundancyThreshold rejects a candidate question whose embedding
	// similarity to an already-asked question reaches this value.
	redundancyThreshold = 0.75

	// lexicalThreshold is the JaroWinkler score treated as a near-duplicate
	// without consulting embeddings.
	lexicalThreshold = 0.93

	// qualityFloor discards smart-path questions the model rates below this.
	qualityFloor = 40

	// maxAttempts bounds generation retries before the static fallback.
	maxAttempts = 3

	// DefaultPlanned is the planning horizon for the type progression.
	DefaultPlanned = 15
)

// TextGenerator is the slice of the model router the generator needs.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, opts router.Opts) (string, error)
}

// Params carries the session context for one generation call. It is defined
// next to the controller that assembles it.
type Params = interview.GenParams

// Generator produces interview questions. Safe for concurrent use.
type Generator struct {
	llm     TextGenerator
	scorer  *score.Scorer
	planned int
	metrics *observe.Metrics
}

// NewGenerator creates a Generator. planned <= 0 selects [DefaultPlanned].
func NewGenerator(llm TextGenerator, scorer *score.Scorer, planned int) *Generator {
	if planned <= 0 {
		planned = DefaultPlanned
	}
	return &Generator{
		llm:     llm,
		scorer:  scorer,
		planned: planned,
		metrics: observe.DefaultMetrics(),
	}
}

// DifficultyFor maps the last overall score to the difficulty ladder.
// A negative score (no answers yet) starts at medium.
func DifficultyFor(last float64) interview.Difficulty {
	switch {
	case last < 0:
		return interview.DifficultyMedium
	case last >= 80:
		return interview.DifficultyHard
	case last >= 50:
		return interview.DifficultyMedium
	default:
		return interview.DifficultyEasy
	}
}

// TypeFor returns the planned question type for position number in a
// progression of planned questions. The HR round is always behavioural.
func TypeFor(number, planned int, round interview.Round) interview.QuestionType {
	if round == interview.RoundHR {
		return interview.TypeBehavioral
	}
	if planned <= 0 {
		planned = DefaultPlanned
	}
	if number < 1 {
		number = 1
	}
	progression := []interview.QuestionType{
		interview.TypeConceptual,
		interview.TypeScenario,
		interview.TypeTradeoff,
		interview.TypeDesign,
		interview.TypeDebugging,
	}
	idx := (number - 1) * len(progression) / planned
	if idx >= len(progression) {
		idx = len(progression) - 1
	}
	return progression[idx]
}

// Next generates the next question for the session described by p.
// It never fails: when every model path misfires it falls back to the static
// per-role lists.
func (g *Generator) Next(ctx context.Context, p Params) interview.Question {
	difficulty := DifficultyFor(p.LastScore)
	corpus := append(append([]string(nil), p.Asked...), p.Avoid...)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		q, source, err := g.generate(ctx, p, difficulty)
		if err != nil {
			slog.Warn("model question generation failed", "attempt", attempt, "err", err)
			break
		}
		if g.redundant(ctx, q.Text, corpus) {
			slog.Debug("question rejected as redundant", "attempt", attempt, "question", q.Text)
			continue
		}
		g.metrics.RecordQuestionGenerated(ctx, string(source))
		return q
	}

	q := g.static(ctx, p, difficulty, corpus)
	g.metrics.RecordQuestionGenerated(ctx, string(interview.SourceStatic))
	return q
}

// generate runs the smart path and, when it misfires, the monolithic
// fallback prompt. Returns an error only when no model answered at all.
func (g *Generator) generate(ctx context.Context, p Params, difficulty interview.Difficulty) (interview.Question, interview.QuestionSource, error) {
	q, smartErr := g.smart(ctx, p, difficulty)
	if smartErr == nil {
		q.Source = interview.SourceSmart
		return q, interview.SourceSmart, nil
	}
	slog.Debug("smart question path failed, using fallback prompt", "err", smartErr)

	q, fallbackErr := g.fallback(ctx, p, difficulty)
	if fallbackErr == nil {
		q.Source = interview.SourceFallback
		return q, interview.SourceFallback, nil
	}
	return interview.Question{}, "", fmt.Errorf("question: smart: %v; fallback: %w", smartErr, fallbackErr)
}

// smart generates through the typed prompt and enforces the quality gate.
func (g *Generator) smart(ctx context.Context, p Params, difficulty interview.Difficulty) (interview.Question, error) {
	qType := TypeFor(p.Number, g.planned, p.Round)
	prompt := smartPrompt(p, qType, difficulty)

	raw, err := g.llm.Generate(ctx, prompt, router.Opts{Temperature: 0.8})
	if err != nil {
		return interview.Question{}, err
	}

	var out struct {
		Question    string   `json:"question"`
		IdealAnswer string   `json:"ideal_answer"`
		Keywords    []string `json:"keywords"`
		IsCoding    bool     `json:"is_coding"`
		Quality     float64  `json:"quality"`
	}
	if err := decodeJSON(raw, &out); err != nil {
		return interview.Question{}, err
	}
	if strings.TrimSpace(out.Question) == "" {
		return interview.Question{}, fmt.Errorf("question: model returned empty question")
	}
	if out.Quality > 0 && out.Quality < qualityFloor {
		return interview.Question{}, fmt.Errorf("question: self-rated quality %.0f below floor", out.Quality)
	}

	return g.build(out.Question, out.IdealAnswer, out.Keywords, out.IsCoding, difficulty, qType, p.Round), nil
}

// fallback generates through the monolithic prompt.
func (g *Generator) fallback(ctx context.Context, p Params, difficulty interview.Difficulty) (interview.Question, error) {
	prompt := fallbackPrompt(p, difficulty)

	raw, err := g.llm.Generate(ctx, prompt, router.Opts{Temperature: 0.9})
	if err != nil {
		return interview.Question{}, err
	}

	var out struct {
		Question    string   `json:"question"`
		IdealAnswer string   `json:"ideal_answer"`
		Keywords    []string `json:"keywords"`
		IsCoding    bool     `json:"is_coding"`
	}
	if err := decodeJSON(raw, &out); err != nil {
		return interview.Question{}, err
	}
	if strings.TrimSpace(out.Question) == "" {
		return interview.Question{}, fmt.Errorf("question: model returned empty question")
	}

	return g.build(out.Question, out.IdealAnswer, out.Keywords, out.IsCoding, difficulty, TypeFor(p.Number, g.planned, p.Round), p.Round), nil
}

// static picks the first non-redundant entry from the per-role lists.
// Redundancy here is lexical only; the lists are small and curated.
func (g *Generator) static(ctx context.Context, p Params, difficulty interview.Difficulty, corpus []string) interview.Question {
	list := staticQuestions(p.Role, p.Round)

	for _, sq := range list {
		if !lexicallyRedundant(sq.Text, corpus) {
			return g.buildStatic(sq, difficulty, p.Round)
		}
	}
	// Every entry was asked before; rotate by position.
	sq := list[(p.Number-1+len(list))%len(list)]
	return g.buildStatic(sq, difficulty, p.Round)
}

// build assembles a Question value from model output.
func (g *Generator) build(text, ideal string, keywords []string, isCoding bool, difficulty interview.Difficulty, qType interview.QuestionType, round interview.Round) interview.Question {
	return interview.Question{
		ID:          uuid.NewString(),
		Text:        strings.TrimSpace(text),
		IdealAnswer: strings.TrimSpace(ideal),
		Keywords:    normalizeKeywords(keywords),
		IsCoding:    isCoding,
		Difficulty:  difficulty,
		Round:       round,
		Type:        qType,
	}
}

// buildStatic assembles a Question from a static list entry.
func (g *Generator) buildStatic(sq staticQuestion, difficulty interview.Difficulty, round interview.Round) interview.Question {
	return interview.Question{
		ID:          uuid.NewString(),
		Text:        sq.Text,
		IdealAnswer: sq.IdealAnswer,
		Keywords:    normalizeKeywords(sq.Keywords),
		Difficulty:  difficulty,
		Round:       round,
		Type:        sq.Type,
		Source:      interview.SourceStatic,
	}
}

// redundant reports whether text is too close to any corpus member: a
// lexical near-duplicate, or an embedding similarity at or above the gate.
func (g *Generator) redundant(ctx context.Context, text string, corpus []string) bool {
	if len(corpus) == 0 {
		return false
	}
	if lexicallyRedundant(text, corpus) {
		return true
	}
	sim, _ := g.scorer.MaxSimilarity(ctx, text, corpus)
	return sim >= redundancyThreshold
}

// lexicallyRedundant reports whether text is a JaroWinkler near-duplicate of
// any corpus member.
func lexicallyRedundant(text string, corpus []string) bool {
	lower := strings.ToLower(text)
	for _, c := range corpus {
		if matchr.JaroWinkler(lower, strings.ToLower(c), true) >= lexicalThreshold {
			return true
		}
	}
	return false
}

// normalizeKeywords trims, deduplicates, and caps the keyword list at five.
func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, 5)
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		lower := strings.ToLower(k)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, k)
		if len(out) == 5 {
			break
		}
	}
	return out
}
