package evaluate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hireloop/hireloop/internal/interview"
	"github.com/hireloop/hireloop/internal/router"
	"github.com/hireloop/hireloop/internal/score"
	embmock "github.com/hireloop/hireloop/pkg/provider/embeddings/mock"
)

// stubLLM dispatches on the incoming request so parallel calls in Deepen can
// be answered independently.
type stubLLM struct {
	mu      sync.Mutex
	fn      func(prompt string, opts router.Opts) (string, error)
	prompts []string
}

func (s *stubLLM) Generate(_ context.Context, prompt string, opts router.Opts) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	return s.fn(prompt, opts)
}

func newTestEvaluator(llm *stubLLM, vectors map[string][]float32) *Evaluator {
	return NewEvaluator(llm, score.New(&embmock.Provider{Vectors: vectors}), time.Second)
}

var poolQuestion = interview.Question{
	ID:          "q1",
	Text:        "How does connection pooling work?",
	IdealAnswer: "ideal",
	Keywords:    []string{"pool", "connection", "timeout"},
}

const poolAnswer = "It works because connections are reused. First a pool is created. Then clients borrow a connection and return it."

// sameVec makes answer and ideal embed identically, pinning similarity at 100.
var sameVec = map[string][]float32{
	"ideal":    {1, 0, 0, 0},
	poolAnswer: {1, 0, 0, 0},
}

func TestInstant(t *testing.T) {
	e := newTestEvaluator(&stubLLM{}, sameVec)

	ev := e.Instant(context.Background(), poolQuestion, poolAnswer)

	// 19 words, 3 sentences, no discourse markers.
	if ev.Similarity != 100 {
		t.Errorf("Similarity = %v, want 100", ev.Similarity)
	}
	if ev.KeywordScore != 66.7 {
		t.Errorf("KeywordScore = %v, want 66.7 (2 of 3)", ev.KeywordScore)
	}
	if ev.Content != 86.7 {
		t.Errorf("Content = %v, want 86.7", ev.Content)
	}
	if ev.Communication != 43 {
		t.Errorf("Communication = %v, want 43", ev.Communication)
	}
	if ev.Depth != 73.8 {
		t.Errorf("Depth = %v, want 73.8", ev.Depth)
	}
	if ev.Confidence != 50 {
		t.Errorf("Confidence = %v, want 50", ev.Confidence)
	}
	if ev.Overall != 70.5 {
		t.Errorf("Overall = %v, want 70.5", ev.Overall)
	}
	if ev.Strength != interview.StrengthModerate {
		t.Errorf("Strength = %v, want moderate", ev.Strength)
	}
	if ev.Phase != interview.PhaseInstant {
		t.Errorf("Phase = %v, want instant", ev.Phase)
	}
	if len(ev.MatchedKeywords) != 2 || len(ev.MissedKeywords) != 1 || ev.MissedKeywords[0] != "timeout" {
		t.Errorf("matched = %v, missed = %v", ev.MatchedKeywords, ev.MissedKeywords)
	}
	want := "Your answer aligns well with the expected response. " +
		"Consider mentioning: timeout. " +
		"Try to elaborate more — provide specific examples and details."
	if ev.Feedback != want {
		t.Errorf("Feedback = %q, want %q", ev.Feedback, want)
	}
}

func TestInstantFeedbackBands(t *testing.T) {
	tests := []struct {
		name             string
		sim, kwPct       float64
		missed           []string
		words, sentences int
		overall          float64
		want             string
	}{
		{
			name: "weak everything", sim: 20, kwPct: 0,
			missed: []string{"pool", "connection", "timeout", "reuse"},
			words: 10, sentences: 1, overall: 25,
			want: "Your answer doesn't closely match what was expected. " +
				"Consider mentioning: pool, connection, timeout. " +
				"Try to elaborate more — provide specific examples and details. " +
				"Review the core concepts and practice with concrete examples.",
		},
		{
			name: "strong everything", sim: 90, kwPct: 100,
			words: 80, sentences: 5, overall: 88,
			want: "Your answer aligns well with the expected response. " +
				"Good use of relevant technical terminology. " +
				"Strong response overall!",
		},
		{
			name: "long but unstructured", sim: 50, kwPct: 80,
			words: 60, sentences: 2, overall: 55,
			want: "Your answer partially covers the expected content. " +
				"Good use of relevant technical terminology. " +
				"Structure your answer into multiple points for clarity.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := instantFeedback(tt.sim, tt.kwPct, tt.missed, tt.words, tt.sentences, tt.overall)
			if got != tt.want {
				t.Errorf("instantFeedback = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInstantEmptyAnswer(t *testing.T) {
	e := newTestEvaluator(&stubLLM{}, nil)

	ev := e.Instant(context.Background(), poolQuestion, "   ")

	if ev.Overall != 0 || ev.Similarity != 0 || ev.Communication != 0 {
		t.Errorf("empty answer scored non-zero: %+v", ev)
	}
	if ev.Strength != interview.StrengthWeak {
		t.Errorf("Strength = %v, want weak", ev.Strength)
	}
	if ev.Feedback != "No answer provided." {
		t.Errorf("Feedback = %q", ev.Feedback)
	}
	if len(ev.MissedKeywords) != 3 {
		t.Errorf("MissedKeywords = %v, want all keywords", ev.MissedKeywords)
	}
}

func TestCommunicationScore(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   float64
	}{
		{"very short", "yes it does", 15},
		{"no structure", strings.Repeat("word ", 30), 55},
		{"capped", strings.Repeat("first because therefore however word word word. ", 30), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := communicationScore(tt.answer); got != tt.want {
				t.Errorf("communicationScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeepenSuccess(t *testing.T) {
	llm := &stubLLM{fn: func(_ string, opts router.Opts) (string, error) {
		if opts.Fast {
			return `{"depth": 90}`, nil
		}
		return "Strong mechanics. Next time quantify the pool sizing trade-off.", nil
	}}
	e := newTestEvaluator(llm, sameVec)

	base := e.Instant(context.Background(), poolQuestion, poolAnswer)
	ev := e.Deepen(context.Background(), poolQuestion, poolAnswer, base)

	if ev.Phase != interview.PhaseDeep {
		t.Errorf("Phase = %v, want deep", ev.Phase)
	}
	if ev.Depth != 90 {
		t.Errorf("Depth = %v, want 90 from model", ev.Depth)
	}
	if !strings.Contains(ev.Feedback, "pool sizing") {
		t.Errorf("Feedback = %q, want model feedback", ev.Feedback)
	}
	// Overall rebuilt with depth 90 instead of 73.8.
	if ev.Overall <= base.Overall {
		t.Errorf("Overall = %v, want raised above %v", ev.Overall, base.Overall)
	}
	if len(llm.prompts) != 2 {
		t.Errorf("llm calls = %d, want parallel depth and feedback", len(llm.prompts))
	}
}

func TestDeepenFallbacks(t *testing.T) {
	llm := &stubLLM{fn: func(string, router.Opts) (string, error) {
		return "", errors.New("model backend down")
	}}
	e := newTestEvaluator(llm, sameVec)

	base := e.Instant(context.Background(), poolQuestion, poolAnswer)
	ev := e.Deepen(context.Background(), poolQuestion, poolAnswer, base)

	if ev.Phase != interview.PhaseDeepFailed {
		t.Errorf("Phase = %v, want deep_failed", ev.Phase)
	}
	if ev.Depth != 80 {
		t.Errorf("Depth = %v, want similarity*0.8 = 80", ev.Depth)
	}
	if ev.Feedback == "" {
		t.Error("Feedback empty, want banded fallback")
	}
	if ev.Overall == 0 {
		t.Error("Overall not recomputed")
	}
}

func TestCode(t *testing.T) {
	llm := &stubLLM{fn: func(string, router.Opts) (string, error) {
		return `{"correctness": 85, "quality": 70, "efficiency": 60, "edge_case": 40,
			"overall": 72, "feedback": "Handles the happy path well.",
			"follow_up_questions": ["What happens if the input slice is empty?"]}`, nil
	}}
	e := newTestEvaluator(llm, nil)

	ev := e.Code(context.Background(), interview.Question{Text: "Reverse a linked list.", IsCoding: true}, "func reverse() {}", "go")

	if p := llm.prompts[0]; !strings.Contains(p, "(go)") {
		t.Errorf("prompt does not name the language: %q", p)
	}

	if ev.Phase != interview.PhaseCode {
		t.Errorf("Phase = %v, want code", ev.Phase)
	}
	if ev.Similarity != 85 || ev.Communication != 70 || ev.Efficiency != 60 || ev.EdgeCase != 40 {
		t.Errorf("dimensions = %+v", ev)
	}
	if ev.Overall != 72 {
		t.Errorf("Overall = %v, want 72", ev.Overall)
	}
	if len(ev.FollowUps) != 1 {
		t.Errorf("FollowUps = %v", ev.FollowUps)
	}
}

func TestCodeFallback(t *testing.T) {
	llm := &stubLLM{fn: func(string, router.Opts) (string, error) {
		return "", errors.New("model backend down")
	}}
	e := newTestEvaluator(llm, map[string][]float32{
		"ideal": {1, 0}, "code": {1, 0},
	})

	ev := e.Code(context.Background(), interview.Question{IdealAnswer: "ideal", IsCoding: true}, "code", "")

	if ev.Overall != 80 {
		t.Errorf("Overall = %v, want similarity*0.8 = 80", ev.Overall)
	}
	if ev.Efficiency != 50 || ev.EdgeCase != 40 {
		t.Errorf("fallback defaults = %+v", ev)
	}
	if ev.Phase != interview.PhaseCode {
		t.Errorf("Phase = %v, want code", ev.Phase)
	}
}

func TestSentenceCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"One. Two. Three.", 3},
		{"No terminal punctuation", 1},
		{"Ends mid sentence. And", 2},
		{"", 0},
		{"What?! Really.", 2},
	}
	for _, tt := range tests {
		if got := sentenceCount(tt.in); got != tt.want {
			t.Errorf("sentenceCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
