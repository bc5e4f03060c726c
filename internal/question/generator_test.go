package question

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/hireloop/hireloop/internal/interview"
	"github.com/hireloop/hireloop/internal/router"
	"github.com/hireloop/hireloop/internal/score"
	embmock "github.com/hireloop/hireloop/pkg/provider/embeddings/mock"
)

// stubLLM returns canned responses in sequence.
type stubLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

func (s *stubLLM) Generate(_ context.Context, prompt string, _ router.Opts) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", errors.New("stub: out of responses")
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	return r, nil
}

func newTestGenerator(llm *stubLLM, vectors map[string][]float32) *Generator {
	return NewGenerator(llm, score.New(&embmock.Provider{Vectors: vectors}), DefaultPlanned)
}

func TestDifficultyFor(t *testing.T) {
	tests := []struct {
		last float64
		want interview.Difficulty
	}{
		{-1, interview.DifficultyMedium},
		{0, interview.DifficultyEasy},
		{49.9, interview.DifficultyEasy},
		{50, interview.DifficultyMedium},
		{79.9, interview.DifficultyMedium},
		{80, interview.DifficultyHard},
		{100, interview.DifficultyHard},
	}
	for _, tt := range tests {
		if got := DifficultyFor(tt.last); got != tt.want {
			t.Errorf("DifficultyFor(%v) = %v, want %v", tt.last, got, tt.want)
		}
	}
}

func TestNextCalibratesOnLastScore(t *testing.T) {
	llm := &stubLLM{err: errors.New("boom")}
	g := newTestGenerator(llm, nil)

	// A weak last answer drops to easy even when the running mean is healthy.
	q := g.Next(context.Background(), Params{
		Role: "Backend Engineer", Round: interview.RoundTechnical,
		Number: 4, LastScore: 40, MeanScore: 65,
	})
	if q.Difficulty != interview.DifficultyEasy {
		t.Errorf("Difficulty = %v, want easy after a 40-score answer", q.Difficulty)
	}

	// A strong last answer escalates to hard regardless of the mean.
	q = g.Next(context.Background(), Params{
		Role: "Backend Engineer", Round: interview.RoundTechnical,
		Number: 5, LastScore: 85, MeanScore: 60,
	})
	if q.Difficulty != interview.DifficultyHard {
		t.Errorf("Difficulty = %v, want hard after an 85-score answer", q.Difficulty)
	}
}

func TestTypeFor(t *testing.T) {
	tests := []struct {
		number int
		round  interview.Round
		want   interview.QuestionType
	}{
		{1, interview.RoundTechnical, interview.TypeConceptual},
		{3, interview.RoundTechnical, interview.TypeConceptual},
		{4, interview.RoundTechnical, interview.TypeScenario},
		{7, interview.RoundTechnical, interview.TypeTradeoff},
		{10, interview.RoundTechnical, interview.TypeDesign},
		{13, interview.RoundTechnical, interview.TypeDebugging},
		{15, interview.RoundTechnical, interview.TypeDebugging},
		{99, interview.RoundTechnical, interview.TypeDebugging},
		{2, interview.RoundHR, interview.TypeBehavioral},
	}
	for _, tt := range tests {
		if got := TypeFor(tt.number, DefaultPlanned, tt.round); got != tt.want {
			t.Errorf("TypeFor(%d, %d, %v) = %v, want %v", tt.number, DefaultPlanned, tt.round, got, tt.want)
		}
	}
}

func TestNextSmartPath(t *testing.T) {
	llm := &stubLLM{responses: []string{
		`{"question": "Explain how connection pooling works.", "ideal_answer": "Reuse of open connections.", "keywords": ["pool", "connection", "reuse", "limit", "timeout", "extra"], "is_coding": false, "quality": 90}`,
	}}
	g := newTestGenerator(llm, nil)

	q := g.Next(context.Background(), Params{
		Role: "Backend Engineer", Round: interview.RoundTechnical,
		Number: 1, LastScore: -1, MeanScore: -1,
	})

	if q.Source != interview.SourceSmart {
		t.Errorf("Source = %v, want smart", q.Source)
	}
	if q.Text != "Explain how connection pooling works." {
		t.Errorf("Text = %q", q.Text)
	}
	if q.Difficulty != interview.DifficultyMedium {
		t.Errorf("Difficulty = %v, want medium for fresh session", q.Difficulty)
	}
	if q.Type != interview.TypeConceptual {
		t.Errorf("Type = %v, want conceptual for question 1", q.Type)
	}
	if len(q.Keywords) != 5 {
		t.Errorf("Keywords = %v, want capped at 5", q.Keywords)
	}
	if q.ID == "" {
		t.Error("ID not assigned")
	}
}

func TestNextQualityGateUsesFallback(t *testing.T) {
	llm := &stubLLM{responses: []string{
		`{"question": "Low effort question?", "quality": 20}`,
		`{"question": "Describe a cache invalidation strategy you have used.", "ideal_answer": "TTL plus explicit purge.", "keywords": ["cache", "ttl", "invalidation"]}`,
	}}
	g := newTestGenerator(llm, nil)

	q := g.Next(context.Background(), Params{
		Role: "Backend Engineer", Round: interview.RoundTechnical,
		Number: 2, LastScore: -1, MeanScore: -1,
	})

	if q.Source != interview.SourceFallback {
		t.Errorf("Source = %v, want fallback after quality gate", q.Source)
	}
	if !strings.Contains(q.Text, "cache invalidation") {
		t.Errorf("Text = %q, want fallback question", q.Text)
	}
}

func TestNextLexicalRedundancyRetries(t *testing.T) {
	asked := "Explain how connection pooling works."
	llm := &stubLLM{responses: []string{
		`{"question": "Explain how connection pooling works.", "quality": 90}`,
		`{"question": "How would you debug a connection leak?", "keywords": ["leak"], "quality": 85}`,
	}}
	g := newTestGenerator(llm, nil)

	q := g.Next(context.Background(), Params{
		Role: "Backend Engineer", Round: interview.RoundTechnical,
		Number: 2, Asked: []string{asked}, LastScore: -1, MeanScore: -1,
	})

	if q.Text != "How would you debug a connection leak?" {
		t.Errorf("Text = %q, want the non-duplicate retry", q.Text)
	}
	if len(llm.prompts) != 2 {
		t.Errorf("llm calls = %d, want 2 (duplicate then retry)", len(llm.prompts))
	}
}

func TestNextEmbeddingRedundancyRetries(t *testing.T) {
	asked := "Walk me through TCP connection establishment."
	dup := "Describe the TCP three-way handshake in detail."
	fresh := "How does TLS session resumption work?"
	llm := &stubLLM{responses: []string{
		`{"question": "` + dup + `", "quality": 90}`,
		`{"question": "` + fresh + `", "quality": 90}`,
	}}
	g := newTestGenerator(llm, map[string][]float32{
		asked: {1, 0, 0, 0},
		dup:   {0.99, 0.1, 0, 0},
		fresh: {0, 1, 0, 0},
	})

	q := g.Next(context.Background(), Params{
		Role: "Backend Engineer", Round: interview.RoundTechnical,
		Number: 3, Asked: []string{asked}, LastScore: -1, MeanScore: -1,
	})

	if q.Text != fresh {
		t.Errorf("Text = %q, want embedding-distinct retry %q", q.Text, fresh)
	}
}

func TestNextStaticFallback(t *testing.T) {
	llm := &stubLLM{err: errors.New("model backend down")}
	g := newTestGenerator(llm, nil)

	q := g.Next(context.Background(), Params{
		Role: "Backend Engineer", Round: interview.RoundTechnical,
		Number: 1, LastScore: -1, MeanScore: -1,
	})

	if q.Source != interview.SourceStatic {
		t.Errorf("Source = %v, want static when all models fail", q.Source)
	}
	if q.Text == "" || len(q.Keywords) == 0 {
		t.Errorf("static question incomplete: %+v", q)
	}
	if q.Round != interview.RoundTechnical {
		t.Errorf("Round = %v", q.Round)
	}
}

func TestNextStaticSkipsAsked(t *testing.T) {
	llm := &stubLLM{err: errors.New("model backend down")}
	g := newTestGenerator(llm, nil)

	first := staticBackend[0].Text
	q := g.Next(context.Background(), Params{
		Role: "Backend Engineer", Round: interview.RoundTechnical,
		Number: 2, Asked: []string{first}, LastScore: -1, MeanScore: -1,
	})

	if q.Text == first {
		t.Errorf("static fallback repeated an already-asked question: %q", q.Text)
	}
}

func TestNextHRRound(t *testing.T) {
	llm := &stubLLM{err: errors.New("model backend down")}
	g := newTestGenerator(llm, nil)

	q := g.Next(context.Background(), Params{
		Role: "Backend Engineer", Round: interview.RoundHR,
		Number: 8, LastScore: 75, MeanScore: 75,
	})

	if q.Type != interview.TypeBehavioral {
		t.Errorf("Type = %v, want behavioral in HR round", q.Type)
	}
	if q.Round != interview.RoundHR {
		t.Errorf("Round = %v", q.Round)
	}
}

func TestAnalyzeJD(t *testing.T) {
	t.Run("structured response", func(t *testing.T) {
		llm := &stubLLM{responses: []string{
			`{"required_skills": ["Go", "SQL"], "experience_level": "senior", "key_technologies": ["PostgreSQL"], "interview_focus_areas": ["distributed systems"]}`,
		}}
		g := newTestGenerator(llm, nil)

		p := g.AnalyzeJD(context.Background(), "Backend Engineer", "We need a senior Go engineer...")
		if p.ExperienceLevel != "senior" || len(p.RequiredSkills) != 2 {
			t.Errorf("profile = %+v", p)
		}
	})

	t.Run("model failure uses default", func(t *testing.T) {
		llm := &stubLLM{err: errors.New("down")}
		g := newTestGenerator(llm, nil)

		p := g.AnalyzeJD(context.Background(), "Backend Engineer", "We need a senior Go engineer...")
		if p == nil || len(p.RequiredSkills) == 0 {
			t.Errorf("default profile = %+v", p)
		}
		if p.ExperienceLevel != "mid" {
			t.Errorf("ExperienceLevel = %q, want mid default", p.ExperienceLevel)
		}
	})

	t.Run("empty jd uses default without model call", func(t *testing.T) {
		llm := &stubLLM{}
		g := newTestGenerator(llm, nil)

		p := g.AnalyzeJD(context.Background(), "Backend Engineer", "   ")
		if p == nil || len(p.InterviewFocusAreas) == 0 {
			t.Errorf("default profile = %+v", p)
		}
		if len(llm.prompts) != 0 {
			t.Errorf("model called %d times for empty jd", len(llm.prompts))
		}
	})
}

func TestNormalizeKeywords(t *testing.T) {
	got := normalizeKeywords([]string{" Go ", "go", "", "SQL", "Redis", "Kafka", "gRPC", "extra"})
	want := []string{"Go", "SQL", "Redis", "Kafka", "gRPC"}
	if len(got) != len(want) {
		t.Fatalf("normalizeKeywords = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keyword[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
