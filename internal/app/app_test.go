package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/hireloop/hireloop/internal/config"
	"github.com/hireloop/hireloop/internal/interview"
	"github.com/hireloop/hireloop/internal/store"
	"github.com/hireloop/hireloop/pkg/provider/embeddings/local"
)

type stubGen struct {
	mu    sync.Mutex
	count int
	last  interview.GenParams
}

func (g *stubGen) Next(_ context.Context, p interview.GenParams) interview.Question {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.count++
	g.last = p
	return interview.Question{
		ID:          fmt.Sprintf("q%d", g.count),
		Text:        fmt.Sprintf("question %d", g.count),
		IdealAnswer: "ideal",
		Keywords:    []string{"keyword"},
		Difficulty:  interview.DifficultyMedium,
		Round:       p.Round,
		Type:        interview.TypeConceptual,
		Source:      interview.SourceSmart,
	}
}

func (g *stubGen) AnalyzeJD(context.Context, string, string) *interview.JDProfile {
	return &interview.JDProfile{ExperienceLevel: "mid"}
}

type stubEval struct{}

func (stubEval) Instant(_ context.Context, _ interview.Question, _ string) interview.Evaluation {
	return interview.Evaluation{Overall: 75, Strength: interview.StrengthModerate, Phase: interview.PhaseInstant}
}

func (stubEval) Deepen(_ context.Context, _ interview.Question, _ string, ev interview.Evaluation) interview.Evaluation {
	ev.Phase = interview.PhaseDeep
	return ev
}

func (stubEval) Code(_ context.Context, _ interview.Question, _, _ string) interview.Evaluation {
	return interview.Evaluation{Overall: 75, Phase: interview.PhaseCode}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	a, err := New(context.Background(), &config.Config{}, &Providers{},
		WithSessionStore(store.NewMemStore()),
		WithGenerator(&stubGen{}),
		WithEvaluator(stubEval{}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv := httptest.NewServer(a.routes())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestInterviewFlow(t *testing.T) {
	srv := newTestServer(t)

	// Start.
	resp := postJSON(t, srv.URL+"/api/interviews", map[string]any{
		"candidate_token": "cand-1",
		"job_role":        "Backend Engineer",
		"jd":              "Go engineer wanted.",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start status = %d", resp.StatusCode)
	}
	started := decode[struct {
		Session  *interview.Session  `json:"session"`
		Question *interview.Question `json:"question"`
	}](t, resp)
	if started.Question == nil {
		t.Fatal("no first question")
	}
	id := started.Session.ID

	// Answering without naming the question is rejected.
	resp = postJSON(t, srv.URL+"/api/interviews/"+id+"/answers", map[string]string{
		"answer": "my answer",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("answer without question_id status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()

	// Answering a question that is not pending is a 404.
	resp = postJSON(t, srv.URL+"/api/interviews/"+id+"/answers", map[string]string{
		"question_id": "stale", "answer": "my answer",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("stale question_id status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()

	// Answer.
	resp = postJSON(t, srv.URL+"/api/interviews/"+id+"/answers", map[string]string{
		"question_id": started.Question.ID, "answer": "my answer",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("answer status = %d", resp.StatusCode)
	}
	res := decode[interview.SubmitResult](t, resp)
	if res.Evaluation.Overall != 75 || res.NextQuestion == nil {
		t.Errorf("submit result = %+v", res)
	}

	// Time status.
	timeResp, err := http.Get(srv.URL + "/api/interviews/" + id + "/time")
	if err != nil {
		t.Fatal(err)
	}
	ts := decode[interview.TimeStatus](t, timeResp)
	if ts.IsExpired {
		t.Error("fresh session expired")
	}

	// Violation.
	resp = postJSON(t, srv.URL+"/api/interviews/"+id+"/violations", map[string]string{
		"type": "tab_switch", "detail": "blur",
	})
	v := decode[struct {
		Integrity float64 `json:"integrity"`
	}](t, resp)
	if v.Integrity != 90 {
		t.Errorf("integrity = %v, want 90", v.Integrity)
	}

	// Violation with an away duration: 3 more off plus 4 s at 0.5 each.
	resp = postJSON(t, srv.URL+"/api/interviews/"+id+"/violations", map[string]any{
		"type": "gaze_away", "duration_sec": 4.0,
	})
	v = decode[struct {
		Integrity float64 `json:"integrity"`
	}](t, resp)
	if v.Integrity != 85 {
		t.Errorf("integrity = %v, want 85 after gaze_away with duration", v.Integrity)
	}

	// Frame.
	resp = postJSON(t, srv.URL+"/api/interviews/"+id+"/frames", map[string]any{
		"gaze_score": 90.0, "face_count": 1,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("frame status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// End.
	resp = postJSON(t, srv.URL+"/api/interviews/"+id+"/end", nil)
	ended := decode[interview.Session](t, resp)
	if ended.Status != interview.StatusCompleted {
		t.Errorf("ended status = %v", ended.Status)
	}

	// Report.
	repResp, err := http.Get(srv.URL + "/api/interviews/" + id + "/report")
	if err != nil {
		t.Fatal(err)
	}
	rep := decode[map[string]any](t, repResp)
	if rep["session_id"] != id {
		t.Errorf("report session_id = %v", rep["session_id"])
	}

	// Answering a finished session conflicts.
	resp = postJSON(t, srv.URL+"/api/interviews/"+id+"/answers", map[string]string{
		"question_id": "any", "answer": "late",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("answer after end status = %d, want 409", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestStartValidation(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/interviews", map[string]string{"candidate_token": "c"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without job_role", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUnknownSession(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/interviews/nope")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/interviews/nope/answers", map[string]string{
		"question_id": "q1", "answer": "x",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("answer status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

type fakeBank struct {
	mu      sync.Mutex
	added   []string
	similar []string
}

func (b *fakeBank) AddQuestion(_ context.Context, _, _, text string, _ []float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.added = append(b.added, text)
	return nil
}

func (b *fakeBank) SimilarQuestions(context.Context, string, []float32, int) ([]string, error) {
	return b.similar, nil
}

func TestBankedGenerator(t *testing.T) {
	gen := &stubGen{}
	bank := &fakeBank{similar: []string{"peer question"}}
	bg := &bankedGenerator{QuestionGenerator: gen, bank: bank, emb: local.New(8)}

	q := bg.Next(context.Background(), interview.GenParams{
		SessionID: "s1", GroupID: "g1", Role: "Backend Engineer",
	})
	if len(bank.added) != 1 || bank.added[0] != q.Text {
		t.Errorf("bank.added = %v, want the generated question", bank.added)
	}
	if got := gen.last.Avoid; len(got) != 1 || got[0] != "peer question" {
		t.Errorf("avoid list = %v, want bank neighbours", got)
	}

	// Standalone sessions never touch the bank.
	bg.Next(context.Background(), interview.GenParams{SessionID: "s2", Role: "Backend Engineer"})
	if len(bank.added) != 1 {
		t.Errorf("bank grew for a groupless session: %v", bank.added)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz = %d", resp.StatusCode)
	}
}
