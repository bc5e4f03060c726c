package router

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hireloop/hireloop/pkg/provider/llm"
	llmmock "github.com/hireloop/hireloop/pkg/provider/llm/mock"
)

var testChain = []string{"model-a", "model-b", "model-c"}

func newTestRouter(t *testing.T, gen llm.Generator) *Router {
	t.Helper()
	r, err := New(gen, Config{Chain: testChain, Cooldown: 60 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

// scriptedGen fails with errs[model] when set, otherwise answers "ok:<model>".
func scriptedGen(errs map[string]error) *llmmock.Generator {
	return &llmmock.Generator{
		Fn: func(_ context.Context, req llm.GenerateRequest) (string, error) {
			if err, ok := errs[req.Model]; ok && err != nil {
				return "", err
			}
			return "ok:" + req.Model, nil
		},
	}
}

func quotaErr(model string) error {
	return fmt.Errorf("generate %s: 429 RESOURCE_EXHAUSTED: quota exceeded", model)
}

func TestGenerateRotatesOnQuota(t *testing.T) {
	gen := scriptedGen(map[string]error{"model-a": quotaErr("model-a")})
	r := newTestRouter(t, gen)

	text, err := r.Generate(context.Background(), "hello", Opts{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "ok:model-b" {
		t.Errorf("text = %q, want %q", text, "ok:model-b")
	}

	calls := gen.Calls()
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}
	if calls[0].Req.Model != "model-a" || calls[1].Req.Model != "model-b" {
		t.Errorf("attempt order = [%s, %s], want [model-a, model-b]", calls[0].Req.Model, calls[1].Req.Model)
	}
}

func TestGenerateSticksToLastSuccess(t *testing.T) {
	gen := scriptedGen(map[string]error{"model-a": quotaErr("model-a")})
	r := newTestRouter(t, gen)

	if _, err := r.Generate(context.Background(), "first", Opts{}); err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	gen.Reset()

	// model-b is now active; the second call must try it first even though
	// model-a leads the configured chain (model-a is also still benched).
	if _, err := r.Generate(context.Background(), "second", Opts{}); err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	calls := gen.Calls()
	if len(calls) != 1 || calls[0].Req.Model != "model-b" {
		t.Errorf("second call went to %v, want single call to model-b", calls)
	}
}

func TestGenerateCooldownExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	gen := scriptedGen(map[string]error{"model-a": quotaErr("model-a")})
	r := newTestRouter(t, gen)
	r.SetClock(func() time.Time { return now })

	if _, err := r.Generate(context.Background(), "first", Opts{}); err != nil {
		t.Fatalf("first Generate: %v", err)
	}

	// model-a recovers; clear its scripted failure and move past the cooldown.
	gen.Fn = func(_ context.Context, req llm.GenerateRequest) (string, error) {
		return "ok:" + req.Model, nil
	}
	gen.Reset()
	now = now.Add(61 * time.Second)

	// model-b stays active after its success, so the available order is
	// [model-b, model-a, model-c] with nothing benched.
	if _, err := r.Generate(context.Background(), "second", Opts{}); err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	calls := gen.Calls()
	if len(calls) != 1 || calls[0].Req.Model != "model-b" {
		t.Fatalf("second call went to %v, want model-b", calls)
	}

	snap := r.Snapshot()
	for _, st := range snap {
		if st.CooldownRemaining != 0 {
			t.Errorf("model %s still cooling after expiry: %v", st.Model, st.CooldownRemaining)
		}
	}
}

func TestGenerateBenchedModelsAreLastResort(t *testing.T) {
	calls := 0
	gen := &llmmock.Generator{
		Fn: func(_ context.Context, req llm.GenerateRequest) (string, error) {
			calls++
			// First round: every model is quota-limited. Second round: the
			// benched models answer again.
			if calls <= len(testChain) {
				return "", quotaErr(req.Model)
			}
			return "ok:" + req.Model, nil
		},
	}
	r := newTestRouter(t, gen)

	if _, err := r.Generate(context.Background(), "first", Opts{}); !errors.Is(err, ErrExhausted) {
		t.Fatalf("first Generate err = %v, want ErrExhausted", err)
	}
	if calls != len(testChain) {
		t.Fatalf("first call attempted %d models, want %d (each model once)", calls, len(testChain))
	}

	// All models benched: the next call still attempts them as last resort.
	text, err := r.Generate(context.Background(), "second", Opts{})
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if text != "ok:model-a" {
		t.Errorf("text = %q, want benched chain head model-a first", text)
	}
}

func TestGenerateAbortsOnNonQuotaError(t *testing.T) {
	gen := scriptedGen(map[string]error{"model-a": errors.New("invalid request: prompt too long")})
	r := newTestRouter(t, gen)

	_, err := r.Generate(context.Background(), "bad", Opts{})
	if err == nil {
		t.Fatal("Generate returned nil error for a fatal failure")
	}
	if errors.Is(err, ErrExhausted) {
		t.Errorf("fatal error classified as exhaustion: %v", err)
	}
	if got := len(gen.Calls()); got != 1 {
		t.Errorf("got %d attempts, want 1 (no rotation on fatal errors)", got)
	}
}

func TestGenerateFastLaneTokenBudget(t *testing.T) {
	gen := &llmmock.Generator{Response: "ok"}
	r, err := New(gen, Config{Chain: testChain, FastMaxTokens: 512, StandardMaxTokens: 2048})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := r.Generate(context.Background(), "a", Opts{Fast: true}); err != nil {
		t.Fatalf("fast Generate: %v", err)
	}
	if _, err := r.Generate(context.Background(), "b", Opts{}); err != nil {
		t.Fatalf("standard Generate: %v", err)
	}

	calls := gen.Calls()
	if calls[0].Req.MaxTokens != 512 {
		t.Errorf("fast lane MaxTokens = %d, want 512", calls[0].Req.MaxTokens)
	}
	if calls[1].Req.MaxTokens != 2048 {
		t.Errorf("standard lane MaxTokens = %d, want 2048", calls[1].Req.MaxTokens)
	}
}

func TestIsQuotaError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"http 429 text", errors.New("google: 429 Too Many Requests"), true},
		{"resource exhausted", errors.New("rpc error: RESOURCE_EXHAUSTED"), true},
		{"rate limit", errors.New("Rate limit reached for requests"), true},
		{"overloaded", errors.New("the model is overloaded, try again later"), true},
		{"status 429", &llm.StatusError{Code: 429, Err: errors.New("slow down")}, true},
		{"status 503", &llm.StatusError{Code: 503, Err: errors.New("unavailable")}, true},
		{"status 400", &llm.StatusError{Code: 400, Err: errors.New("bad request")}, false},
		{"plain failure", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsQuotaError(tt.err); got != tt.want {
				t.Errorf("IsQuotaError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
