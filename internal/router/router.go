// Package router implements quota-aware rotation across a chain of models.
//
// Free-tier model APIs shed load with 429/503 responses long before an
// interview finishes. The router owns an ordered chain of model identifiers
// over a single [llm.Generator] transport, benches any model that reports
// quota exhaustion for a cooldown window, and sticks to whichever model
// answered last. Callers always have a non-model fallback path, so the router
// reports failure with an error rather than blocking or retrying forever.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hireloop/hireloop/internal/observe"
	"github.com/hireloop/hireloop/pkg/provider/llm"
)

// ErrExhausted is returned when every model in the chain is quota-limited
// within a single call.
var ErrExhausted = errors.New("router: all models quota-limited")

// quotaMarkers are lowercase substrings that identify quota or capacity
// errors in provider error text. Any other error is treated as fatal for the
// current call: retrying a malformed prompt against the next model would burn
// quota without changing the outcome.
var quotaMarkers = []string{
	"429",
	"resource_exhausted",
	"rate limit",
	"quota",
	"too many requests",
	"503",
	"overloaded",
	"capacity",
	"rate_limit_exceeded",
	"limit reached",
}

// Opts tunes a single generation call.
type Opts struct {
	// Fast selects the reduced token budget used for short classification
	// calls (depth ratings, quality checks).
	Fast bool

	// Temperature is passed through to the model. Zero means provider default.
	Temperature float64

	// SystemPrompt is an optional instruction prepended to the call.
	SystemPrompt string
}

// Config configures a [Router].
type Config struct {
	// Chain is the ordered model rotation. Must be non-empty.
	Chain []string

	// Cooldown is how long a quota-limited model is benched. Default 60 s.
	Cooldown time.Duration

	// FastMaxTokens caps fast-lane completions. Default 512.
	FastMaxTokens int

	// StandardMaxTokens caps standard-lane completions. Default 2048.
	StandardMaxTokens int
}

// Router rotates generation calls across a model chain with per-model
// cooldowns. Safe for concurrent use.
type Router struct {
	gen     llm.Generator
	chain   []string
	cool    time.Duration
	fastMax int
	stdMax  int
	metrics *observe.Metrics

	mu        sync.Mutex
	activeIdx int
	benchedAt map[string]time.Time

	// now is swappable for tests.
	now func() time.Time
}

// ModelStatus is a diagnostic view of one chain member.
type ModelStatus struct {
	// Model is the model identifier.
	Model string
	// Active reports whether this is the router's current preferred model.
	Active bool
	// CooldownRemaining is zero when the model is available.
	CooldownRemaining time.Duration
}

// New creates a Router over gen with the given config.
func New(gen llm.Generator, cfg Config) (*Router, error) {
	if gen == nil {
		return nil, fmt.Errorf("router: generator must not be nil")
	}
	if len(cfg.Chain) == 0 {
		return nil, fmt.Errorf("router: chain must not be empty")
	}
	cool := cfg.Cooldown
	if cool <= 0 {
		cool = 60 * time.Second
	}
	fastMax := cfg.FastMaxTokens
	if fastMax <= 0 {
		fastMax = 512
	}
	stdMax := cfg.StandardMaxTokens
	if stdMax <= 0 {
		stdMax = 2048
	}
	return &Router{
		gen:       gen,
		chain:     append([]string(nil), cfg.Chain...),
		cool:      cool,
		fastMax:   fastMax,
		stdMax:    stdMax,
		metrics:   observe.DefaultMetrics(),
		benchedAt: make(map[string]time.Time),
		now:       time.Now,
	}, nil
}

// SetClock replaces the router's time source. Intended for tests.
func (r *Router) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Generate runs prompt through the chain and returns the first successful
// completion. Quota errors bench the failing model and advance to the next
// candidate; any other error aborts the call. Each model is attempted at most
// once per call.
func (r *Router) Generate(ctx context.Context, prompt string, opts Opts) (string, error) {
	maxTokens := r.stdMax
	if opts.Fast {
		maxTokens = r.fastMax
	}

	var lastErr error
	for _, model := range r.attemptOrder() {
		start := r.clock()
		text, err := r.gen.Generate(ctx, llm.GenerateRequest{
			Model:        model,
			SystemPrompt: opts.SystemPrompt,
			Prompt:       prompt,
			Temperature:  opts.Temperature,
			MaxTokens:    maxTokens,
		})
		elapsed := r.clock().Sub(start)

		if err == nil {
			r.markSuccess(model)
			r.metrics.RecordModelAttempt(ctx, model, "ok")
			r.metrics.LLMDuration.Record(ctx, elapsed.Seconds())
			return text, nil
		}

		if IsQuotaError(err) {
			r.bench(model)
			r.metrics.RecordModelAttempt(ctx, model, "quota")
			slog.Warn("model quota-limited, rotating", "model", model, "cooldown", r.cool)
			lastErr = err
			continue
		}

		r.metrics.RecordModelAttempt(ctx, model, "error")
		slog.Error("model call failed", "model", model, "err", err)
		return "", fmt.Errorf("router: generate with %s: %w", model, err)
	}

	if lastErr != nil {
		return "", fmt.Errorf("%w: %v", ErrExhausted, lastErr)
	}
	return "", ErrExhausted
}

// Snapshot returns the current state of every chain member in chain order.
func (r *Router) Snapshot() []ModelStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	out := make([]ModelStatus, len(r.chain))
	for i, m := range r.chain {
		var remaining time.Duration
		if deadline, ok := r.benchedAt[m]; ok {
			if d := deadline.Sub(now); d > 0 {
				remaining = d
			}
		}
		out[i] = ModelStatus{
			Model:             m,
			Active:            i == r.activeIdx,
			CooldownRemaining: remaining,
		}
	}
	return out
}

// attemptOrder builds the per-call candidate list: the active model first if
// available, then remaining available models in chain order, then benched
// models in chain order as a last resort.
func (r *Router) attemptOrder() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	available := func(m string) bool {
		deadline, ok := r.benchedAt[m]
		return !ok || !now.Before(deadline)
	}

	order := make([]string, 0, len(r.chain))
	active := r.chain[r.activeIdx]
	if available(active) {
		order = append(order, active)
	}
	for _, m := range r.chain {
		if m != active && available(m) {
			order = append(order, m)
		}
	}
	for _, m := range r.chain {
		if !available(m) {
			order = append(order, m)
		}
	}
	return order
}

// markSuccess pins the chain to model and clears its cooldown.
func (r *Router) markSuccess(model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.chain {
		if m == model {
			if i != r.activeIdx {
				slog.Info("model switched", "from", r.chain[r.activeIdx], "to", model)
			}
			r.activeIdx = i
			break
		}
	}
	delete(r.benchedAt, model)
}

// bench records a cooldown deadline for model.
func (r *Router) bench(model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.benchedAt[model] = r.now().Add(r.cool)
}

// clock returns the current time from the swappable source.
func (r *Router) clock() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now()
}

// IsQuotaError reports whether err indicates quota exhaustion or temporary
// capacity shedding rather than a real request failure.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := llm.AsStatus(err); ok {
		if code == 429 || code == 503 {
			return true
		}
	}
	text := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
