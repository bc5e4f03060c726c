// Package app wires all hireloop subsystems into a running server.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves the HTTP API until the context is cancelled, and
// Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithSessionStore,
// WithGenerator, WithEvaluator). When an option is not provided, New creates
// real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hireloop/hireloop/internal/config"
	"github.com/hireloop/hireloop/internal/evaluate"
	"github.com/hireloop/hireloop/internal/interview"
	"github.com/hireloop/hireloop/internal/question"
	"github.com/hireloop/hireloop/internal/router"
	"github.com/hireloop/hireloop/internal/score"
	"github.com/hireloop/hireloop/internal/store"
	"github.com/hireloop/hireloop/internal/store/postgres"
	"github.com/hireloop/hireloop/pkg/provider/embeddings"
	"github.com/hireloop/hireloop/pkg/provider/embeddings/local"
	"github.com/hireloop/hireloop/pkg/provider/llm"
)

// unconfiguredLLM stands in when no LLM provider is configured. Every call
// fails with a non-quota error, so the router aborts immediately and callers
// take their local fallbacks.
type unconfiguredLLM struct{}

func (unconfiguredLLM) Generate(context.Context, llm.GenerateRequest) (string, error) {
	return "", errors.New("no llm provider configured")
}

// Providers holds one interface value per provider slot. Populated by main.go
// from the config.
type Providers struct {
	LLM        llm.Generator
	Embeddings embeddings.Provider
}

// App owns all subsystem lifetimes and serves the interview API.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems, initialised in New, torn down in Shutdown.
	sessions   interview.SessionStore
	modelChain *router.Router
	generator  interview.QuestionGenerator
	evaluator  interview.AnswerEvaluator
	controller *interview.Controller
	server     *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithSessionStore injects a session store instead of creating one from config.
func WithSessionStore(s interview.SessionStore) Option {
	return func(a *App) { a.sessions = s }
}

// WithGenerator injects a question generator instead of building the real one.
func WithGenerator(g interview.QuestionGenerator) Option {
	return func(a *App) { a.generator = g }
}

// WithEvaluator injects an answer evaluator instead of building the real one.
func WithEvaluator(e interview.AnswerEvaluator) Option {
	return func(a *App) { a.evaluator = e }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}

	// Session store: Postgres when a DSN is configured, in-memory otherwise.
	if a.sessions == nil {
		if dsn := cfg.Storage.PostgresDSN; dsn != "" {
			pg, err := postgres.New(ctx, dsn, cfg.Storage.EmbeddingDimensions)
			if err != nil {
				return nil, fmt.Errorf("app: connect session store: %w", err)
			}
			a.sessions = pg
			a.closers = append(a.closers, func() error { pg.Close(); return nil })
			slog.Info("session store ready", "backend", "postgres")
		} else {
			a.sessions = store.NewMemStore()
			slog.Warn("no postgres_dsn configured, sessions are held in memory only")
		}
	}

	// Model router over the configured chain. Without an LLM provider the
	// chain always errors, which drops question generation onto the static
	// lists and evaluation onto the instant phase.
	gen := providers.LLM
	if gen == nil {
		gen = unconfiguredLLM{}
	}
	chain := cfg.Models.Chain
	if len(chain) == 0 {
		chain = config.DefaultModelChain
	}
	r, err := router.New(gen, router.Config{
		Chain:             chain,
		Cooldown:          cfg.Models.Cooldown(),
		FastMaxTokens:     cfg.Models.FastMaxTokens,
		StandardMaxTokens: cfg.Models.StandardMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("app: build model router: %w", err)
	}
	a.modelChain = r

	emb := providers.Embeddings
	if emb == nil {
		emb = local.New(0)
	}
	scorer := score.New(emb)

	if a.generator == nil {
		a.generator = question.NewGenerator(a.modelChain, scorer, cfg.Interview.PlannedQuestions)
	}
	// The postgres store doubles as the group question bank.
	if bank, ok := a.sessions.(questionBank); ok {
		a.generator = &bankedGenerator{QuestionGenerator: a.generator, bank: bank, emb: emb}
	}
	if a.evaluator == nil {
		a.evaluator = evaluate.NewEvaluator(a.modelChain, scorer, cfg.Interview.DeepEvalTimeout())
	}

	a.controller = interview.NewController(a.sessions, a.generator, a.evaluator, interview.ControllerConfig{
		TechnicalCutoff:        cfg.Interview.TechnicalCutoff,
		PlannedQuestions:       cfg.Interview.PlannedQuestions,
		DefaultDurationMinutes: cfg.Interview.DefaultDurationMinutes,
		Weights:                proctorWeights(cfg.Proctor),
	})

	a.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Controller exposes the session controller, mainly for tests.
func (a *App) Controller() *interview.Controller { return a.controller }

// Run serves the HTTP API until ctx is cancelled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the HTTP server and closes all subsystems in order. Safe to
// call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	a.stopOnce.Do(func() {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("app: http shutdown: %w", err))
		}
		for _, closer := range a.closers {
			if err := closer(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
