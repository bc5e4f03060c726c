// Package mock provides a test double for the llm.Generator interface.
//
// Use Generator in unit tests to verify that the engine sends correct
// GenerateRequests and to feed controlled responses without a live model
// backend. All fields are safe to set before calling any method; mutating
// them during a concurrent call is the caller's responsibility.
//
// Example:
//
//	g := &mock.Generator{Response: `{"question": "..."}`}
//	text, err := g.Generate(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/hireloop/hireloop/pkg/provider/llm"
)

// GenerateCall records a single invocation of Generate.
type GenerateCall struct {
	// Ctx is the context passed to Generate.
	Ctx context.Context
	// Req is the GenerateRequest passed to Generate.
	Req llm.GenerateRequest
}

// Generator is a mock implementation of llm.Generator.
// Zero values cause Generate to return "" and a nil error. Set Err to inject
// a constant failure, or Fn for per-call behaviour.
type Generator struct {
	mu sync.Mutex

	// Response is returned by Generate when Fn is nil.
	Response string

	// Err, if non-nil, is returned as the error from Generate when Fn is nil.
	Err error

	// Fn, if non-nil, is called for each Generate invocation and overrides
	// Response and Err. Useful for per-model scripted behaviour.
	Fn func(ctx context.Context, req llm.GenerateRequest) (string, error)

	// GenerateCalls records every invocation of Generate in order.
	GenerateCalls []GenerateCall
}

// Generate records the call and returns the configured response.
func (g *Generator) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	g.mu.Lock()
	g.GenerateCalls = append(g.GenerateCalls, GenerateCall{Ctx: ctx, Req: req})
	fn := g.Fn
	resp, err := g.Response, g.Err
	g.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return resp, err
}

// Calls returns a copy of the recorded calls. Thread-safe.
func (g *Generator) Calls() []GenerateCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]GenerateCall, len(g.GenerateCalls))
	copy(out, g.GenerateCalls)
	return out
}

// Reset clears all recorded calls. Thread-safe.
func (g *Generator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.GenerateCalls = nil
}

// Ensure Generator implements llm.Generator at compile time.
var _ llm.Generator = (*Generator)(nil)
