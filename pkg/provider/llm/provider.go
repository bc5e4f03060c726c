// Package llm defines the Generator interface for Large Language Model backends.
//
// A generator wraps a remote model API (e.g., Google Gemini, Groq, or an OpenAI
// compatible endpoint) and exposes a uniform single-shot text generation call.
// The model identifier travels inside each [GenerateRequest] so that a caller
// holding one Generator can rotate through several models of the same provider
// family, which is what the interview engine's model router does when a
// free-tier model runs out of quota.
//
// Implementors must be safe for concurrent use.
package llm

import (
	"context"
	"errors"
)

// GenerateRequest carries everything the model needs to produce a response.
// Callers should treat a zero-value request as invalid; at minimum Model and
// Prompt must be non-empty.
type GenerateRequest struct {
	// Model is the provider-specific model identifier (e.g., "gemini-2.5-flash",
	// "llama-3.3-70b-versatile"). Required.
	Model string

	// SystemPrompt is an optional high-priority instruction injected before the
	// user prompt. Implementations that lack a dedicated system slot prepend it
	// as a system-role message.
	SystemPrompt string

	// Prompt is the user-facing input that drives the response. Required.
	Prompt string

	// Temperature controls output randomness in the range [0.0, 2.0]. Zero
	// requests the provider default.
	Temperature float64

	// MaxTokens caps the number of completion tokens the model may generate.
	// Zero means use the provider default.
	MaxTokens int
}

// Generator is the abstraction over any text-generation backend.
//
// Implementations must be safe for concurrent use from multiple goroutines and
// must propagate context cancellation promptly.
type Generator interface {
	// Generate sends req to the model identified by req.Model and waits for the
	// full text response. Returns an error if the request fails or ctx is
	// cancelled before the completion arrives.
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// StatusError is an error that carries the HTTP status returned by the model
// backend. The model router uses it to recognise quota exhaustion (429) and
// capacity shedding (503) without parsing provider-specific error text.
type StatusError struct {
	// Code is the HTTP status code reported by the backend.
	Code int

	// Err is the underlying transport error.
	Err error
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Err == nil {
		return "llm: backend error"
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is / errors.As chains.
func (e *StatusError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status code.
func (e *StatusError) StatusCode() int { return e.Code }

// AsStatus extracts the HTTP status code from err, if any. The second return
// is false when err carries no status information.
func AsStatus(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}
