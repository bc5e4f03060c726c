// Package anyllm provides a universal text generator backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports Gemini, Groq, OpenAI, Ollama, DeepSeek, Mistral, and more.
//
// The interview engine routes across several models of one provider family
// (free-tier Gemini rotation by default), so the model name is not bound at
// construction time; it arrives with each request.
//
// Usage:
//
//	g, err := anyllm.New("gemini", anyllmlib.WithAPIKey("..."))
//	text, err := g.Generate(ctx, llm.GenerateRequest{Model: "gemini-2.5-flash", Prompt: "..."})
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/hireloop/hireloop/pkg/provider/llm"
)

// Ensure Generator implements llm.Generator at compile time.
var _ llm.Generator = (*Generator)(nil)

// Generator implements llm.Generator by wrapping github.com/mozilla-ai/any-llm-go.
type Generator struct {
	backend anyllmlib.Provider
	name    string
}

// New creates a Generator backed by the given provider family.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq", "llamacpp", "llamafile".
//
// opts are any-llm-go configuration options (e.g., anyllmlib.WithAPIKey,
// anyllmlib.WithBaseURL). If no API key option is provided, the provider falls
// back to the relevant environment variable (GEMINI_API_KEY, GROQ_API_KEY...).
func New(providerName string, opts ...anyllmlib.Option) (*Generator, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}
	return &Generator{backend: backend, name: providerName}, nil
}

// NewGemini creates a Generator backed by Google Gemini.
// Without options, it reads the GEMINI_API_KEY or GOOGLE_API_KEY environment variable.
func NewGemini(opts ...anyllmlib.Option) (*Generator, error) {
	return New("gemini", opts...)
}

// NewGroq creates a Generator backed by Groq.
// Without options, it reads the GROQ_API_KEY environment variable.
func NewGroq(opts ...anyllmlib.Option) (*Generator, error) {
	return New("groq", opts...)
}

// NewOpenAI creates a Generator backed by OpenAI.
// Without options, it reads the OPENAI_API_KEY environment variable.
func NewOpenAI(opts ...anyllmlib.Option) (*Generator, error) {
	return New("openai", opts...)
}

// NewOllama creates a Generator backed by Ollama (local inference).
// Without options, it connects to http://localhost:11434.
func NewOllama(opts ...anyllmlib.Option) (*Generator, error) {
	return New("ollama", opts...)
}

// ProviderName returns the provider family this generator dispatches to.
func (g *Generator) ProviderName() string { return g.name }

// Generate implements llm.Generator.
func (g *Generator) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	if req.Model == "" {
		return "", fmt.Errorf("anyllm: model must not be empty")
	}

	params := buildParams(req)
	resp, err := g.backend.Completion(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anyllm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm: empty choices in response")
	}
	return resp.Choices[0].Message.ContentString(), nil
}

// buildParams converts a GenerateRequest into anyllm CompletionParams.
func buildParams(req llm.GenerateRequest) anyllmlib.CompletionParams {
	var messages []anyllmlib.Message

	if req.SystemPrompt != "" {
		messages = append(messages, anyllmlib.Message{
			Role:    anyllmlib.RoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, anyllmlib.Message{
		Role:    anyllmlib.RoleUser,
		Content: req.Prompt,
	})

	params := anyllmlib.CompletionParams{
		Model:    req.Model,
		Messages: messages,
	}
	if req.Temperature != 0 {
		t := req.Temperature
		params.Temperature = &t
	}
	if req.MaxTokens > 0 {
		mt := req.MaxTokens
		params.MaxTokens = &mt
	}
	return params
}

// createBackend creates the underlying any-llm-go provider for the given name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}
