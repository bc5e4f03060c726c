package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"embeddings": {"openai", "local"},
}

// DefaultModelChain is the model rotation used when models.chain is empty.
// The head is the preferred model; the tail members absorb quota exhaustion.
var DefaultModelChain = []string{
	"gemini-2.5-flash",
	"gemini-2.0-flash",
	"gemini-1.5-flash",
	"gemini-2.0-flash-lite",
	"gemini-1.5-flash-8b",
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, expands
// ${ENV_VAR} references in secrets, and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	expandSecrets(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-valued tunables with their documented defaults.
func applyDefaults(cfg *Config) {
	if len(cfg.Models.Chain) == 0 {
		cfg.Models.Chain = slices.Clone(DefaultModelChain)
	}
	if cfg.Models.CooldownSeconds <= 0 {
		cfg.Models.CooldownSeconds = 60
	}
	if cfg.Models.FastMaxTokens <= 0 {
		cfg.Models.FastMaxTokens = 512
	}
	if cfg.Models.StandardMaxTokens <= 0 {
		cfg.Models.StandardMaxTokens = 2048
	}
	if cfg.Interview.TechnicalCutoff <= 0 {
		cfg.Interview.TechnicalCutoff = 70
	}
	if cfg.Interview.PlannedQuestions <= 0 {
		cfg.Interview.PlannedQuestions = 15
	}
	if cfg.Interview.DefaultDurationMinutes <= 0 {
		cfg.Interview.DefaultDurationMinutes = 30
	}
	if cfg.Interview.DeepEvalTimeoutSeconds <= 0 {
		cfg.Interview.DeepEvalTimeoutSeconds = 15
	}
	if cfg.Proctor.GazePenalty <= 0 {
		cfg.Proctor.GazePenalty = 3
	}
	if cfg.Proctor.MultiPersonPenalty <= 0 {
		cfg.Proctor.MultiPersonPenalty = 15
	}
	if cfg.Proctor.TabSwitchPenalty <= 0 {
		cfg.Proctor.TabSwitchPenalty = 10
	}
	if cfg.Proctor.AwaySecondPenalty <= 0 {
		cfg.Proctor.AwaySecondPenalty = 0.5
	}
}

// expandSecrets resolves ${ENV_VAR} references in credential fields so API
// keys never need to live in the config file itself.
func expandSecrets(cfg *Config) {
	cfg.Providers.LLM.APIKey = os.ExpandEnv(cfg.Providers.LLM.APIKey)
	cfg.Providers.Embeddings.APIKey = os.ExpandEnv(cfg.Providers.Embeddings.APIKey)
	cfg.Storage.PostgresDSN = os.ExpandEnv(cfg.Storage.PostgresDSN)
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)

	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; question generation will run on static fallbacks only")
	}

	// Models
	for i, m := range cfg.Models.Chain {
		if m == "" {
			errs = append(errs, fmt.Errorf("models.chain[%d] is empty", i))
		}
	}
	if cfg.Models.FastMaxTokens > cfg.Models.StandardMaxTokens {
		errs = append(errs, fmt.Errorf("models.fast_max_tokens %d exceeds models.standard_max_tokens %d", cfg.Models.FastMaxTokens, cfg.Models.StandardMaxTokens))
	}

	// Interview
	if cfg.Interview.TechnicalCutoff > 100 {
		errs = append(errs, fmt.Errorf("interview.technical_cutoff %.1f is out of range [0, 100]", cfg.Interview.TechnicalCutoff))
	}

	// Storage
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; sessions will not survive a restart")
	}
	if cfg.Storage.PostgresDSN != "" && cfg.Storage.EmbeddingDimensions <= 0 {
		slog.Warn("storage.postgres_dsn is configured but storage.embedding_dimensions is not set; defaulting to 1536")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
