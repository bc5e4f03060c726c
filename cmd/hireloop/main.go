// Command hireloop is the main entry point for the hireloop interview server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/hireloop/hireloop/internal/app"
	"github.com/hireloop/hireloop/internal/config"
	"github.com/hireloop/hireloop/internal/observe"
	"github.com/hireloop/hireloop/pkg/provider/embeddings/local"
	oaembed "github.com/hireloop/hireloop/pkg/provider/embeddings/openai"
	"github.com/hireloop/hireloop/pkg/provider/llm/anyllm"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "hireloop: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "hireloop: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("hireloop starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownObserve, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "hireloop",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}

	providers, err := buildProviders(cfg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	if err := shutdownObserve(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return 0
}

// buildProviders instantiates the configured LLM transport and embeddings
// backend.
func buildProviders(cfg *config.Config) (*app.Providers, error) {
	ps := &app.Providers{}

	if name := cfg.Providers.LLM.Name; name != "" {
		var opts []anyllmlib.Option
		if cfg.Providers.LLM.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(cfg.Providers.LLM.APIKey))
		}
		if cfg.Providers.LLM.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(cfg.Providers.LLM.BaseURL))
		}
		g, err := anyllm.New(name, opts...)
		if err != nil {
			return nil, fmt.Errorf("create llm provider %q: %w", name, err)
		}
		ps.LLM = g
		slog.Info("provider created", "kind", "llm", "name", name)
	}

	switch name := cfg.Providers.Embeddings.Name; name {
	case "openai":
		var opts []oaembed.Option
		if cfg.Providers.Embeddings.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(cfg.Providers.Embeddings.BaseURL))
		}
		p, err := oaembed.New(cfg.Providers.Embeddings.APIKey, cfg.Providers.Embeddings.Model, opts...)
		if err != nil {
			return nil, fmt.Errorf("create embeddings provider %q: %w", name, err)
		}
		ps.Embeddings = p
		slog.Info("provider created", "kind", "embeddings", "name", name)
	case "local", "":
		ps.Embeddings = local.New(cfg.Storage.EmbeddingDimensions)
		slog.Info("provider created", "kind", "embeddings", "name", "local")
	default:
		slog.Warn("unknown embeddings provider, using local hashing", "name", name)
		ps.Embeddings = local.New(cfg.Storage.EmbeddingDimensions)
	}

	return ps, nil
}

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔════════════════════════════════════════╗")
	fmt.Println("║         hireloop — startup summary     ║")
	fmt.Println("╠════════════════════════════════════════╣")
	printRow("LLM", cfg.Providers.LLM.Name)
	printRow("Embeddings", cfg.Providers.Embeddings.Name)
	printRow("Model chain", fmt.Sprintf("%d models", len(cfg.Models.Chain)))
	if cfg.Storage.PostgresDSN != "" {
		printRow("Storage", "postgres")
	} else {
		printRow("Storage", "in-memory")
	}
	printRow("Cutoff", fmt.Sprintf("%.0f", cfg.Interview.TechnicalCutoff))
	if cfg.Server.ListenAddr != "" {
		printRow("Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚════════════════════════════════════════╝")
}

func printRow(key, value string) {
	if value == "" {
		value = "(not configured)"
	}
	if len(value) > 20 {
		value = value[:17] + "…"
	}
	fmt.Printf("║  %-14s : %-20s ║\n", key, value)
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
