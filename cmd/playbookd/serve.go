package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"playbookd/internal/api"
	"playbookd/internal/config"
	"playbookd/internal/engine"
	"playbookd/internal/session"
	"playbookd/internal/worker"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and background workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg config.Config) error {
	logger := newLogger(cfg.LogLevel)

	db, err := session.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	store, err := session.NewStore(db)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	sessions := session.NewManager(store, logger, cfg.OutputsDir, cfg.RetentionWindow, cfg.PurgeDelay)

	// Sessions interrupted by a previous shutdown go back to the queue.
	if err := sessions.ResetStale(parent); err != nil {
		logger.Warn("reset stale sessions", "error", err)
	}

	eng := buildEngine(cfg, logger)
	pipeline := engine.NewPipeline(eng, sessions, logger, cfg.PipelineTimeout)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.New(sessions, logger, cfg.CORSOrigin).Handler(),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		worker.New(sessions, pipeline, logger, cfg.WorkerInterval).Start(ctx)
		return nil
	})
	g.Go(func() error {
		worker.NewSweeper(sessions, logger, cfg.SweepInterval).Start(ctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("server listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildEngine selects the generation backend from configuration, falling
// back to the stub when no provider key is available.
func buildEngine(cfg config.Config, logger *slog.Logger) engine.Engine {
	if cfg.UseStubs() {
		logger.Info("no model API key configured, using stub engine",
			"transcript_mode", cfg.StubTranscript)
		return &engine.StubEngine{Transcript: cfg.StubTranscript}
	}

	var client engine.ModelClient
	switch cfg.LLMProvider {
	case "claude":
		logger.Info("using Claude model client", "model", cfg.AnthropicModel)
		client = engine.NewClaudeClient(cfg.AnthropicKey, engine.WithClaudeModel(cfg.AnthropicModel))
	case "gemini":
		logger.Info("using Gemini model client", "model", cfg.GeminiModel)
		client = engine.NewGeminiClient(cfg.GeminiKey, engine.WithGeminiModel(cfg.GeminiModel))
	case "ollama":
		logger.Info("using Ollama model client", "model", cfg.OllamaModel, "url", cfg.OllamaURL)
		client = engine.NewOllamaClient(cfg.OllamaURL, engine.WithOllamaModel(cfg.OllamaModel))
	default:
		logger.Info("using OpenAI model client", "model", cfg.OpenAIModel)
		client = engine.NewOpenAIClient(cfg.OpenAIKey,
			engine.WithModel(cfg.OpenAIModel), engine.WithBaseURL(cfg.OpenAIBaseURL))
	}
	return engine.NewLLMEngine(client, logger)
}
