package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/sheetchat/internal/analyzer"
	"github.com/JonMunkholm/sheetchat/internal/audit"
	"github.com/JonMunkholm/sheetchat/internal/config"
	"github.com/JonMunkholm/sheetchat/internal/core"
	"github.com/JonMunkholm/sheetchat/internal/logging"
	"github.com/JonMunkholm/sheetchat/internal/sheets"
	"github.com/JonMunkholm/sheetchat/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded", "config", cfg.String())
	if !cfg.Sheets.Enabled() {
		slog.Warn(core.SheetsKeyMissingBanner)
	}
	if !cfg.Gemini.Enabled() {
		slog.Warn(core.GeminiKeyMissingBanner)
	}

	ctx := context.Background()

	opts := []core.Option{}
	if cfg.Audit.Enabled() {
		pool, err := audit.Connect(ctx, cfg.Audit)
		if err != nil {
			slog.Error("failed to connect to activity database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		store := audit.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare activity log", "error", err)
			os.Exit(1)
		}
		opts = append(opts, core.WithRecorder(store))
		slog.Info("activity log enabled")
	}

	fetcher := sheets.NewFetcher(
		sheets.WithBaseURL(cfg.Sheets.BaseURL),
		sheets.WithHTTPClient(sheets.NewHTTPClient(cfg.Sheets.Timeout)),
	)

	an, err := analyzer.New(ctx, cfg.Gemini.APIKey, analyzer.WithModel(cfg.Gemini.Model))
	if err != nil {
		slog.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}

	service := core.NewService(fetcher, an, cfg, opts...)
	server := web.NewServer(service, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	go service.StartSessionSweeper(jobCtx, core.SweepConfig{
		IdleTTL:       cfg.Session.IdleTTL,
		CheckInterval: cfg.Session.SweepInterval,
	})

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Let in-flight questions finish recording their answers.
		if active := service.Status().Limiter.Active; active > 0 {
			slog.Info("waiting for model calls to complete", "active", active)
			if err := service.WaitForCalls(shutdownCtx); err != nil {
				slog.Warn("model calls did not complete in time", "error", err)
			}
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
