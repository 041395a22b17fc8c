// Package cli provides the initialization shared by cmd/nzql,
// cmd/nzql-automate and cmd/nzql-sync.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"nzql/internal/advisory"
	"nzql/internal/amqp"
	"nzql/internal/backend"
	"nzql/internal/config"
	"nzql/internal/log"
	"nzql/internal/sheets"
	gsheet "nzql/internal/sheets/google"
	"nzql/internal/state"
)

// SetupLogger initializes structured logging at the given level and makes
// it the process default.
func SetupLogger(level slog.Level) *log.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return log.New(log.Config{Level: level, Component: log.ComponentApp, Handler: handler})
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore creates the configured storage backend and loads the store from
// it. The returned cleanup closes the backend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (*state.Store, func(), error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if res.Cleanup == nil {
			return
		}
		if err := res.Cleanup(); err != nil {
			logger.Warn("Failed to close storage backend", log.FieldError, err)
		}
	}
	store := state.Open(ctx, res.Repository, state.WithLogger(logger), state.WithLocation(loc))
	return store, cleanup, nil
}

// NewNotifier connects to AMQP when configured. A broker that cannot be
// reached disables notifications instead of failing startup; the returned
// notifier is nil in both cases.
func NewNotifier(cfg *config.Config, logger *log.Logger) (amqp.Notifier, func()) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP notifications disabled - no AMQP_URL provided")
		return nil, func() {}
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Warn("AMQP unavailable, notifications disabled", log.FieldError, err)
		return nil, func() {}
	}
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", log.FieldError, err)
		}
	}
}

// NewMirror builds the Google Sheets mirror when a spreadsheet is configured.
func NewMirror(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.SnapshotMirror, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("Google Sheets mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
		return nil, nil
	}
	client, err := gsheet.NewFromEnv(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, logger)
	if err != nil {
		return nil, fmt.Errorf("init Google Sheets mirror: %w", err)
	}
	logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}

// NewAdvisor builds the cached advisor. Without an API key every request
// answers with the unavailable placeholder.
func NewAdvisor(cfg *config.Config, logger *log.Logger) *advisory.Advisor {
	if cfg.AdvisorAPIKey == "" {
		logger.Info("Advisor disabled - no ADVISOR_API_KEY provided")
	}
	client := advisory.NewClient(cfg.AdvisorURL, cfg.AdvisorModel, cfg.AdvisorAPIKey, &http.Client{Timeout: 30 * time.Second})
	return advisory.NewAdvisor(client, cfg.AdviceCacheTTL, logger)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ran.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
