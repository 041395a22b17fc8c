package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"nzql/internal/cache"
	"nzql/internal/cli"
	"nzql/internal/cloudsync"
	apphttp "nzql/internal/http"
	"nzql/internal/log"
	"nzql/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.DefaultConfig().Level)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.Level())

	ctx := context.Background()
	store, closeStore, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer closeStore()

	notifier, closeNotifier := cli.NewNotifier(cfg, logger)
	defer closeNotifier()

	mirror, err := cli.NewMirror(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets mirror", log.FieldError, err)
		os.Exit(1)
	}

	advisor := cli.NewAdvisor(cfg, logger)
	caches := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	caches.Register(advisor.Cache())
	caches.StartCleanup(10 * time.Minute)

	runner := services.NewAutomationRunner(store, notifier, cfg.AutomationInterval, logger)
	syncer := services.NewSyncer(store, cloudsync.NewClient(&http.Client{Timeout: cfg.SyncTimeout}), mirror, notifier,
		services.SyncConfig{Debounce: cfg.SyncDebounce, Timeout: cfg.SyncTimeout}, logger)
	refresher := services.NewAdviceRefresher(store, advisor, cfg.AdviceDebounce, logger)

	srv := apphttp.NewServer(":"+cfg.Port, store, syncer, advisor, apphttp.Config{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := runner.Stop(shutdownCtx); err != nil {
			logger.Warn("Automation runner stop error", log.FieldError, err)
		}
		syncer.Stop()
		refresher.Stop()
		caches.Stop()
	})

	if err := runner.Start(runCtx); err != nil {
		logger.Error("Failed to start automation runner", log.FieldError, err)
		os.Exit(1)
	}
	if err := syncer.Start(runCtx); err != nil {
		logger.Error("Failed to start sync processor", log.FieldError, err)
		os.Exit(1)
	}
	refresher.Start(runCtx)

	logger.Info("Starting nzql server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", store.Location().String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(runCtx, done)
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}
