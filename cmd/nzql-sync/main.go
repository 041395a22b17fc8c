// Command nzql-sync pushes the stored snapshot to the configured sync
// targets once and exits.
package main

import (
	"context"
	"net/http"
	"os"
	_ "time/tzdata"

	"nzql/internal/cli"
	"nzql/internal/cloudsync"
	"nzql/internal/config"
	"nzql/internal/log"
	"nzql/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.DefaultConfig().Level)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.Level())

	if err := run(cfg, logger); err != nil {
		logger.Error("Sync failed", log.FieldError, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.SyncTimeout)
	defer cancel()

	store, closeStore, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	notifier, closeNotifier := cli.NewNotifier(cfg, logger)
	defer closeNotifier()

	mirror, err := cli.NewMirror(ctx, cfg, logger)
	if err != nil {
		return err
	}

	syncer := services.NewSyncer(store, cloudsync.NewClient(&http.Client{Timeout: cfg.SyncTimeout}), mirror, notifier,
		services.SyncConfig{Timeout: cfg.SyncTimeout}, logger)
	res, err := syncer.Sync(ctx)
	if err != nil {
		return err
	}
	logger.Info("Sync complete", "success", res.Success, "time", res.Time)
	return nil
}
