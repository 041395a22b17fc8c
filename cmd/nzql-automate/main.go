// Command nzql-automate runs a single automation pass against the stored
// snapshot and exits. It is meant for cron.
package main

import (
	"context"
	"os"
	"time"
	_ "time/tzdata"

	"nzql/internal/cli"
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
		logger.Error("Automation pass failed", log.FieldError, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, closeStore, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	notifier, closeNotifier := cli.NewNotifier(cfg, logger)
	defer closeNotifier()

	runner := services.NewAutomationRunner(store, notifier, cfg.AutomationInterval, logger)
	res, err := runner.RunOnce(ctx)
	if err != nil {
		return err
	}

	logger.Info("Automation pass complete",
		log.FieldCount, len(res.Transactions),
		log.FieldEventKeys, res.Keys)
	return nil
}
