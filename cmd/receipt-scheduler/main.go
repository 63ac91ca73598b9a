package main

import (
	"context"
	"time"

	"expensetracker/internal/cli"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentScheduler)

	res := cli.OpenBackend(context.Background(), logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to release backend", "error", err)
		}
	}()

	if res.Events == nil {
		logger.Info("AMQP disabled - receipts will not reach the ledger mirror")
	}

	scheduler := services.NewReceiptScheduler(cli.NewServices(cfg, res), services.SchedulerConfig{
		Interval: cfg.SchedulerInterval,
		Amount:   cfg.DefaultAmount(),
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			logger.Error("Scheduler shutdown error", "error", err)
		}
	})

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start receipt scheduler", "error", err)
		return
	}

	cli.WaitForShutdown(ctx, done)
}
