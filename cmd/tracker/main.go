package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/cache"
	"expensetracker/internal/cli"
	apphttp "expensetracker/internal/http"
	applog "expensetracker/internal/log"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	cfg, logger := cli.Bootstrap(applog.ComponentApp)
	logger.Info("Starting tracker", "environment", cfg.Environment, "backend", cfg.StorageBackend)

	res := cli.OpenBackend(context.Background(), logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to release backend", "error", err)
		}
	}()

	svc := cli.NewServices(cfg, res)

	caches := cache.NewManager()
	caches.Register(svc.Summary.Cache())
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:         ":" + cfg.Port,
		RateLimitRPM: cfg.RateLimitRPM,
	}, svc, res.Store, cli.NewLogger(cfg, applog.ComponentHTTP))
	if err != nil {
		logger.Error("Failed to configure HTTP server", "error", err)
		os.Exit(1)
	}

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
