// Package cli provides common CLI initialization utilities shared by
// cmd/tracker, cmd/tracker-worker, cmd/receipt-scheduler and
// cmd/tracker-mcp.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"expensetracker/internal/backend"
	"expensetracker/internal/config"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// NewLogger builds the logger of one component for cfg.
func NewLogger(cfg *config.Config, component string) *applog.Logger {
	return applog.New(applog.ForEnvironment(cfg.IsProduction(), cfg.SlogLevel(), component))
}

// SetupLogger builds the component logger for cfg and installs it as the
// default slog logger.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	logger := NewLogger(cfg, component)
	applog.SetDefault(logger)
	return logger
}

// Bootstrap loads .env and the configuration, sets up logging and
// validates. It exits the process on invalid configuration.
func Bootstrap(component string) (*config.Config, *applog.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg, logger
}

// OpenBackend opens the configured store and event client, exiting the
// process on failure.
func OpenBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) *backend.BackendResult {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.StorageBackend)
		os.Exit(1)
	}
	return res
}

// NewServices wires the ledger services over an opened backend.
func NewServices(cfg *config.Config, res *backend.BackendResult) *services.Services {
	deps := services.Deps{
		Store:           res.Store,
		Logger:          NewLogger(cfg, applog.ComponentLedger).Logger,
		SummaryCacheTTL: cfg.CacheTTL,
	}
	// A nil *amqp.Client must not become a non-nil interface.
	if res.Events != nil {
		deps.Events = res.Events
	}
	return services.New(deps)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
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

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
