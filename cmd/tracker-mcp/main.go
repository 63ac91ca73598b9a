package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/shopspring/decimal"

	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	applog "expensetracker/internal/log"
	"expensetracker/internal/mcptools"
	"expensetracker/internal/services"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	cli.LoadEnvFile()
	cfg := config.Load()

	// stdout carries the protocol, logs go to stderr.
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	logger := applog.New(applog.Config{
		Level:     cfg.SlogLevel(),
		Component: applog.ComponentMCP,
		Handler:   handler,
	})
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.StaticToken == "" {
		logger.Error("STATIC_TOKEN is required to resolve the MCP caller")
		os.Exit(1)
	}

	ctx := context.Background()
	res := cli.OpenBackend(ctx, logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to release backend", "error", err)
		}
	}()

	caller, err := res.Store.FindOwnerByToken(ctx, cfg.StaticToken)
	if err != nil {
		logger.Error("Failed to resolve MCP caller", "error", err)
		os.Exit(1)
	}

	s := server.NewMCPServer("tracker", "1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	svc := services.New(services.Deps{
		Store:           res.Store,
		Logger:          slog.New(handler).With(applog.FieldComponent, applog.ComponentLedger),
		SummaryCacheTTL: cfg.CacheTTL,
	})
	mcptools.RegisterTools(s, mcptools.New(svc, caller))

	logger.Info("Serving MCP over stdio", "backend", cfg.StorageBackend)
	if err := server.ServeStdio(s, server.WithErrorLogger(slog.NewLogLogger(handler, slog.LevelError))); err != nil {
		logger.Error("MCP server error", "error", err)
		os.Exit(1)
	}
}
