package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/apresai/interviewcast/internal/config"
	"github.com/apresai/interviewcast/internal/mcpserver"
	"github.com/apresai/interviewcast/internal/observability"
)

var version = "dev"

func main() {
	logger := observability.InitLogger(os.Stdout, slog.LevelInfo)
	slog.SetDefault(logger)

	logger.Info("interviewcast MCP server starting", "version", version)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdown, err := observability.InitTracer(ctx, "interviewcast-mcp", version)
	if err != nil {
		logger.Warn("failed to init tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("tracer shutdown error", "error", err)
			}
		}()
	}

	base := config.Load()
	if err := base.LoadSecrets(ctx, logger); err != nil {
		logger.Warn("failed to load secrets from Secrets Manager, falling back to env vars", "error", err)
	}

	srv, err := mcpserver.New(ctx, mcpserver.DefaultConfig(base), version, logger)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}
}
