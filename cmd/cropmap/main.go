package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/colocaviz/cropmap-service/internal/adapter/http"
	"github.com/colocaviz/cropmap-service/internal/app"
	"github.com/colocaviz/cropmap-service/internal/config"
	"github.com/colocaviz/cropmap-service/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	a, err := app.New(cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to initialize service", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, a.Service, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Warm the dataset so readiness flips without waiting for a request.
	// A failure is not fatal; the next request retries the load.
	go func() {
		if err := a.Service.Warm(ctx); err != nil {
			logger.Warn("dataset warm-up failed", "error", err)
			return
		}
		logger.Info("dataset loaded", "url", cfg.DatasetURL)
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := a.Close(); err != nil {
		logger.Error("body cache close error", "error", err)
	}

	logger.Info("shutdown complete")
}
