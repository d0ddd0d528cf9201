package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prism-ops/llm-resilience/config"
	"github.com/prism-ops/llm-resilience/internal/clock"
	"github.com/prism-ops/llm-resilience/internal/httpserver"
	"github.com/prism-ops/llm-resilience/internal/metrics"
	"github.com/prism-ops/llm-resilience/internal/watcher"
	"github.com/prism-ops/llm-resilience/pkg/logger"
)

func main() {
	cfg, err := config.LoadWatcher()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, true, cfg.Environment, "healthwatch")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	canary := metrics.NewCanary()

	w := watcher.New(cfg.Window(), watcher.Thresholds{
		P95SLOMS:       cfg.P95SLOMS,
		ErrorRateSLO:   cfg.ErrorRateSLO,
		ErrorRateAmber: cfg.ErrorRateAmber,
		MinSampleCount: cfg.MinSampleCount,
	}, clock.Real{}, canary, log)

	srv, err := httpserver.New(fmt.Sprintf(":%d", cfg.Port), w.Routes())
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("Health watcher listening",
		slog.Int("port", cfg.Port),
		slog.Int64("window_ms", cfg.WindowMS),
		slog.Int("min_sample_count", cfg.MinSampleCount))

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting health watcher", slog.Any("err", err))
			os.Exit(1)
		}
	}
}
