package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prism-ops/llm-resilience/config"
	"github.com/prism-ops/llm-resilience/internal/breaker"
	"github.com/prism-ops/llm-resilience/internal/clock"
	"github.com/prism-ops/llm-resilience/internal/gateway"
	"github.com/prism-ops/llm-resilience/internal/httpserver"
	"github.com/prism-ops/llm-resilience/internal/journal"
	"github.com/prism-ops/llm-resilience/internal/poller"
	"github.com/prism-ops/llm-resilience/pkg/logger"
)

const (
	pollTimeout       = 5 * time.Second
	journalBufferSize = 256
)

func main() {
	cfg, err := config.LoadGateway()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, true, cfg.Environment, "gateway")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sink := openJournal(ctx, cfg.IncidentLogPath, log)

	br := breaker.New(cfg.HalfOpenRatio, cfg.HalfOpenSuccessThreshold, clock.Real{}, sink, log)

	healthPoller := poller.New(cfg.HealthEndpoint, cfg.HealthInterval(), pollTimeout, br, log)
	healthPoller.Start(ctx)

	handler := gateway.NewHandler(log, br, gateway.NewForwarder(cfg.RequestTimeout()),
		gateway.Backend{Name: "primary", URL: cfg.PrimaryURL, Token: cfg.PrimaryToken},
		gateway.Backend{Name: "fallback", URL: cfg.FallbackURL, Token: cfg.FallbackToken})

	srv, err := httpserver.New(fmt.Sprintf(":%d", cfg.Port), handler.Routes())
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("Gateway listening",
		slog.Int("port", cfg.Port),
		slog.String("primary", cfg.PrimaryURL),
		slog.String("fallback", cfg.FallbackURL),
		slog.String("health_endpoint", cfg.HealthEndpoint))

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
			log.Error("Error starting gateway", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// openJournal opens the incident journal, falling back to a no-op sink when
// the path is unwritable. A broken journal degrades auditing, never routing.
func openJournal(ctx context.Context, path string, log *slog.Logger) journal.Sink {
	jnl, err := journal.Open(path, journalBufferSize, log)
	if err != nil {
		log.Warn("Incident journal disabled",
			slog.String("path", path),
			slog.Any("err", err))
		return journal.Nop{}
	}

	jnl.Start(ctx)
	return jnl
}
