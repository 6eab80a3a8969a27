package main

import (
	"context"
	"os/signal"
	"syscall"

	"internship/internal/config"
	"internship/internal/history"
	"internship/internal/logger"
	"internship/internal/platform"
)

// Worker consumes transition events and writes the request history.
func main() {
	cfg, err := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogPretty).With().Str("process", "worker").Logger()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.QueueBackend != "redis" {
		log.Fatal().Str("queue", cfg.QueueBackend).Msg("worker needs a shared queue; set QUEUE_BACKEND=redis")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends, err := platform.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open backends")
	}
	defer backends.Close()

	if err := history.NewConsumer(backends.Queue, backends.Store, log).Run(ctx); err != nil {
		log.Error().Err(err).Msg("consumer failed")
		return
	}
	log.Info().Msg("worker stopped")
}
