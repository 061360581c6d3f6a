// Package main is the entry point for the Solana memecoin enrichment
// pipeline: it wires every dependency via the DI container, starts the
// enrichment worker pool, the mint-discovery subscriber, the health/readiness
// HTTP surface, and the maintenance scheduler, then blocks until it receives
// SIGINT/SIGTERM and drains everything in reverse order. Init order and
// graceful-drain shape are grounded on the teacher's cmd/server/main.go.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solsentinel/internal/config"
	"solsentinel/internal/di"
	"solsentinel/internal/worker"
	"solsentinel/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})
	log.Info().Msg("starting sentinel worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to wire dependencies")
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.Error().Err(err).Msg("error closing database")
		}
	}()

	pool := worker.NewPool(container.Worker, cfg.WorkerPoolSize)
	go pool.Run(ctx)
	log.Info().Int("workers", cfg.WorkerPoolSize).Msg("enrichment worker pool started")

	go func() {
		if err := container.Discovery.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("discovery subscriber stopped")
		}
	}()
	log.Info().Msg("mint discovery subscriber started")

	if container.WalletFeed != nil {
		go func() {
			if err := container.WalletFeed.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("wallet feed subscriber stopped")
			}
		}()
		log.Info().Msg("copy-trade wallet feed started")
	}

	if err := container.Scheduler.Start(ctx, cfg.BackupCron); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	log.Info().Msg("maintenance scheduler started")

	go func() {
		if err := container.Server.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start health server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("health server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutdown signal received, draining")
	cancel()

	container.Scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := container.Server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("sentinel worker stopped")
}
