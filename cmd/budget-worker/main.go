package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"budget/internal/backend"
	"budget/internal/cli"
	applog "budget/internal/log"
	"budget/internal/services"
	"budget/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting budget-worker")

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	backends, err := backend.NewFactory(logger.Logger).Create(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backends", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := backends.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	}()

	if !backends.HasRemote() && backends.Reports == nil {
		logger.Warn("No remote store or report mirror configured, pending budgets will only be marked synced")
	}

	syncWorker := worker.NewSyncWorker(sqliteRepo, backends.Remote, backends.Reports,
		cfg.SyncBatchSize, cfg.SyncMaxAttempts, cfg.RemoteTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
	}

	processor := services.NewSyncProcessor(syncWorker, services.SyncProcessorConfig{
		PollInterval: cfg.SyncInterval,
		BatchSize:    cfg.SyncBatchSize,
		MaxRetries:   cfg.SyncMaxAttempts,
	})
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start sync processor", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	if backends.AMQP != nil {
		g.Go(func() error {
			err := backends.AMQP.ConsumeBudgetSync(gctx, syncWorker.HandleSyncMessage)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled, relying on periodic sync only", "interval", cfg.SyncInterval)
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down worker...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return processor.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
