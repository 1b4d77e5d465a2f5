package main

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cltracker/internal/amqp"
	"cltracker/internal/backend"
	"cltracker/internal/cache"
	"cltracker/internal/cli"
	"cltracker/internal/config"
	"cltracker/internal/log"
	"cltracker/internal/storage"
	"cltracker/internal/worker"
)

const (
	shutdownTimeout = 30 * time.Second
	sweepInterval   = 10 * time.Minute
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(config.Load().LogLevel).WithComponent(log.ComponentWorker)
	logger.Info("Starting cltracker-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)

	// The worker always keeps the mirror, MIRROR_ENABLED only governs the CLI.
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath).WithLogger(logger)
	if version, dirty, err := storage.SchemaVersion(cfg.SQLiteDBPath); err != nil {
		logger.Warn("Cannot read mirror schema version", log.FieldError, err)
	} else {
		logger.Info("SQLite mirror ready", log.FieldPath, cfg.SQLiteDBPath, "schema_version", version, "dirty", dirty)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid report backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to create report backend", log.FieldError, err)
		os.Exit(1)
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
	} else {
		logger.Info("AMQP disabled, reconciling on the interval only")
	}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			if amqpClient != nil {
				if err := amqpClient.Close(); err != nil {
					logger.Warn("Failed to close AMQP client", log.FieldError, err)
				}
			}
			if err := res.Cleanup(); err != nil {
				logger.Warn("Failed to clean up report backend", log.FieldError, err)
			}
			if err := repo.Close(); err != nil {
				logger.Warn("Failed to close SQLite mirror", log.FieldError, err)
			}
		})
	}

	// Connections close only after the running pass has returned.
	stopped := make(chan struct{})
	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func() {
		<-stopped
		cleanup()
	})

	w := worker.NewReconcileWorker(cfg.LedgerPath, repo, res.Backend, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx, cfg.ReconcileInterval)
	})
	if amqpClient != nil {
		g.Go(func() error {
			return amqpClient.ConsumeLedgerSaved(gctx, w.HandleLedgerSaved)
		})
	}
	if cleaner, ok := res.Backend.(cache.Cleaner); ok {
		janitor := cache.NewJanitor(cleaner)
		g.Go(func() error {
			return janitor.Run(gctx, sweepInterval, func(removed int) {
				if removed > 0 {
					logger.Debug("Expired cache entries removed", log.FieldRecords, removed)
				}
			})
		})
	}

	logger.Info("Worker running",
		log.FieldPath, cfg.LedgerPath,
		"interval", cfg.ReconcileInterval.String(),
		"backend", bcfg.Type.String())

	err = g.Wait()
	close(stopped)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", log.FieldError, err)
		cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped", log.FieldOperation, log.OpShutdown)
}
