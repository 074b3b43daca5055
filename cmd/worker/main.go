// Package main provides the ingestion worker entry point: it scans the
// chain for burn transfers, prices them, and keeps the daily rollup
// current.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/burn-tracker/internal/adapter"
	"github.com/burn-tracker/internal/config"
	"github.com/burn-tracker/internal/logging"
	"github.com/burn-tracker/internal/retry"
	"github.com/burn-tracker/internal/service"
	"github.com/burn-tracker/internal/storage"
	"github.com/burn-tracker/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(logging.ParseLevel(cfg.Logging.Level), logging.ParseFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	var cacheService service.CacheInvalidator
	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, skipping cache invalidation")
	} else {
		defer redis.Close()
		cacheService = storage.NewCacheService(redis, cfg.Cache.TTL)
	}

	indexer, err := adapter.NewIndexerClient(&cfg.Chain)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create indexer client")
	}
	defer indexer.Close()

	priceClient := adapter.NewPriceClient(&cfg.Price)

	burnRepo := storage.NewBurnRepository(postgres)
	dailyRepo := storage.NewDailyBurnRepository(postgres)
	checkpointRepo := storage.NewCheckpointRepository(postgres)

	rollup := service.NewRollupService(burnRepo, dailyRepo, cfg.Tracking.StartDate)
	ingest := service.NewIngestService(burnRepo, priceClient, rollup, cacheService)

	retryConfig := retry.DefaultRetryConfig()
	retryConfig.MaxAttempts = cfg.Ingest.MaxRetries

	ingestWorker, err := worker.NewIngestWorker(&worker.IngestWorkerConfig{
		Feed:         indexer,
		Checkpoints:  checkpointRepo,
		Ingester:     ingest,
		Token:        "UNI",
		StartBlock:   cfg.Chain.StartBlock,
		MaxBlocks:    cfg.Chain.MaxBlocksPerScan,
		PollInterval: cfg.Ingest.PollInterval,
		RetryConfig:  retryConfig,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create ingest worker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ingestWorker.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start ingest worker")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down ingest worker")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	if err := ingestWorker.Stop(stopCtx); err != nil {
		logger.WithError(err).Error("Ingest worker did not stop cleanly")
	}

	logger.Info("Worker exited")
}
