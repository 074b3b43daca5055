// Package main provides a CLI tool for historical backfill: it rescans
// the chain from the configured start block and rebuilds the daily rollup
// table from scratch.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/burn-tracker/internal/adapter"
	"github.com/burn-tracker/internal/config"
	"github.com/burn-tracker/internal/logging"
	"github.com/burn-tracker/internal/service"
	"github.com/burn-tracker/internal/storage"
	"github.com/burn-tracker/internal/worker"
)

func main() {
	var (
		reset       = flag.Bool("reset", false, "Wipe the ledger, daily table and checkpoint before scanning")
		rebuildOnly = flag.Bool("rebuild-only", false, "Skip scanning; recompute the daily table from the existing ledger")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logging.InitGlobalLogger(logging.ParseLevel(cfg.Logging.Level), logging.ParseFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	burnRepo := storage.NewBurnRepository(postgres)
	dailyRepo := storage.NewDailyBurnRepository(postgres)
	checkpointRepo := storage.NewCheckpointRepository(postgres)
	rollup := service.NewRollupService(burnRepo, dailyRepo, cfg.Tracking.StartDate)

	ctx := context.Background()

	if *rebuildOnly {
		logger.WithField("startDate", cfg.Tracking.StartDate).Info("Rebuilding daily table from ledger")
		if err := rollup.FullRebuild(ctx, cfg.Tracking.StartDate); err != nil {
			logger.WithError(err).Fatal("Rebuild failed")
		}
		logger.Info("Rebuild complete")
		return
	}

	if *reset {
		logger.Warn("Resetting ledger, daily table and checkpoint")
		if err := dailyRepo.Reset(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to reset daily table")
		}
		if err := burnRepo.Reset(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to reset ledger")
		}
		if err := checkpointRepo.Reset(ctx, "UNI"); err != nil {
			logger.WithError(err).Fatal("Failed to reset checkpoint")
		}
	}

	indexer, err := adapter.NewIndexerClient(&cfg.Chain)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create indexer client")
	}
	defer indexer.Close()

	priceClient := adapter.NewPriceClient(&cfg.Price)
	ingest := service.NewIngestService(burnRepo, priceClient, rollup, nil)

	w, err := worker.NewIngestWorker(&worker.IngestWorkerConfig{
		Feed:        indexer,
		Checkpoints: checkpointRepo,
		Ingester:    ingest,
		Token:       "UNI",
		StartBlock:  cfg.Chain.StartBlock,
		MaxBlocks:   cfg.Chain.MaxBlocksPerScan,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create ingest worker")
	}

	// Run cycles back to back until the scan catches up with the
	// confirmed head.
	for {
		head, err := indexer.SafeHead(ctx)
		if err != nil {
			logger.WithError(err).Fatal("Failed to read chain head")
		}

		cp, err := checkpointRepo.Get(ctx, "UNI")
		if err != nil {
			logger.WithError(err).Fatal("Failed to read checkpoint")
		}

		from := cfg.Chain.StartBlock
		if cp != nil {
			from = cp.LastScannedBlock + 1
		}
		if from > head {
			break
		}

		logger.WithFields(map[string]interface{}{
			"from": from,
			"head": head,
		}).Info("Backfill progress")

		if err := w.RunCycle(ctx); err != nil {
			logger.WithError(err).Fatal("Backfill cycle failed")
		}
	}

	logger.Info("Backfill complete")
}
