// Package worker schedules the periodic chain scan that feeds the
// ingestion core.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/burn-tracker/internal/errors"
	"github.com/burn-tracker/internal/logging"
	"github.com/burn-tracker/internal/models"
	"github.com/burn-tracker/internal/retry"
	"github.com/burn-tracker/internal/service"
)

// BurnFeed supplies raw burn transactions from the chain.
type BurnFeed interface {
	SafeHead(ctx context.Context) (int64, error)
	FetchBurns(ctx context.Context, fromBlock, toBlock int64) ([]*models.BurnTransaction, error)
}

// CheckpointStore persists scan progress between cycles.
type CheckpointStore interface {
	Get(ctx context.Context, token string) (*models.IngestCheckpoint, error)
	Save(ctx context.Context, cp *models.IngestCheckpoint) error
}

// Ingester runs one ingestion cycle over a fetched batch.
type Ingester interface {
	IngestBatch(ctx context.Context, txs []*models.BurnTransaction) (*service.IngestResult, error)
}

// IngestWorker polls the chain on a fixed interval, feeds each window of
// blocks through the ingestion core and advances the checkpoint. One
// worker per token; cycles never overlap.
type IngestWorker struct {
	feed         BurnFeed
	checkpoints  CheckpointStore
	ingester     Ingester
	token        string
	startBlock   int64
	maxBlocks    int64
	pollInterval time.Duration
	retryConfig  *retry.RetryConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// IngestWorkerConfig holds configuration for an ingest worker.
type IngestWorkerConfig struct {
	Feed         BurnFeed
	Checkpoints  CheckpointStore
	Ingester     Ingester
	Token        string
	StartBlock   int64
	MaxBlocks    int64 // Maximum blocks to scan per cycle
	PollInterval time.Duration
	RetryConfig  *retry.RetryConfig
}

// NewIngestWorker creates a new ingest worker.
func NewIngestWorker(cfg *IngestWorkerConfig) (*IngestWorker, error) {
	if cfg.Feed == nil {
		return nil, fmt.Errorf("burn feed cannot be nil")
	}
	if cfg.Checkpoints == nil {
		return nil, fmt.Errorf("checkpoint store cannot be nil")
	}
	if cfg.Ingester == nil {
		return nil, fmt.Errorf("ingester cannot be nil")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 60 * time.Second
	}

	maxBlocks := cfg.MaxBlocks
	if maxBlocks <= 0 {
		maxBlocks = 2000
	}

	retryConfig := cfg.RetryConfig
	if retryConfig == nil {
		retryConfig = retry.DefaultRetryConfig()
	}

	return &IngestWorker{
		feed:         cfg.Feed,
		checkpoints:  cfg.Checkpoints,
		ingester:     cfg.Ingester,
		token:        cfg.Token,
		startBlock:   cfg.StartBlock,
		maxBlocks:    maxBlocks,
		pollInterval: pollInterval,
		retryConfig:  retryConfig,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}, nil
}

// Start begins the polling loop in a goroutine.
func (w *IngestWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("ingest worker for %s is already running", w.token)
	}
	w.running = true
	w.mu.Unlock()

	logging.WithFields(map[string]interface{}{
		"token":        w.token,
		"pollInterval": w.pollInterval.String(),
		"maxBlocks":    w.maxBlocks,
	}).Info("Starting ingest worker")

	go w.pollLoop(ctx)

	return nil
}

// Stop gracefully stops the worker, waiting for an in-flight cycle.
func (w *IngestWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("ingest worker for %s is not running", w.token)
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
		logging.WithField("token", w.token).Info("Ingest worker stopped")
	case <-ctx.Done():
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	return nil
}

// pollLoop runs one cycle immediately, then one per tick. Cycle errors are
// logged and the loop keeps going; transient chain or storage failures
// must not kill the scanner.
func (w *IngestWorker) pollLoop(ctx context.Context) {
	defer close(w.doneCh)

	if err := w.RunCycle(ctx); err != nil {
		logging.WithField("token", w.token).WithError(err).Error("Ingestion cycle failed")
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if err := w.RunCycle(ctx); err != nil {
				logging.WithField("token", w.token).WithError(err).Error("Ingestion cycle failed")
			}
		}
	}
}

// RunCycle executes one scan-ingest-checkpoint cycle: resume from the
// block after the checkpoint (or the configured start block), scan up to
// maxBlocks through the confirmed head, ingest, then advance the
// checkpoint. The cycle is retried as a unit on retryable errors, which is
// safe because ingestion is idempotent end to end.
func (w *IngestWorker) RunCycle(ctx context.Context) error {
	cp, err := w.checkpoints.Get(ctx, w.token)
	if err != nil {
		return err
	}

	from := w.startBlock
	errCount := 0
	if cp != nil {
		from = cp.LastScannedBlock + 1
		errCount = cp.IngestErrors
	}

	head, err := w.feed.SafeHead(ctx)
	if err != nil {
		return w.recordFailure(ctx, cp, errCount, err)
	}

	if from > head {
		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"token": w.token,
			"from":  from,
			"head":  head,
		}).Debug("No confirmed blocks to scan")
		return nil
	}

	to := from + w.maxBlocks - 1
	if to > head {
		to = head
	}

	result := retry.WithExponentialBackoff(ctx, w.retryConfig, apperrors.IsRetryable, func(ctx context.Context, attempt int) error {
		txs, fetchErr := w.feed.FetchBurns(ctx, from, to)
		if fetchErr != nil {
			return fetchErr
		}
		_, ingestErr := w.ingester.IngestBatch(ctx, txs)
		return ingestErr
	})
	if !result.Success {
		return w.recordFailure(ctx, cp, errCount, result.LastError)
	}

	return w.checkpoints.Save(ctx, &models.IngestCheckpoint{
		Token:            w.token,
		LastScannedBlock: to,
		LastIngestAt:     time.Now().UTC(),
		IngestErrors:     0,
	})
}

// recordFailure bumps the checkpoint error counter without advancing the
// scanned block, so the failed window is rescanned next cycle.
func (w *IngestWorker) recordFailure(ctx context.Context, cp *models.IngestCheckpoint, errCount int, cause error) error {
	lastBlock := w.startBlock - 1
	lastIngest := time.Now().UTC()
	if cp != nil {
		lastBlock = cp.LastScannedBlock
		lastIngest = cp.LastIngestAt
	}

	saveErr := w.checkpoints.Save(ctx, &models.IngestCheckpoint{
		Token:            w.token,
		LastScannedBlock: lastBlock,
		LastIngestAt:     lastIngest,
		IngestErrors:     errCount + 1,
	})
	if saveErr != nil {
		logging.FromContext(ctx).WithError(saveErr).Warn("Failed to record ingestion failure in checkpoint")
	}

	return cause
}
