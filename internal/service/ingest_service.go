package service

import (
	"context"
	"time"

	"github.com/burn-tracker/internal/logging"
	"github.com/burn-tracker/internal/models"
	"github.com/google/uuid"
)

// BurnStore is the write side of the transaction store used by ingestion.
type BurnStore interface {
	InsertMany(ctx context.Context, txs []*models.BurnTransaction) (int, error)
}

// PriceOracle supplies the USD price of the token near a timestamp. A nil
// price means unknown; the oracle never fabricates one.
type PriceOracle interface {
	PriceAt(ctx context.Context, ts time.Time) (*float64, error)
}

// RangeRecomputer is the slice of the rollup engine ingestion drives.
type RangeRecomputer interface {
	RecomputeRange(ctx context.Context, start, end string) error
}

// CacheInvalidator drops cached reads after a successful cycle.
type CacheInvalidator interface {
	InvalidateAll(ctx context.Context) error
}

// IngestService runs one ingestion cycle: enrich raw indexer tuples with
// prices, insert the batch, then recompute the affected daily range. Steps
// run sequentially; the cycle is the unit the scheduler retries.
type IngestService struct {
	store  BurnStore
	oracle PriceOracle
	rollup RangeRecomputer
	cache  CacheInvalidator
	now    func() time.Time
}

// NewIngestService creates a new ingest service. oracle and cache may be
// nil: without an oracle all prices stay unknown, without a cache nothing
// is invalidated.
func NewIngestService(store BurnStore, oracle PriceOracle, rollup RangeRecomputer, cache CacheInvalidator) *IngestService {
	return &IngestService{
		store:  store,
		oracle: oracle,
		rollup: rollup,
		cache:  cache,
		now:    time.Now,
	}
}

// IngestResult summarizes one ingestion cycle.
type IngestResult struct {
	RunID          string `json:"runId"`
	Received       int    `json:"received"`
	Inserted       int    `json:"inserted"`
	RecomputedFrom string `json:"recomputedFrom,omitempty"`
	RecomputedTo   string `json:"recomputedTo,omitempty"`
}

// IngestBatch processes one batch of raw burn transactions. Duplicates are
// skipped inside the store; the daily range from the earliest affected
// date through the current UTC date is recomputed ascending afterwards, so
// a backfilled old day re-chains every later row in the same cycle.
func (s *IngestService) IngestBatch(ctx context.Context, txs []*models.BurnTransaction) (*IngestResult, error) {
	result := &IngestResult{
		RunID:    uuid.NewString(),
		Received: len(txs),
	}

	logger := logging.FromContext(ctx).WithField("runId", result.RunID)
	ctx = logging.WithLogger(ctx, logger)

	if len(txs) == 0 {
		logger.Debug("Ingestion cycle received no transactions")
		return result, nil
	}

	s.enrichPrices(ctx, txs)

	inserted, err := s.store.InsertMany(ctx, txs)
	if err != nil {
		return nil, err
	}
	result.Inserted = inserted

	earliest := txs[0].Date()
	for _, tx := range txs[1:] {
		if d := tx.Date(); d < earliest {
			earliest = d
		}
	}
	today := s.now().UTC().Format(models.DateLayout)
	if today < earliest {
		today = earliest
	}

	if err := s.rollup.RecomputeRange(ctx, earliest, today); err != nil {
		return nil, err
	}
	result.RecomputedFrom = earliest
	result.RecomputedTo = today

	if s.cache != nil {
		if err := s.cache.InvalidateAll(ctx); err != nil {
			// Stale cache entries expire with the TTL; not worth failing
			// an otherwise complete cycle.
			logger.WithError(err).Warn("Failed to invalidate read cache after ingestion")
		}
	}

	logger.WithFields(map[string]interface{}{
		"received":       result.Received,
		"inserted":       result.Inserted,
		"recomputedFrom": result.RecomputedFrom,
		"recomputedTo":   result.RecomputedTo,
	}).Info("Ingestion cycle complete")

	return result, nil
}

// enrichPrices fills in uni_price_usd and usd_value for transactions that
// arrived without them. Oracle failures leave the price unknown; a null is
// always preferable to an invented number.
func (s *IngestService) enrichPrices(ctx context.Context, txs []*models.BurnTransaction) {
	if s.oracle == nil {
		return
	}

	logger := logging.FromContext(ctx)
	for _, tx := range txs {
		if tx.UniPriceUSD != nil {
			continue
		}
		price, err := s.oracle.PriceAt(ctx, tx.Timestamp)
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"txHash": tx.TxHash,
				"error":  err.Error(),
			}).Warn("Price lookup failed, storing burn without USD value")
			continue
		}
		tx.SetPrice(price)
	}
}
