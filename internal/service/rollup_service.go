// Package service contains the ingestion and rollup logic that derives the
// daily burn table from the transaction ledger.
package service

import (
	"context"
	"time"

	apperrors "github.com/burn-tracker/internal/errors"
	"github.com/burn-tracker/internal/logging"
	"github.com/burn-tracker/internal/models"
)

// BurnLedger is the read side of the transaction store consumed by the
// rollup engine. The engine never writes to the ledger.
type BurnLedger interface {
	ListByDate(ctx context.Context, date string) ([]*models.BurnTransaction, error)
}

// DailyStore is the persistence interface for derived daily rows.
type DailyStore interface {
	Upsert(ctx context.Context, burn *models.DailyBurn) error
	Get(ctx context.Context, date string) (*models.DailyBurn, error)
	Previous(ctx context.Context, date string) (*models.DailyBurn, error)
	Latest(ctx context.Context) (*models.DailyBurn, error)
	ListSince(ctx context.Context, start string) ([]*models.DailyBurn, error)
}

// RollupService derives and maintains the daily_burns table. It is the
// only writer of daily rows. Cumulative totals chain day over day, so all
// recomputation across multiple days runs strictly ascending.
type RollupService struct {
	ledger    BurnLedger
	daily     DailyStore
	startDate string
	now       func() time.Time
}

// NewRollupService creates a new rollup service. startDate is the first
// UTC day counted into cumulative totals.
func NewRollupService(ledger BurnLedger, daily DailyStore, startDate string) *RollupService {
	return &RollupService{
		ledger:    ledger,
		daily:     daily,
		startDate: startDate,
		now:       time.Now,
	}
}

// RecomputeDay recomputes the daily row for one UTC calendar day from the
// ledger and writes it unconditionally. The contract is an explicit
// read-compute-replace: recomputing a day twice over an unchanged ledger
// stores identical values, only updated_at moves.
//
// Token-amount fields are always derivable from the ledger. Missing price
// data nulls the USD fields for the day and never aborts recomputation.
func (s *RollupService) RecomputeDay(ctx context.Context, date string) (*models.DailyBurn, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, apperrors.NewValidationError("date", "must be formatted YYYY-MM-DD")
	}

	txs, err := s.ledger.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	var dailyUni float64
	var pricedSum float64
	pricedCount := 0
	var representative *float64

	// txs arrive in block order, so the last priced transaction seen is
	// the day's representative price.
	for _, tx := range txs {
		dailyUni += tx.UniAmount
		if tx.USDValue != nil {
			pricedSum += *tx.USDValue
			pricedCount++
			p := *tx.UniPriceUSD
			representative = &p
		}
	}

	// Policy: sum only priced transactions. The day's USD value is null
	// only when no transaction that day carries a price; a partially
	// priced day keeps the partial sum, never a fabricated full one.
	var dailyUSD *float64
	if pricedCount > 0 {
		v := pricedSum
		dailyUSD = &v
	} else if len(txs) > 0 {
		incomplete := apperrors.NewIncompleteDataError(date, "no priced transactions")
		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"date":         date,
			"transactions": len(txs),
		}).Warn(incomplete.Message)
	}

	prev, err := s.daily.Previous(ctx, date)
	if err != nil {
		return nil, err
	}

	cumulativeUni := dailyUni
	var prevCumUSD *float64
	if prev != nil {
		cumulativeUni += prev.CumulativeUni
		prevCumUSD = prev.CumulativeUSDValue
	}

	burn := &models.DailyBurn{
		Date:               date,
		DailyUni:           dailyUni,
		CumulativeUni:      cumulativeUni,
		UniPriceUSD:        representative,
		DailyUSDValue:      dailyUSD,
		CumulativeUSDValue: addNullable(prevCumUSD, dailyUSD),
		UpdatedAt:          s.now().UTC(),
	}

	if err := s.daily.Upsert(ctx, burn); err != nil {
		return nil, err
	}

	return burn, nil
}

// addNullable sums two optional USD values. Unknown stays unknown: the
// result is nil only while neither side has ever held priced data, and a
// known side is never discarded because the other is missing.
func addNullable(a, b *float64) *float64 {
	if a == nil && b == nil {
		return nil
	}
	sum := 0.0
	if a != nil {
		sum += *a
	}
	if b != nil {
		sum += *b
	}
	return &sum
}

// RecomputeRange recomputes every day in [start, end] in ascending order.
// Ascending is mandatory: each day's cumulative total reads the previous
// day's persisted row, so out-of-order or parallel recomputation within
// the range would chain from a stale predecessor.
func (s *RollupService) RecomputeRange(ctx context.Context, start, end string) error {
	startDay, err := time.Parse(models.DateLayout, start)
	if err != nil {
		return apperrors.NewValidationError("start date", "must be formatted YYYY-MM-DD")
	}
	endDay, err := time.Parse(models.DateLayout, end)
	if err != nil {
		return apperrors.NewValidationError("end date", "must be formatted YYYY-MM-DD")
	}
	if endDay.Before(startDay) {
		return apperrors.NewValidationError("date range", "end must not precede start")
	}

	for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		if _, err := s.RecomputeDay(ctx, day.Format(models.DateLayout)); err != nil {
			return err
		}
	}

	return nil
}

// FullRebuild recomputes every day from start through the current UTC
// date. Used for initial backfill and after a ledger reset.
func (s *RollupService) FullRebuild(ctx context.Context, start string) error {
	today := s.now().UTC().Format(models.DateLayout)
	return s.RecomputeRange(ctx, start, today)
}

// Get returns the daily row for an exact date, or nil when that date has
// not been computed yet.
func (s *RollupService) Get(ctx context.Context, date string) (*models.DailyBurn, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, apperrors.NewValidationError("date", "must be formatted YYYY-MM-DD")
	}
	return s.daily.Get(ctx, date)
}

// Latest returns the daily row with the maximum date, or nil when no row
// has been computed yet.
func (s *RollupService) Latest(ctx context.Context) (*models.DailyBurn, error) {
	return s.daily.Latest(ctx)
}

// ListSince returns the ascending daily series from start, defaulting to
// the tracking start date when start is empty.
func (s *RollupService) ListSince(ctx context.Context, start string) ([]*models.DailyBurn, error) {
	if start == "" {
		start = s.startDate
	}
	if _, err := time.Parse(models.DateLayout, start); err != nil {
		return nil, apperrors.NewValidationError("start date", "must be formatted YYYY-MM-DD")
	}
	return s.daily.ListSince(ctx, start)
}

// StartDate returns the fixed tracking start date.
func (s *RollupService) StartDate() string {
	return s.startDate
}
