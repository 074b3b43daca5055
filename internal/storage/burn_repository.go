package storage

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/burn-tracker/internal/errors"
	"github.com/burn-tracker/internal/models"
	"github.com/jackc/pgx/v5"
)

// Limits applied to ListRecent regardless of the caller-supplied value.
const (
	MinRecentLimit     = 1
	MaxRecentLimit     = 20
	DefaultRecentLimit = 5
)

// BurnRepository is the transaction store: the append-only, deduplicated
// ledger of burn events and the single source of truth. Rows are never
// updated; duplicate hashes are silently ignored.
type BurnRepository struct {
	db *PostgresDB
}

// NewBurnRepository creates a new burn transaction repository
func NewBurnRepository(db *PostgresDB) *BurnRepository {
	return &BurnRepository{db: db}
}

const burnColumns = `tx_hash, block_number, timestamp, uni_amount, uni_price_usd, usd_value, from_address`

const insertBurnQuery = `
	INSERT INTO burn_transactions (tx_hash, block_number, timestamp, uni_amount, uni_price_usd, usd_value, from_address)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (tx_hash) DO NOTHING
`

// Insert persists a single burn transaction. It returns true when a new
// row was written and false when the hash was already present. An existing
// row is never touched, even if the incoming data differs.
func (r *BurnRepository) Insert(ctx context.Context, tx *models.BurnTransaction) (bool, error) {
	if err := ValidateBurn(tx); err != nil {
		return false, err
	}

	tag, err := r.db.Pool().Exec(ctx, insertBurnQuery,
		tx.TxHash,
		tx.BlockNumber,
		tx.Timestamp.UTC(),
		tx.UniAmount,
		tx.UniPriceUSD,
		tx.USDValue,
		tx.FromAddress,
	)
	if err != nil {
		return false, apperrors.NewStorageError("insert burn transaction", err)
	}

	return tag.RowsAffected() > 0, nil
}

// InsertMany persists a batch of burn transactions in a single database
// transaction and returns the number of newly written rows. Duplicates are
// skipped silently; any other failure rolls back the whole batch so a
// concurrent rollup pass never observes a partial batch. Validation runs
// for the entire batch before anything is written.
func (r *BurnRepository) InsertMany(ctx context.Context, txs []*models.BurnTransaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	for _, tx := range txs {
		if err := ValidateBurn(tx); err != nil {
			return 0, err
		}
	}

	dbTx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return 0, apperrors.NewStorageError("begin batch insert", err)
	}
	defer func() {
		_ = dbTx.Rollback(ctx) // no-op after commit
	}()

	inserted := 0
	for _, tx := range txs {
		tag, err := dbTx.Exec(ctx, insertBurnQuery,
			tx.TxHash,
			tx.BlockNumber,
			tx.Timestamp.UTC(),
			tx.UniAmount,
			tx.UniPriceUSD,
			tx.USDValue,
			tx.FromAddress,
		)
		if err != nil {
			return 0, apperrors.NewStorageError("batch insert burn transaction", err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := dbTx.Commit(ctx); err != nil {
		return 0, apperrors.NewStorageError("commit batch insert", err)
	}

	return inserted, nil
}

// ClampLimit bounds a caller-supplied limit to [MinRecentLimit, MaxRecentLimit].
func ClampLimit(limit int) int {
	if limit < MinRecentLimit {
		return MinRecentLimit
	}
	if limit > MaxRecentLimit {
		return MaxRecentLimit
	}
	return limit
}

// ListRecent returns up to limit transactions ordered by timestamp
// descending. The limit is clamped so callers cannot force unbounded
// result sizes.
func (r *BurnRepository) ListRecent(ctx context.Context, limit int) ([]*models.BurnTransaction, error) {
	query := `
		SELECT ` + burnColumns + `
		FROM burn_transactions
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := r.db.Pool().Query(ctx, query, ClampLimit(limit))
	if err != nil {
		return nil, apperrors.NewStorageError("list recent burns", err)
	}
	defer rows.Close()

	return scanBurnRows(rows)
}

// ListByDate returns all transactions whose timestamp falls on the given
// UTC calendar day, in block order. Used by the rollup engine.
func (r *BurnRepository) ListByDate(ctx context.Context, date string) ([]*models.BurnTransaction, error) {
	query := `
		SELECT ` + burnColumns + `
		FROM burn_transactions
		WHERE (timestamp AT TIME ZONE 'UTC')::date = $1::date
		ORDER BY block_number ASC, tx_hash ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, date)
	if err != nil {
		return nil, apperrors.NewStorageError("list burns by date", err)
	}
	defer rows.Close()

	return scanBurnRows(rows)
}

// Latest returns the transaction with the highest block number. Block
// order, not timestamp order: wall clocks across sources can skew, block
// numbers cannot. Returns nil when the ledger is empty.
func (r *BurnRepository) Latest(ctx context.Context) (*models.BurnTransaction, error) {
	query := `
		SELECT ` + burnColumns + `
		FROM burn_transactions
		ORDER BY block_number DESC
		LIMIT 1
	`

	tx, err := scanBurnRow(r.db.Pool().QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewStorageError("get latest burn", err)
	}

	return tx, nil
}

// TotalSince returns the sum of uni_amount for transactions at or after
// start. An empty result is 0, not null: "absent aggregate defaults to
// zero" is deliberate policy, distinct from the unknown-USD case.
func (r *BurnRepository) TotalSince(ctx context.Context, start time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(uni_amount), 0)
		FROM burn_transactions
		WHERE timestamp >= $1
	`

	var total float64
	if err := r.db.Pool().QueryRow(ctx, query, start.UTC()).Scan(&total); err != nil {
		return 0, apperrors.NewStorageError("total burned since", err)
	}

	return total, nil
}

// TodayTotal returns the sum of uni_amount for the current UTC day.
func (r *BurnRepository) TodayTotal(ctx context.Context) (float64, error) {
	today := time.Now().UTC().Format(models.DateLayout)

	query := `
		SELECT COALESCE(SUM(uni_amount), 0)
		FROM burn_transactions
		WHERE (timestamp AT TIME ZONE 'UTC')::date = $1::date
	`

	var total float64
	if err := r.db.Pool().QueryRow(ctx, query, today).Scan(&total); err != nil {
		return 0, apperrors.NewStorageError("today total", err)
	}

	return total, nil
}

// TotalUSDSince returns the summed USD value of priced transactions at or
// after start. Unpriced rows are excluded rather than counted as zero.
func (r *BurnRepository) TotalUSDSince(ctx context.Context, start time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(usd_value), 0)
		FROM burn_transactions
		WHERE usd_value IS NOT NULL AND timestamp >= $1
	`

	var total float64
	if err := r.db.Pool().QueryRow(ctx, query, start.UTC()).Scan(&total); err != nil {
		return 0, apperrors.NewStorageError("total usd since", err)
	}

	return total, nil
}

// Reset deletes every row in the ledger. Full re-sync only; never part of
// normal operation.
func (r *BurnRepository) Reset(ctx context.Context) error {
	if _, err := r.db.Pool().Exec(ctx, `DELETE FROM burn_transactions`); err != nil {
		return apperrors.NewStorageError("reset burn transactions", err)
	}
	return nil
}

type burnScanner interface {
	Scan(dest ...any) error
}

func scanBurnRow(row burnScanner) (*models.BurnTransaction, error) {
	var tx models.BurnTransaction
	if err := row.Scan(
		&tx.TxHash,
		&tx.BlockNumber,
		&tx.Timestamp,
		&tx.UniAmount,
		&tx.UniPriceUSD,
		&tx.USDValue,
		&tx.FromAddress,
	); err != nil {
		return nil, err
	}
	tx.Timestamp = tx.Timestamp.UTC()
	return &tx, nil
}

func scanBurnRows(rows pgx.Rows) ([]*models.BurnTransaction, error) {
	txs := make([]*models.BurnTransaction, 0)
	for rows.Next() {
		tx, err := scanBurnRow(rows)
		if err != nil {
			return nil, apperrors.NewStorageError("scan burn transaction", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("iterate burn transactions", err)
	}
	return txs, nil
}
