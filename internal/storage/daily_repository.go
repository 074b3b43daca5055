package storage

import (
	"context"
	"errors"

	apperrors "github.com/burn-tracker/internal/errors"
	"github.com/burn-tracker/internal/models"
	"github.com/jackc/pgx/v5"
)

// DailyBurnRepository persists the derived daily rollup rows. Rows are
// append-or-update only; the rollup engine is the only writer.
type DailyBurnRepository struct {
	db *PostgresDB
}

// NewDailyBurnRepository creates a new daily burn repository
func NewDailyBurnRepository(db *PostgresDB) *DailyBurnRepository {
	return &DailyBurnRepository{db: db}
}

const dailyColumns = `date, daily_uni, cumulative_uni, uni_price_usd, daily_usd_value, cumulative_usd_value, updated_at`

// Upsert writes a daily row unconditionally, replacing any existing row
// for the same date. The engine reads, computes, then replaces; the
// conflict clause is only the write half of that explicit contract.
func (r *DailyBurnRepository) Upsert(ctx context.Context, burn *models.DailyBurn) error {
	query := `
		INSERT INTO daily_burns (date, daily_uni, cumulative_uni, uni_price_usd, daily_usd_value, cumulative_usd_value, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (date) DO UPDATE SET
			daily_uni = EXCLUDED.daily_uni,
			cumulative_uni = EXCLUDED.cumulative_uni,
			uni_price_usd = EXCLUDED.uni_price_usd,
			daily_usd_value = EXCLUDED.daily_usd_value,
			cumulative_usd_value = EXCLUDED.cumulative_usd_value,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Pool().Exec(ctx, query,
		burn.Date,
		burn.DailyUni,
		burn.CumulativeUni,
		burn.UniPriceUSD,
		burn.DailyUSDValue,
		burn.CumulativeUSDValue,
		burn.UpdatedAt.UTC(),
	)
	if err != nil {
		return apperrors.NewStorageError("upsert daily burn", err)
	}

	return nil
}

// Get returns the row for an exact date, or nil when the date has not been
// computed yet. Absence is a legitimate state, not an error.
func (r *DailyBurnRepository) Get(ctx context.Context, date string) (*models.DailyBurn, error) {
	query := `
		SELECT ` + dailyColumns + `
		FROM daily_burns
		WHERE date = $1
	`

	burn, err := scanDailyRow(r.db.Pool().QueryRow(ctx, query, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewStorageError("get daily burn", err)
	}

	return burn, nil
}

// Previous returns the most recent persisted row strictly before date, or
// nil when none exists. The cumulative chain for a day starts from this row.
func (r *DailyBurnRepository) Previous(ctx context.Context, date string) (*models.DailyBurn, error) {
	query := `
		SELECT ` + dailyColumns + `
		FROM daily_burns
		WHERE date < $1
		ORDER BY date DESC
		LIMIT 1
	`

	burn, err := scanDailyRow(r.db.Pool().QueryRow(ctx, query, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewStorageError("get previous daily burn", err)
	}

	return burn, nil
}

// Latest returns the row with the maximum date, or nil when the table is empty.
func (r *DailyBurnRepository) Latest(ctx context.Context) (*models.DailyBurn, error) {
	query := `
		SELECT ` + dailyColumns + `
		FROM daily_burns
		ORDER BY date DESC
		LIMIT 1
	`

	burn, err := scanDailyRow(r.db.Pool().QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewStorageError("get latest daily burn", err)
	}

	return burn, nil
}

// ListSince returns all rows with date >= start in ascending date order,
// the shape chart readers consume directly.
func (r *DailyBurnRepository) ListSince(ctx context.Context, start string) ([]*models.DailyBurn, error) {
	query := `
		SELECT ` + dailyColumns + `
		FROM daily_burns
		WHERE date >= $1
		ORDER BY date ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, start)
	if err != nil {
		return nil, apperrors.NewStorageError("list daily burns", err)
	}
	defer rows.Close()

	burns := make([]*models.DailyBurn, 0)
	for rows.Next() {
		burn, err := scanDailyRow(rows)
		if err != nil {
			return nil, apperrors.NewStorageError("scan daily burn", err)
		}
		burns = append(burns, burn)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("iterate daily burns", err)
	}

	return burns, nil
}

// Reset deletes all rollup rows. Only used together with a ledger reset
// before a full rebuild.
func (r *DailyBurnRepository) Reset(ctx context.Context) error {
	if _, err := r.db.Pool().Exec(ctx, `DELETE FROM daily_burns`); err != nil {
		return apperrors.NewStorageError("reset daily burns", err)
	}
	return nil
}

func scanDailyRow(row burnScanner) (*models.DailyBurn, error) {
	var burn models.DailyBurn
	if err := row.Scan(
		&burn.Date,
		&burn.DailyUni,
		&burn.CumulativeUni,
		&burn.UniPriceUSD,
		&burn.DailyUSDValue,
		&burn.CumulativeUSDValue,
		&burn.UpdatedAt,
	); err != nil {
		return nil, err
	}
	burn.UpdatedAt = burn.UpdatedAt.UTC()
	return &burn, nil
}
