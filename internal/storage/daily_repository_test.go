package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burn-tracker/internal/models"
)

func dailyRow(date string, daily, cumulative float64, usd *float64) *models.DailyBurn {
	var cumUSD *float64
	if usd != nil {
		v := *usd
		cumUSD = &v
	}
	return &models.DailyBurn{
		Date:               date,
		DailyUni:           daily,
		CumulativeUni:      cumulative,
		DailyUSDValue:      usd,
		CumulativeUSDValue: cumUSD,
		UpdatedAt:          time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC),
	}
}

func TestDailyBurnRepository_UpsertReplaces(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDailyBurnRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, dailyRow("2024-01-05", 10, 10, nil)))

	usd := 75.0
	require.NoError(t, repo.Upsert(ctx, dailyRow("2024-01-05", 12.5, 12.5, &usd)))

	got, err := repo.Get(ctx, "2024-01-05")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 12.5, got.DailyUni)
	require.NotNil(t, got.DailyUSDValue)
	assert.Equal(t, 75.0, *got.DailyUSDValue)
}

func TestDailyBurnRepository_UpsertCanNullUSD(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDailyBurnRepository(db)
	ctx := context.Background()

	usd := 75.0
	require.NoError(t, repo.Upsert(ctx, dailyRow("2024-01-05", 10, 10, &usd)))
	require.NoError(t, repo.Upsert(ctx, dailyRow("2024-01-05", 10, 10, nil)))

	got, err := repo.Get(ctx, "2024-01-05")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.DailyUSDValue, "recomputation can take a day back to unknown")
}

func TestDailyBurnRepository_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDailyBurnRepository(db)

	got, err := repo.Get(context.Background(), "2024-01-05")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDailyBurnRepository_Previous(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDailyBurnRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, dailyRow("2024-01-01", 1, 1, nil)))
	require.NoError(t, repo.Upsert(ctx, dailyRow("2024-01-03", 3, 4, nil)))
	require.NoError(t, repo.Upsert(ctx, dailyRow("2024-01-07", 7, 11, nil)))

	prev, err := repo.Previous(ctx, "2024-01-07")
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "2024-01-03", prev.Date, "previous skips over missing days")

	prev, err = repo.Previous(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Nil(t, prev, "the first day has no predecessor")
}

func TestDailyBurnRepository_LatestAndListSince(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDailyBurnRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, dailyRow("2024-01-01", 1, 1, nil)))
	require.NoError(t, repo.Upsert(ctx, dailyRow("2024-01-02", 2, 3, nil)))
	require.NoError(t, repo.Upsert(ctx, dailyRow("2024-01-03", 3, 6, nil)))

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2024-01-03", latest.Date)

	rows, err := repo.ListSince(ctx, "2024-01-02")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-01-02", rows[0].Date, "ascending date order")
	assert.Equal(t, "2024-01-03", rows[1].Date)
}

func TestCheckpointRepository_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCheckpointRepository(db)
	ctx := context.Background()

	got, err := repo.Get(ctx, "UNI")
	require.NoError(t, err)
	assert.Nil(t, got, "no checkpoint before the first scan")

	cp := &models.IngestCheckpoint{
		Token:            "UNI",
		LastScannedBlock: 12345,
		LastIngestAt:     time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC),
		IngestErrors:     0,
	}
	require.NoError(t, repo.Save(ctx, cp))

	cp.LastScannedBlock = 20000
	cp.IngestErrors = 2
	require.NoError(t, repo.Save(ctx, cp))

	got, err = repo.Get(ctx, "UNI")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(20000), got.LastScannedBlock)
	assert.Equal(t, 2, got.IngestErrors)
}
