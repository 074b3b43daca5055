package storage

import (
	"context"
	"errors"

	apperrors "github.com/burn-tracker/internal/errors"
	"github.com/burn-tracker/internal/models"
	"github.com/jackc/pgx/v5"
)

// CheckpointRepository tracks how far the chain scanner has progressed so
// each ingestion cycle picks up at the block after the previous one.
type CheckpointRepository struct {
	db *PostgresDB
}

// NewCheckpointRepository creates a new checkpoint repository
func NewCheckpointRepository(db *PostgresDB) *CheckpointRepository {
	return &CheckpointRepository{db: db}
}

// Get returns the checkpoint for a token, or nil when no scan has run yet.
func (r *CheckpointRepository) Get(ctx context.Context, token string) (*models.IngestCheckpoint, error) {
	query := `
		SELECT token, last_scanned_block, last_ingest_at, ingest_errors
		FROM ingest_checkpoints
		WHERE token = $1
	`

	var cp models.IngestCheckpoint
	err := r.db.Pool().QueryRow(ctx, query, token).Scan(
		&cp.Token,
		&cp.LastScannedBlock,
		&cp.LastIngestAt,
		&cp.IngestErrors,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewStorageError("get ingest checkpoint", err)
	}

	cp.LastIngestAt = cp.LastIngestAt.UTC()
	return &cp, nil
}

// Save upserts the checkpoint for a token.
func (r *CheckpointRepository) Save(ctx context.Context, cp *models.IngestCheckpoint) error {
	query := `
		INSERT INTO ingest_checkpoints (token, last_scanned_block, last_ingest_at, ingest_errors)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token) DO UPDATE SET
			last_scanned_block = EXCLUDED.last_scanned_block,
			last_ingest_at = EXCLUDED.last_ingest_at,
			ingest_errors = EXCLUDED.ingest_errors
	`

	_, err := r.db.Pool().Exec(ctx, query,
		cp.Token,
		cp.LastScannedBlock,
		cp.LastIngestAt.UTC(),
		cp.IngestErrors,
	)
	if err != nil {
		return apperrors.NewStorageError("save ingest checkpoint", err)
	}

	return nil
}

// Reset removes the checkpoint for a token, forcing the next scan to start
// from the configured start block.
func (r *CheckpointRepository) Reset(ctx context.Context, token string) error {
	if _, err := r.db.Pool().Exec(ctx, `DELETE FROM ingest_checkpoints WHERE token = $1`, token); err != nil {
		return apperrors.NewStorageError("reset ingest checkpoint", err)
	}
	return nil
}
