package storage

import (
	"strings"

	apperrors "github.com/burn-tracker/internal/errors"
	"github.com/burn-tracker/internal/models"
)

// ValidateBurn checks a burn transaction before any persistence attempt.
// Burn events are immutable facts; a malformed one must never reach the
// ledger.
func ValidateBurn(tx *models.BurnTransaction) error {
	if tx == nil {
		return apperrors.NewValidationError("transaction", "must not be nil")
	}
	if strings.TrimSpace(tx.TxHash) == "" {
		return apperrors.NewValidationError("tx_hash", "must not be empty")
	}
	if tx.BlockNumber < 0 {
		return apperrors.NewValidationError("block_number", "must not be negative")
	}
	if tx.Timestamp.IsZero() {
		return apperrors.NewValidationError("timestamp", "must be set")
	}
	if tx.UniAmount <= 0 {
		return apperrors.NewValidationError("uni_amount", "must be positive")
	}
	// Price and usd_value travel together: both null or both set.
	if (tx.UniPriceUSD == nil) != (tx.USDValue == nil) {
		return apperrors.NewValidationError("usd_value", "uni_price_usd and usd_value must both be null or both be set")
	}
	return nil
}
