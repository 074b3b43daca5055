package models

import (
	"time"
)

// DateLayout is the calendar-day format used as the daily_burns primary key.
const DateLayout = "2006-01-02"

// BurnTransaction represents a single on-chain burn event: a transfer of UNI
// to the burn address. Rows are immutable facts; re-ingesting the same
// tx_hash is a no-op.
type BurnTransaction struct {
	TxHash      string    `json:"txHash" db:"tx_hash"`
	BlockNumber int64     `json:"blockNumber" db:"block_number"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`
	UniAmount   float64   `json:"uniAmount" db:"uni_amount"`
	UniPriceUSD *float64  `json:"uniPriceUsd,omitempty" db:"uni_price_usd"`
	USDValue    *float64  `json:"usdValue,omitempty" db:"usd_value"`
	FromAddress string    `json:"fromAddress" db:"from_address"`
}

// Date returns the UTC calendar day the transaction falls on.
func (t *BurnTransaction) Date() string {
	return t.Timestamp.UTC().Format(DateLayout)
}

// SetPrice fills in the price and the redundant usd_value. A nil price
// leaves both fields nil; "unknown" is never turned into a number.
func (t *BurnTransaction) SetPrice(price *float64) {
	if price == nil {
		t.UniPriceUSD = nil
		t.USDValue = nil
		return
	}
	p := *price
	v := t.UniAmount * p
	t.UniPriceUSD = &p
	t.USDValue = &v
}

// DailyBurn is the derived rollup row for one UTC calendar day. It is
// recomputed from burn_transactions and never the source of truth.
type DailyBurn struct {
	Date               string    `json:"date" db:"date"`
	DailyUni           float64   `json:"dailyUni" db:"daily_uni"`
	CumulativeUni      float64   `json:"cumulativeUni" db:"cumulative_uni"`
	UniPriceUSD        *float64  `json:"uniPriceUsd,omitempty" db:"uni_price_usd"`
	DailyUSDValue      *float64  `json:"dailyUsdValue,omitempty" db:"daily_usd_value"`
	CumulativeUSDValue *float64  `json:"cumulativeUsdValue,omitempty" db:"cumulative_usd_value"`
	UpdatedAt          time.Time `json:"updatedAt" db:"updated_at"`
}

// IngestCheckpoint records how far the chain scanner has progressed for a
// token so an ingestion cycle resumes where the previous one stopped.
type IngestCheckpoint struct {
	Token            string    `json:"token" db:"token"`
	LastScannedBlock int64     `json:"lastScannedBlock" db:"last_scanned_block"`
	LastIngestAt     time.Time `json:"lastIngestAt" db:"last_ingest_at"`
	IngestErrors     int       `json:"ingestErrors" db:"ingest_errors"`
}
