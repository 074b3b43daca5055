package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBurnTransaction_Date(t *testing.T) {
	tests := []struct {
		name      string
		timestamp time.Time
		want      string
	}{
		{
			name:      "midday UTC",
			timestamp: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
			want:      "2024-03-15",
		},
		{
			name:      "just before UTC midnight",
			timestamp: time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC),
			want:      "2024-03-15",
		},
		{
			name:      "non-UTC zone normalizes to the UTC day",
			timestamp: time.Date(2024, 3, 15, 22, 0, 0, 0, time.FixedZone("UTC-5", -5*3600)),
			want:      "2024-03-16",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &BurnTransaction{Timestamp: tt.timestamp}
			assert.Equal(t, tt.want, tx.Date())
		})
	}
}

func TestBurnTransaction_SetPrice(t *testing.T) {
	tx := &BurnTransaction{UniAmount: 10}

	price := 7.5
	tx.SetPrice(&price)

	require.NotNil(t, tx.UniPriceUSD)
	assert.Equal(t, 7.5, *tx.UniPriceUSD)
	require.NotNil(t, tx.USDValue)
	assert.Equal(t, 75.0, *tx.USDValue)
}

func TestBurnTransaction_SetPriceNil(t *testing.T) {
	tx := &BurnTransaction{UniAmount: 10}
	price := 7.5
	tx.SetPrice(&price)

	tx.SetPrice(nil)

	assert.Nil(t, tx.UniPriceUSD)
	assert.Nil(t, tx.USDValue, "unknown price clears both fields together")
}
