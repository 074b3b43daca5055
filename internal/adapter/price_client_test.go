package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burn-tracker/internal/config"
)

func newTestPriceClient(baseURL string) *PriceClient {
	return NewPriceClient(&config.PriceConfig{
		BaseURL:           baseURL,
		CoinID:            "uniswap",
		Currency:          "usd",
		RequestsPerSecond: 100,
		RequestTimeout:    2 * time.Second,
	})
}

func TestPriceClient_PriceAt(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/coins/uniswap/history", r.URL.Path)
		assert.Equal(t, "15-01-2024", r.URL.Query().Get("date"))
		fmt.Fprint(w, `{"market_data":{"current_price":{"usd":7.25,"eur":6.60}}}`)
	}))
	defer server.Close()

	client := newTestPriceClient(server.URL)
	ts := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)

	price, err := client.PriceAt(context.Background(), ts)
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.Equal(t, 7.25, *price)

	// Same UTC day at a different time hits the memo, not the server.
	later := time.Date(2024, 1, 15, 23, 59, 0, 0, time.UTC)
	price, err = client.PriceAt(context.Background(), later)
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.Equal(t, 7.25, *price)
	assert.Equal(t, 1, calls)
}

func TestPriceClient_PriceAt_NoMarketData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"uniswap","symbol":"uni"}`)
	}))
	defer server.Close()

	client := newTestPriceClient(server.URL)

	price, err := client.PriceAt(context.Background(), time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Nil(t, price, "a day without market data resolves to an unknown price, not an error")
}

func TestPriceClient_PriceAt_MissingCurrency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"market_data":{"current_price":{"eur":6.60}}}`)
	}))
	defer server.Close()

	client := newTestPriceClient(server.URL)

	price, err := client.PriceAt(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Nil(t, price)
}

func TestPriceClient_PriceAt_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestPriceClient(server.URL)

	price, err := client.PriceAt(context.Background(), time.Now().UTC())
	require.Error(t, err)
	assert.Nil(t, price)
}

func TestPriceClient_PriceAt_DoesNotMemoizeUnknown(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{}`)
			return
		}
		fmt.Fprint(w, `{"market_data":{"current_price":{"usd":9.10}}}`)
	}))
	defer server.Close()

	client := newTestPriceClient(server.URL)
	ts := time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC)

	price, err := client.PriceAt(context.Background(), ts)
	require.NoError(t, err)
	assert.Nil(t, price)

	price, err = client.PriceAt(context.Background(), ts)
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.Equal(t, 9.10, *price)
	assert.Equal(t, 2, calls)
}
