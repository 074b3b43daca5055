package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/burn-tracker/internal/circuitbreaker"
	"github.com/burn-tracker/internal/config"
	apperrors "github.com/burn-tracker/internal/errors"
	"github.com/burn-tracker/internal/models"
)

// PriceClient fetches historical daily UNI/USD prices from a
// CoinGecko-compatible API. Lookups are memoized per UTC day: the oracle
// has daily granularity, so every transaction on the same day shares one
// upstream call.
//
// A day the provider has no price for resolves to (nil, nil). Unknown is a
// legitimate answer, not an error.
type PriceClient struct {
	baseURL  string
	coinID   string
	currency string
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *circuitbreaker.CircuitBreaker

	mu       sync.Mutex
	dayCache map[string]float64
}

// NewPriceClient creates a price client from configuration.
func NewPriceClient(cfg *config.PriceConfig) *PriceClient {
	return &PriceClient{
		baseURL:  cfg.BaseURL,
		coinID:   cfg.CoinID,
		currency: cfg.Currency,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker:  circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig("price-api")),
		dayCache: make(map[string]float64),
	}
}

// historyResponse mirrors the subset of the /coins/{id}/history payload we
// read. MarketData is absent entirely for days the provider has no data.
type historyResponse struct {
	MarketData *struct {
		CurrentPrice map[string]float64 `json:"current_price"`
	} `json:"market_data"`
}

// PriceAt returns the USD price for the UTC day containing ts, or nil when
// the provider has no price for that day.
func (c *PriceClient) PriceAt(ctx context.Context, ts time.Time) (*float64, error) {
	day := ts.UTC().Format(models.DateLayout)

	c.mu.Lock()
	if price, ok := c.dayCache[day]; ok {
		c.mu.Unlock()
		return &price, nil
	}
	c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.NewProviderError("price api", err)
	}

	// The history endpoint takes dd-mm-yyyy.
	endpoint := fmt.Sprintf("%s/coins/%s/history?date=%s&localization=false",
		c.baseURL, url.PathEscape(c.coinID), ts.UTC().Format("02-01-2006"))

	var body []byte
	err := c.breaker.Execute(ctx, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if reqErr != nil {
			return reqErr
		}
		req.Header.Set("Accept", "application/json")

		resp, doErr := c.client.Do(req)
		if doErr != nil {
			return doErr
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		body, doErr = io.ReadAll(resp.Body)
		return doErr
	})
	if err != nil {
		return nil, apperrors.NewProviderError("price api", err)
	}

	var parsed historyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperrors.NewProviderError("price api", err)
	}

	if parsed.MarketData == nil {
		return nil, nil
	}
	price, ok := parsed.MarketData.CurrentPrice[c.currency]
	if !ok {
		return nil, nil
	}

	// Only known prices are memoized; an unknown day may gain data later.
	c.mu.Lock()
	c.dayCache[day] = price
	c.mu.Unlock()

	return &price, nil
}
