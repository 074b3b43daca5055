package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/burn-tracker/internal/logging"
	"github.com/burn-tracker/internal/models"
	"github.com/burn-tracker/internal/storage"
)

// BurnStats aggregates ledger totals for the stats endpoint.
type BurnStats struct {
	StartDate     string   `json:"startDate"`
	TotalUni      float64  `json:"totalUni"`
	TodayUni      float64  `json:"todayUni"`
	TotalUSDValue *float64 `json:"totalUsdValue"`
}

// handleRecentBurns returns the most recent burn transactions, newest
// first. The limit parameter is clamped, never rejected: any numeric value
// yields a valid window.
func (s *Server) handleRecentBurns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "limit must be an integer")
			return
		}
		limit = parsed
	}
	limit = storage.ClampLimit(limit)

	ctx := r.Context()

	if s.cache != nil {
		var cached []*models.BurnTransaction
		if hit, err := s.cache.Get(ctx, s.cache.KeyRecent(limit), &cached); err == nil && hit {
			respondList(w, http.StatusOK, cached, len(cached))
			return
		}
	}

	burns, err := s.burns.ListRecent(ctx, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.cache != nil {
		s.populateCache(ctx, s.cache.KeyRecent(limit), burns)
	}
	respondList(w, http.StatusOK, burns, len(burns))
}

// handleLatestBurn returns the burn with the highest block number.
func (s *Server) handleLatestBurn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.cache != nil {
		var cached models.BurnTransaction
		if hit, err := s.cache.Get(ctx, s.cache.KeyLatest(), &cached); err == nil && hit {
			respondJSON(w, http.StatusOK, &cached)
			return
		}
	}

	burn, err := s.burns.Latest(ctx)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if burn == nil {
		// An empty ledger is a legitimate state, not an error.
		respondJSON(w, http.StatusOK, nil)
		return
	}

	if s.cache != nil {
		s.populateCache(ctx, s.cache.KeyLatest(), burn)
	}
	respondJSON(w, http.StatusOK, burn)
}

// handleBurnStats returns aggregate totals over the whole tracking window.
func (s *Server) handleBurnStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.cache != nil {
		var cached BurnStats
		if hit, err := s.cache.Get(ctx, s.cache.KeyStats(), &cached); err == nil && hit {
			respondJSON(w, http.StatusOK, &cached)
			return
		}
	}

	startDate := s.daily.StartDate()
	start, err := time.Parse(models.DateLayout, startDate)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	totalUni, err := s.burns.TotalSince(ctx, start)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	todayUni, err := s.burns.TodayTotal(ctx)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	totalUSD, err := s.burns.TotalUSDSince(ctx, start)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	stats := &BurnStats{
		StartDate:     startDate,
		TotalUni:      totalUni,
		TodayUni:      todayUni,
		TotalUSDValue: &totalUSD,
	}

	if s.cache != nil {
		s.populateCache(ctx, s.cache.KeyStats(), stats)
	}
	respondJSON(w, http.StatusOK, stats)
}

// populateCache stores a freshly computed response. Failures only cost the
// next reader a storage round trip, so they are logged and swallowed.
func (s *Server) populateCache(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value); err != nil {
		logging.WithField("error", err.Error()).Warn("Failed to populate read cache")
	}
}
