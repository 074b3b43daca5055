package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/burn-tracker/internal/models"
)

// handleDailySeries returns the ascending daily series from the start
// query parameter, defaulting to the tracking start date.
func (s *Server) handleDailySeries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	start := r.URL.Query().Get("start")
	effectiveStart := start
	if effectiveStart == "" {
		effectiveStart = s.daily.StartDate()
	}

	if s.cache != nil {
		var cached []*models.DailyBurn
		if hit, err := s.cache.Get(ctx, s.cache.KeyDailySince(effectiveStart), &cached); err == nil && hit {
			respondList(w, http.StatusOK, cached, len(cached))
			return
		}
	}

	days, err := s.daily.ListSince(ctx, start)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.cache != nil {
		s.populateCache(ctx, s.cache.KeyDailySince(effectiveStart), days)
	}
	respondList(w, http.StatusOK, days, len(days))
}

// handleLatestDaily returns the daily row with the maximum date.
func (s *Server) handleLatestDaily(w http.ResponseWriter, r *http.Request) {
	day, err := s.daily.Latest(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if day == nil {
		respondJSON(w, http.StatusOK, nil)
		return
	}

	respondJSON(w, http.StatusOK, day)
}

// handleDailyByDate returns the daily row for an exact date.
func (s *Server) handleDailyByDate(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]

	day, err := s.daily.Get(r.Context(), date)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if day == nil {
		// Absence of a computed day is data, not an error.
		respondJSON(w, http.StatusOK, nil)
		return
	}

	respondJSON(w, http.StatusOK, day)
}
