package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/burn-tracker/internal/errors"
)

// envelope is the response wrapper shared by every endpoint. count is only
// populated for list responses.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

// apiError is the error half of the envelope.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondJSON sends a successful response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(envelope{
		Success: true,
		Data:    data,
	})
}

// respondList sends a successful list response with its element count.
func respondList(w http.ResponseWriter, statusCode int, data interface{}, count int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(envelope{
		Success: true,
		Data:    data,
		Count:   &count,
	})
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(envelope{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	})
}

// Common error codes
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// respondServiceError maps a categorized error onto the wire. Validation
// details surface verbatim; everything else degrades to a generic 5xx so
// storage internals never leak.
func respondServiceError(w http.ResponseWriter, err error) {
	if catErr := apperrors.Categorize(err); catErr != nil {
		switch catErr.Category {
		case apperrors.CategoryValidation:
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, catErr.Message)
			return
		case apperrors.CategoryNotFound:
			respondError(w, http.StatusNotFound, ErrCodeNotFound, catErr.Message)
			return
		}
	}

	respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "An internal error occurred")
}
