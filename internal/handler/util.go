package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/haus-platform/cortex/internal/model"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeEngineError maps engine sentinel errors to response statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrRateLimitExceeded):
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	case errors.Is(err, model.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, model.ErrMemorySpaceNotFound):
		writeError(w, http.StatusNotFound, "memory space not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
