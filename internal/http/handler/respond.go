package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"recuerdito/internal/reminder"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reminder.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, reminder.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}
