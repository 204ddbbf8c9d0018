package middleware

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the single error shape returned by the API.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteError writes {error, details} with the given status.
func WriteError(w http.ResponseWriter, status int, kind, details string) {
	WriteJSON(w, status, ErrorBody{Error: kind, Details: details})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
