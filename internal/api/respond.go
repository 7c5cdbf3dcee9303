package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Priya8975/webhook-exposee/internal/domain"
)

type errorResponse struct {
	Error           string   `json:"error"`
	ValidEventTypes []string `json:"validEventTypes,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

func respondInvalidEventType(w http.ResponseWriter) {
	respondJSON(w, http.StatusBadRequest, errorResponse{
		Error:           "Invalid event type",
		ValidEventTypes: domain.EventTypeNames(),
	})
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
