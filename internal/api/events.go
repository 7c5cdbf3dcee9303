package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Priya8975/webhook-exposee/internal/domain"
	"github.com/go-chi/chi/v5"
)

// maxPayloadBytes caps a trigger request body.
const maxPayloadBytes = 1 << 20

// Triggerer fans an event out to its subscribers.
type Triggerer interface {
	Trigger(ctx context.Context, eventType domain.EventType, payload json.RawMessage) (*domain.DispatchReport, error)
}

// TriggerLimiter decides whether one more trigger of eventType may run.
type TriggerLimiter interface {
	Allow(ctx context.Context, eventType string, limit int) bool
}

type EventHandler struct {
	dispatcher Triggerer
	limiter    TriggerLimiter
	rateLimit  int
	logger     *slog.Logger
}

// NewEventHandler creates the event handler. limiter may be nil, which
// disables trigger rate limiting.
func NewEventHandler(dispatcher Triggerer, limiter TriggerLimiter, rateLimit int, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		dispatcher: dispatcher,
		limiter:    limiter,
		rateLimit:  rateLimit,
		logger:     logger,
	}
}

type listEventsResponse struct {
	Events      []string          `json:"events"`
	Description map[string]string `json:"description"`
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	types := domain.EventTypes()
	resp := listEventsResponse{
		Events:      make([]string, 0, len(types)),
		Description: make(map[string]string, len(types)),
	}
	for _, et := range types {
		resp.Events = append(resp.Events, et.String())
		resp.Description[et.String()] = et.Description()
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *EventHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	et, err := domain.ParseEventType(chi.URLParam(r, "eventType"))
	if err != nil {
		respondInvalidEventType(w)
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	payload = bytes.TrimSpace(payload)
	if len(payload) > 0 && !json.Valid(payload) {
		respondError(w, http.StatusBadRequest, "payload must be valid JSON")
		return
	}

	if h.limiter != nil && !h.limiter.Allow(r.Context(), et.String(), h.rateLimit) {
		w.Header().Set("Retry-After", "1")
		respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	report, err := h.dispatcher.Trigger(r.Context(), et, payload)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrStorage):
			h.logger.Error("trigger failed", "event_type", et.String(), "error", err)
			respondError(w, http.StatusInternalServerError, "storage unavailable")
		case errors.Is(err, domain.ErrInvalidEventType):
			respondInvalidEventType(w)
		default:
			h.logger.Error("trigger failed", "event_type", et.String(), "error", err)
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, report)
}
