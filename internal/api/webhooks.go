package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Priya8975/webhook-exposee/internal/domain"
	"github.com/Priya8975/webhook-exposee/internal/store"
)

// PingStatusForgetter drops a URL from the ping status snapshot.
type PingStatusForgetter interface {
	Forget(ctx context.Context, url string) error
}

type WebhookHandler struct {
	registry store.Registry
	pings    PingStatusForgetter
	logger   *slog.Logger
}

func NewWebhookHandler(registry store.Registry, pings PingStatusForgetter, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{registry: registry, pings: pings, logger: logger}
}

type webhookRequest struct {
	URL       string `json:"url"`
	EventType string `json:"eventType"`
}

type registerResponse struct {
	Message string               `json:"message,omitempty"`
	Success bool                 `json:"success"`
	Webhook *domain.Subscription `json:"webhook"`
}

type listWebhooksResponse struct {
	Total    int                   `json:"total"`
	Webhooks []domain.Subscription `json:"webhooks"`
}

// parse validates a register/unregister body and writes the 400 response
// itself when it is unusable.
func (h *WebhookHandler) parse(w http.ResponseWriter, r *http.Request) (string, domain.EventType, bool) {
	var req webhookRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return "", 0, false
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "URL is required")
		return "", 0, false
	}
	if req.EventType == "" {
		respondError(w, http.StatusBadRequest, "Event type is required")
		return "", 0, false
	}
	et, err := domain.ParseEventType(req.EventType)
	if err != nil {
		respondInvalidEventType(w)
		return "", 0, false
	}
	return req.URL, et, true
}

func (h *WebhookHandler) Register(w http.ResponseWriter, r *http.Request) {
	url, et, ok := h.parse(w, r)
	if !ok {
		return
	}

	res, err := h.registry.Register(r.Context(), url, et)
	if err != nil {
		h.fail(w, "register", err)
		return
	}

	sub := res.Subscription
	if res.Created {
		h.logger.Info("webhook registered", "url", url, "event_type", et.String(), "id", sub.ID)
		respondJSON(w, http.StatusCreated, registerResponse{Success: true, Webhook: &sub})
		return
	}

	respondJSON(w, http.StatusOK, registerResponse{
		Message: "Webhook already registered for this event type",
		Success: false,
		Webhook: &sub,
	})
}

func (h *WebhookHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	url, et, ok := h.parse(w, r)
	if !ok {
		return
	}

	res, err := h.registry.Unregister(r.Context(), url, et)
	if err != nil {
		h.fail(w, "unregister", err)
		return
	}
	if !res.Removed {
		respondJSON(w, http.StatusNotFound, messageResponse{Message: "Webhook not found"})
		return
	}

	h.logger.Info("webhook unregistered", "url", url, "event_type", et.String())
	h.forgetIfUnused(r, url)
	respondJSON(w, http.StatusOK, messageResponse{Message: "Webhook unregistered successfully"})
}

// List returns every subscription, or only those of ?eventType=.
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		subs []domain.Subscription
		err  error
	)

	if name := r.URL.Query().Get("eventType"); name != "" {
		et, perr := domain.ParseEventType(name)
		if perr != nil {
			respondInvalidEventType(w)
			return
		}
		subs, err = h.registry.ListByEvent(r.Context(), et)
	} else {
		subs, err = h.registry.ListAll(r.Context())
	}
	if err != nil {
		h.fail(w, "list", err)
		return
	}

	if subs == nil {
		subs = []domain.Subscription{}
	}
	respondJSON(w, http.StatusOK, listWebhooksResponse{Total: len(subs), Webhooks: subs})
}

// forgetIfUnused drops the ping status of a URL that no longer has any
// subscription. Failures are only logged.
func (h *WebhookHandler) forgetIfUnused(r *http.Request, url string) {
	if h.pings == nil {
		return
	}

	subs, err := h.registry.ListAll(r.Context())
	if err != nil {
		h.logger.Warn("checking remaining subscriptions", "url", url, "error", err)
		return
	}
	for _, s := range subs {
		if s.URL == url {
			return
		}
	}

	if err := h.pings.Forget(r.Context(), url); err != nil {
		h.logger.Warn("failed to forget ping status", "url", url, "error", err)
	}
}

func (h *WebhookHandler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrStorage):
		h.logger.Error("registry operation failed", "op", op, "error", err)
		respondError(w, http.StatusInternalServerError, "storage unavailable")
	case errors.Is(err, domain.ErrInvalidEventType):
		respondInvalidEventType(w)
	default:
		h.logger.Error("registry operation failed", "op", op, "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
