package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Priya8975/webhook-exposee/internal/domain"
	"github.com/Priya8975/webhook-exposee/internal/store"
)

// Pinger probes every distinct subscriber URL.
type Pinger interface {
	PingAll(ctx context.Context) (*domain.PingReport, error)
}

// PingStatusReader returns the latest ping outcome per URL.
type PingStatusReader interface {
	All(ctx context.Context) (map[string]store.PingStatus, error)
}

type PingHandler struct {
	dispatcher Pinger
	status     PingStatusReader
	logger     *slog.Logger
}

// NewPingHandler creates the ping handler. status may be nil when Redis is
// not configured.
func NewPingHandler(dispatcher Pinger, status PingStatusReader, logger *slog.Logger) *PingHandler {
	return &PingHandler{dispatcher: dispatcher, status: status, logger: logger}
}

func (h *PingHandler) Ping(w http.ResponseWriter, r *http.Request) {
	report, err := h.dispatcher.PingAll(r.Context())
	if err != nil {
		h.logger.Error("ping failed", "error", err)
		if errors.Is(err, domain.ErrStorage) {
			respondError(w, http.StatusInternalServerError, "storage unavailable")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *PingHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		respondJSON(w, http.StatusOK, map[string]store.PingStatus{})
		return
	}

	snapshot, err := h.status.All(r.Context())
	if err != nil {
		h.logger.Error("reading ping status", "error", err)
		respondError(w, http.StatusInternalServerError, "ping status unavailable")
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}
