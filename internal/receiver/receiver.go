// Package receiver is a sample subscriber endpoint for exercising the
// dispatcher by hand: it accepts envelopes, optionally checks their
// signature, and counts what it has seen.
package receiver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Priya8975/webhook-exposee/internal/domain"
	"github.com/Priya8975/webhook-exposee/internal/worker"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxEnvelopeBytes = 1 << 20

// Stats is the running tally served on GET /stats.
type Stats struct {
	TotalRequests      int64            `json:"total_requests"`
	ByEvent            map[string]int64 `json:"by_event"`
	RejectedSignatures int64            `json:"rejected_signatures"`
}

type Receiver struct {
	secret    string
	slowDelay time.Duration
	logger    *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a receiver. With a non-empty secret, envelopes without a
// valid X-Webhook-Signature are rejected with 401.
func New(secret string, slowDelay time.Duration, logger *slog.Logger) *Receiver {
	return &Receiver{
		secret:    secret,
		slowDelay: slowDelay,
		logger:    logger,
		stats:     Stats{ByEvent: map[string]int64{}},
	}
}

// Routes returns the receiver's handler.
func (rc *Receiver) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/webhook/success", rc.accept(http.StatusOK, 0))
	r.Post("/webhook/slow", rc.accept(http.StatusOK, rc.slowDelay))
	r.Post("/webhook/fail", rc.accept(http.StatusInternalServerError, 0))
	r.Get("/stats", rc.handleStats)
	return r
}

// Snapshot returns a copy of the current tally.
func (rc *Receiver) Snapshot() Stats {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	out := Stats{
		TotalRequests:      rc.stats.TotalRequests,
		ByEvent:            make(map[string]int64, len(rc.stats.ByEvent)),
		RejectedSignatures: rc.stats.RejectedSignatures,
	}
	for k, v := range rc.stats.ByEvent {
		out.ByEvent[k] = v
	}
	return out
}

func (rc *Receiver) accept(status int, delay time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEnvelopeBytes))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
			return
		}

		if rc.secret != "" && !worker.VerifySignature(body, rc.secret, r.Header.Get("X-Webhook-Signature")) {
			rc.mu.Lock()
			rc.stats.RejectedSignatures++
			rc.mu.Unlock()
			rc.logger.Warn("rejected envelope with bad signature", "path", r.URL.Path)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
			return
		}

		var env domain.Envelope
		if err := json.Unmarshal(body, &env); err != nil || env.Event == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "not an envelope"})
			return
		}

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		rc.mu.Lock()
		rc.stats.TotalRequests++
		rc.stats.ByEvent[env.Event]++
		count := rc.stats.TotalRequests
		rc.mu.Unlock()

		rc.logger.Info("envelope received",
			"n", count,
			"path", r.URL.Path,
			"event", env.Event,
			"header_event", r.Header.Get("X-Webhook-Event"),
			"timestamp", env.Timestamp,
			"status", status,
		)

		if status >= 400 {
			writeJSON(w, status, map[string]string{"error": "internal server error"})
			return
		}
		writeJSON(w, status, map[string]string{"status": "received"})
	}
}

func (rc *Receiver) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rc.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
