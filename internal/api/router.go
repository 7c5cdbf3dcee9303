package api

import (
	"log/slog"
	"net/http"

	"github.com/Priya8975/webhook-exposee/internal/engine"
	"github.com/Priya8975/webhook-exposee/internal/metrics"
	"github.com/Priya8975/webhook-exposee/internal/store"
	ws "github.com/Priya8975/webhook-exposee/internal/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps holds what the router wires into its handlers. Redis, PingStatus,
// Limiter, Hub and Metrics are optional.
type Deps struct {
	Registry   store.Registry
	Dispatcher *engine.Dispatcher
	Redis      *store.RedisStore
	PingStatus *store.PingStatusStore
	Limiter    *engine.RateLimiter
	RateLimit  int
	Hub        *ws.Hub
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	// Optional dependencies stay untyped nil so handlers can test for them.
	var (
		forgetter  PingStatusForgetter
		statusRead PingStatusReader
		limiter    TriggerLimiter
		redisCheck pinger
	)
	if d.PingStatus != nil {
		forgetter = d.PingStatus
		statusRead = d.PingStatus
	}
	if d.Limiter != nil && d.RateLimit > 0 {
		limiter = d.Limiter
	}
	if d.Redis != nil {
		redisCheck = d.Redis
	}

	webhookHandler := NewWebhookHandler(d.Registry, forgetter, d.Logger)
	eventHandler := NewEventHandler(d.Dispatcher, limiter, d.RateLimit, d.Logger)
	pingHandler := NewPingHandler(d.Dispatcher, statusRead, d.Logger)

	r.Get("/", IndexHandler())
	r.Get("/health", HealthHandler(d.Registry, redisCheck))

	r.Route("/webhooks", func(r chi.Router) {
		r.Get("/", webhookHandler.List)
		r.Post("/register", webhookHandler.Register)
		r.Delete("/unregister", webhookHandler.Unregister)
	})

	r.Route("/events", func(r chi.Router) {
		r.Get("/", eventHandler.List)
		r.Post("/{eventType}/trigger", eventHandler.Trigger)
	})

	r.Post("/ping", pingHandler.Ping)
	r.Get("/ping/status", pingHandler.Status)

	if d.Hub != nil {
		r.Get("/ws", d.Hub.HandleWebSocket)
	}
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	return r
}
