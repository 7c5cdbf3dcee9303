package api

import (
	"context"
	"net/http"
	"time"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

const healthCheckTimeout = 2 * time.Second

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler returns the health check handler. redis may be nil.
func HealthHandler(registry pinger, redis pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp := HealthResponse{
			Status:  "healthy",
			Version: Version,
			Checks:  map[string]string{"storage": "ok"},
		}
		status := http.StatusOK

		if err := registry.Ping(ctx); err != nil {
			resp.Checks["storage"] = err.Error()
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}

		if redis != nil {
			resp.Checks["redis"] = "ok"
			// A Redis outage degrades the check but does not fail it.
			if err := redis.Ping(ctx); err != nil {
				resp.Checks["redis"] = err.Error()
				if status == http.StatusOK {
					resp.Status = "degraded"
				}
			}
		}

		respondJSON(w, status, resp)
	}
}
