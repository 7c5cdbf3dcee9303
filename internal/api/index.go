package api

import "net/http"

type indexResponse struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}

func IndexHandler() http.HandlerFunc {
	resp := indexResponse{
		Message: "Webhook Exposee API",
		Endpoints: map[string]string{
			"register":   "POST /webhooks/register",
			"unregister": "DELETE /webhooks/unregister",
			"webhooks":   "GET /webhooks",
			"events":     "GET /events",
			"trigger":    "POST /events/{eventType}/trigger",
			"ping":       "POST /ping",
			"pingStatus": "GET /ping/status",
			"health":     "GET /health",
			"metrics":    "GET /metrics",
			"feed":       "GET /ws",
		},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, resp)
	}
}
