package domain

import (
	"encoding/json"
	"time"
)

// EnvelopeTimeFormat is ISO-8601 UTC with millisecond precision.
const EnvelopeTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Envelope is the JSON body POSTed to every subscriber.
type Envelope struct {
	Event     string          `json:"event"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEnvelope stamps data with the dispatch time.
func NewEnvelope(event string, at time.Time, data json.RawMessage) Envelope {
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	return Envelope{
		Event:     event,
		Timestamp: at.UTC().Format(EnvelopeTimeFormat),
		Data:      data,
	}
}

// DeliveryResult is the outcome of one delivery attempt. Success means an
// HTTP response was observed, whatever its status code.
type DeliveryResult struct {
	URL        string `json:"webhook"`
	Success    bool   `json:"success"`
	StatusCode *int   `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`
	ResponseMs int64  `json:"responseTimeMs"`
}

// DispatchReport aggregates every delivery outcome of one trigger.
type DispatchReport struct {
	EventType         EventType        `json:"eventType"`
	WebhooksTriggered int              `json:"webhooksTriggered"`
	Results           []DeliveryResult `json:"results"`
}

// PingReport aggregates the outcome of pinging every distinct URL.
type PingReport struct {
	TotalPinged int              `json:"totalPinged"`
	Results     []DeliveryResult `json:"results"`
}
