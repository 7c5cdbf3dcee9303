package worker

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Priya8975/webhook-exposee/internal/domain"
)

// DefaultTimeout bounds a single delivery.
const DefaultTimeout = 5 * time.Second

// maxResponseBody is how much of a subscriber response is drained.
const maxResponseBody = 1024

// Job is one envelope destined for one subscriber URL.
type Job struct {
	URL       string
	EventName string
	Body      []byte
}

// Deliverer handles the HTTP delivery of webhook payloads to subscriber endpoints.
type Deliverer struct {
	httpClient    *http.Client
	signingSecret string
	logger        *slog.Logger
}

// Option configures a Deliverer.
type Option func(*Deliverer)

// WithTimeout sets the per-delivery timeout.
func WithTimeout(d time.Duration) Option {
	return func(dl *Deliverer) { dl.httpClient.Timeout = d }
}

// WithSigningSecret enables the X-Webhook-Signature header.
func WithSigningSecret(secret string) Option {
	return func(dl *Deliverer) { dl.signingSecret = secret }
}

// WithHTTPClient replaces the HTTP client. Its Timeout is kept as given.
func WithHTTPClient(c *http.Client) Option {
	return func(dl *Deliverer) { dl.httpClient = c }
}

// NewDeliverer creates a deliverer with a configured HTTP client.
func NewDeliverer(logger *slog.Logger, opts ...Option) *Deliverer {
	d := &Deliverer{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deliver POSTs job.Body to job.URL. Any HTTP response, whatever its
// status, counts as success; only transport failures set Success=false.
func (d *Deliverer) Deliver(ctx context.Context, job Job) domain.DeliveryResult {
	start := time.Now()
	result := domain.DeliveryResult{URL: job.URL}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.URL, bytes.NewReader(job.Body))
	if err != nil {
		de := &domain.DeliveryError{URL: job.URL, Kind: domain.DeliveryRequest, Err: err}
		return d.finish(job, result, start, de)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", job.EventName)
	if d.signingSecret != "" {
		req.Header.Set("X-Webhook-Signature", computeHMAC(job.Body, d.signingSecret))
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return d.finish(job, result, start, domain.NewDeliveryError(job.URL, err))
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))

	status := resp.StatusCode
	result.Success = true
	result.StatusCode = &status
	return d.finish(job, result, start, nil)
}

func (d *Deliverer) finish(job Job, result domain.DeliveryResult, start time.Time, derr *domain.DeliveryError) domain.DeliveryResult {
	result.ResponseMs = time.Since(start).Milliseconds()

	if derr != nil {
		result.Success = false
		result.Error = derr.Error()
		d.logger.Warn("delivery failed",
			"event_type", job.EventName,
			"url", job.URL,
			"error_kind", string(derr.Kind),
			"error", derr.Err,
			"response_time_ms", result.ResponseMs,
		)
		return result
	}

	d.logger.Info("delivery completed",
		"event_type", job.EventName,
		"url", job.URL,
		"status_code", *result.StatusCode,
		"response_time_ms", result.ResponseMs,
	)
	return result
}

// VerifySignature reports whether sig is the hex HMAC-SHA256 of payload
// under secret.
func VerifySignature(payload []byte, secret, sig string) bool {
	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), want)
}

// computeHMAC generates an HMAC-SHA256 signature for the payload.
func computeHMAC(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
