package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Priya8975/webhook-exposee/internal/engine"
	"github.com/Priya8975/webhook-exposee/internal/metrics"
	"github.com/Priya8975/webhook-exposee/internal/store"
	"github.com/Priya8975/webhook-exposee/internal/worker"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server   *httptest.Server
	registry *store.SQLiteStore
	metrics  *metrics.Metrics
}

type envOptions struct {
	redis     bool
	rateLimit int
}

func setupEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	registry, err := store.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "webhooks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = registry.Close() })

	m := metrics.New()
	deps := Deps{
		Registry: registry,
		Metrics:  m,
		Logger:   logger,
	}

	dispatcherOpts := []engine.DispatcherOption{engine.WithObserver(m)}
	if opts.redis {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })

		deps.Redis = store.NewRedisFromClient(client)
		deps.PingStatus = store.NewPingStatusStore(client, time.Hour)
		deps.Limiter = engine.NewRateLimiter(client, logger)
		deps.RateLimit = opts.rateLimit
		dispatcherOpts = append(dispatcherOpts, engine.WithPingRecorder(deps.PingStatus))
	}

	deliverer := worker.NewDeliverer(logger, worker.WithTimeout(2*time.Second))
	pool := worker.NewPool(4, logger)
	deps.Dispatcher = engine.NewDispatcher(registry, deliverer, pool, logger, dispatcherOpts...)

	srv := httptest.NewServer(NewRouter(deps))
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, registry: registry, metrics: m}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if len(bytes.TrimSpace(raw)) > 0 && resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	}
	return resp.StatusCode, out
}

// subscriber records every envelope it receives.
type subscriber struct {
	*httptest.Server
	mu       sync.Mutex
	bodies   []map[string]any
	events   []string
	statusOK int
}

func newSubscriber(t *testing.T, status int) *subscriber {
	t.Helper()
	s := &subscriber{statusOK: status}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.bodies = append(s.bodies, body)
		s.events = append(s.events, r.Header.Get("X-Webhook-Event"))
		s.mu.Unlock()
		w.WriteHeader(s.statusOK)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *subscriber) received() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.bodies...)
}

func registerBody(url, eventType string) string {
	b, _ := json.Marshal(map[string]string{"url": url, "eventType": eventType})
	return string(b)
}

func TestIndexAndEvents(t *testing.T) {
	env := setupEnv(t, envOptions{})

	status, body := env.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Webhook Exposee API", body["message"])

	status, body = env.do(t, http.MethodGet, "/events", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"payment.received", "payment.processed", "invoice.processing", "invoice.completed"}, body["events"])
	desc := body["description"].(map[string]any)
	assert.Equal(t, "Triggered when an invoice begins processing", desc["invoice.processing"])
}

func TestRegister_CreatedThenDuplicate(t *testing.T) {
	env := setupEnv(t, envOptions{})

	status, first := env.do(t, http.MethodPost, "/webhooks/register", registerBody("https://a.test/hook", "payment.received"))
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, first["success"])
	created := first["webhook"].(map[string]any)
	assert.Equal(t, "https://a.test/hook", created["url"])
	assert.Equal(t, "payment.received", created["eventType"])

	status, second := env.do(t, http.MethodPost, "/webhooks/register", registerBody("https://a.test/hook", "payment.received"))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Webhook already registered for this event type", second["message"])
	assert.Equal(t, false, second["success"])
	assert.Equal(t, created["id"], second["webhook"].(map[string]any)["id"])

	subs, err := env.registry.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestRegister_Validation(t *testing.T) {
	env := setupEnv(t, envOptions{})

	tests := []struct {
		name      string
		body      string
		wantError string
		wantTypes bool
	}{
		{"missing url", `{"eventType":"payment.received"}`, "URL is required", false},
		{"missing event type", `{"url":"https://a.test"}`, "Event type is required", false},
		{"unknown event type", registerBody("https://a.test", "payment.refunded"), "Invalid event type", true},
		{"ping is not registrable", registerBody("https://a.test", "ping"), "Invalid event type", true},
		{"malformed body", `{"url":`, "invalid request body", false},
		{"empty body", "", "URL is required", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(t, http.MethodPost, "/webhooks/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.wantError, body["error"])
			if tt.wantTypes {
				assert.Len(t, body["validEventTypes"], 4)
			}
		})
	}

	subs, err := env.registry.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestUnregister(t *testing.T) {
	env := setupEnv(t, envOptions{})
	env.do(t, http.MethodPost, "/webhooks/register", registerBody("https://a.test", "payment.received"))
	env.do(t, http.MethodPost, "/webhooks/register", registerBody("https://a.test", "invoice.completed"))

	status, body := env.do(t, http.MethodDelete, "/webhooks/unregister", registerBody("https://a.test", "payment.received"))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Webhook unregistered successfully", body["message"])

	status, body = env.do(t, http.MethodDelete, "/webhooks/unregister", registerBody("https://a.test", "payment.received"))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Webhook not found", body["message"])

	status, _ = env.do(t, http.MethodDelete, "/webhooks/unregister", registerBody("https://a.test", "nope"))
	assert.Equal(t, http.StatusBadRequest, status)

	subs, err := env.registry.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "invoice.completed", subs[0].EventType.String())
}

func TestListWebhooks(t *testing.T) {
	env := setupEnv(t, envOptions{})
	env.do(t, http.MethodPost, "/webhooks/register", registerBody("https://a.test", "payment.received"))
	env.do(t, http.MethodPost, "/webhooks/register", registerBody("https://b.test", "invoice.completed"))
	env.do(t, http.MethodPost, "/webhooks/register", registerBody("https://c.test", "payment.received"))

	status, body := env.do(t, http.MethodGet, "/webhooks", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body["total"])

	status, body = env.do(t, http.MethodGet, "/webhooks?eventType=payment.received", "")
	require.Equal(t, http.StatusOK, status)
	hooks := body["webhooks"].([]any)
	require.Len(t, hooks, 2)
	assert.Equal(t, "https://a.test", hooks[0].(map[string]any)["url"])
	assert.Equal(t, "https://c.test", hooks[1].(map[string]any)["url"])

	status, _ = env.do(t, http.MethodGet, "/webhooks?eventType=bogus", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTrigger_DeliversEnvelope(t *testing.T) {
	env := setupEnv(t, envOptions{})
	ok := newSubscriber(t, http.StatusOK)
	rejecting := newSubscriber(t, http.StatusInternalServerError)
	other := newSubscriber(t, http.StatusOK)

	env.do(t, http.MethodPost, "/webhooks/register", registerBody(ok.URL, "payment.received"))
	env.do(t, http.MethodPost, "/webhooks/register", registerBody(rejecting.URL, "payment.received"))
	env.do(t, http.MethodPost, "/webhooks/register", registerBody(other.URL, "invoice.completed"))

	status, body := env.do(t, http.MethodPost, "/events/payment.received/trigger", `{"amount":42,"currency":"USD"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "payment.received", body["eventType"])
	assert.EqualValues(t, 2, body["webhooksTriggered"])

	results := body["results"].([]any)
	require.Len(t, results, 2)
	first := results[0].(map[string]any)
	assert.Equal(t, ok.URL, first["webhook"])
	assert.Equal(t, true, first["success"])
	assert.EqualValues(t, 200, first["statusCode"])
	second := results[1].(map[string]any)
	assert.Equal(t, true, second["success"])
	assert.EqualValues(t, 500, second["statusCode"])

	got := ok.received()
	require.Len(t, got, 1)
	assert.Equal(t, "payment.received", got[0]["event"])
	assert.Equal(t, map[string]any{"amount": float64(42), "currency": "USD"}, got[0]["data"])
	_, err := time.Parse(time.RFC3339, got[0]["timestamp"].(string))
	assert.NoError(t, err)
	assert.Empty(t, other.received())

	assert.Contains(t, scrapeMetrics(t, env), `exposee_triggers_total{event_type="payment.received"} 1`)
}

func TestTrigger_EmptyBodyBecomesObject(t *testing.T) {
	env := setupEnv(t, envOptions{})
	sub := newSubscriber(t, http.StatusNoContent)
	env.do(t, http.MethodPost, "/webhooks/register", registerBody(sub.URL, "invoice.processing"))

	status, _ := env.do(t, http.MethodPost, "/events/invoice.processing/trigger", "")
	require.Equal(t, http.StatusOK, status)

	got := sub.received()
	require.Len(t, got, 1)
	assert.Equal(t, map[string]any{}, got[0]["data"])
}

func TestTrigger_Rejections(t *testing.T) {
	env := setupEnv(t, envOptions{})

	status, body := env.do(t, http.MethodPost, "/events/payment.refunded/trigger", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid event type", body["error"])
	assert.Len(t, body["validEventTypes"], 4)

	status, body = env.do(t, http.MethodPost, "/events/payment.received/trigger", `{"amount":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "payload must be valid JSON", body["error"])
}

func TestTrigger_NoSubscribers(t *testing.T) {
	env := setupEnv(t, envOptions{})

	status, body := env.do(t, http.MethodPost, "/events/invoice.completed/trigger", `{"id":"inv_1"}`)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["webhooksTriggered"])
	assert.Equal(t, []any{}, body["results"])
}

func TestTrigger_RateLimited(t *testing.T) {
	env := setupEnv(t, envOptions{redis: true, rateLimit: 2})

	for i := 0; i < 2; i++ {
		status, _ := env.do(t, http.MethodPost, "/events/payment.processed/trigger", `{}`)
		require.Equal(t, http.StatusOK, status)
	}

	status, body := env.do(t, http.MethodPost, "/events/payment.processed/trigger", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate limit exceeded", body["error"])

	// Limits are per event type.
	status, _ = env.do(t, http.MethodPost, "/events/payment.received/trigger", `{}`)
	assert.Equal(t, http.StatusOK, status)
}

func TestPing_DistinctURLsAndStatus(t *testing.T) {
	env := setupEnv(t, envOptions{redis: true})
	sub := newSubscriber(t, http.StatusOK)
	env.do(t, http.MethodPost, "/webhooks/register", registerBody(sub.URL, "payment.received"))
	env.do(t, http.MethodPost, "/webhooks/register", registerBody(sub.URL, "invoice.completed"))

	status, body := env.do(t, http.MethodPost, "/ping", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["totalPinged"])

	got := sub.received()
	require.Len(t, got, 1)
	assert.Equal(t, "ping", got[0]["event"])
	assert.Equal(t, map[string]any{"message": "Webhook ping test"}, got[0]["data"])

	status, snapshot := env.do(t, http.MethodGet, "/ping/status", "")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, snapshot, sub.URL)
	assert.Equal(t, true, snapshot[sub.URL].(map[string]any)["success"])

	// The status survives until the URL's last subscription goes away.
	env.do(t, http.MethodDelete, "/webhooks/unregister", registerBody(sub.URL, "payment.received"))
	_, snapshot = env.do(t, http.MethodGet, "/ping/status", "")
	assert.Contains(t, snapshot, sub.URL)

	env.do(t, http.MethodDelete, "/webhooks/unregister", registerBody(sub.URL, "invoice.completed"))
	_, snapshot = env.do(t, http.MethodGet, "/ping/status", "")
	assert.NotContains(t, snapshot, sub.URL)
}

func TestPingStatus_WithoutRedis(t *testing.T) {
	env := setupEnv(t, envOptions{})

	status, body := env.do(t, http.MethodGet, "/ping/status", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, body)
}

func TestHealth(t *testing.T) {
	env := setupEnv(t, envOptions{redis: true})

	status, body := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["storage"])
	assert.Equal(t, "ok", checks["redis"])
}

func TestStorageFailure(t *testing.T) {
	env := setupEnv(t, envOptions{})
	require.NoError(t, env.registry.Close())

	status, body := env.do(t, http.MethodPost, "/webhooks/register", registerBody("https://a.test", "payment.received"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "storage unavailable", body["error"])

	status, _ = env.do(t, http.MethodPost, "/events/payment.received/trigger", `{}`)
	assert.Equal(t, http.StatusInternalServerError, status)

	status, body = env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "unhealthy", body["status"])
}

func scrapeMetrics(t *testing.T, env *testEnv) string {
	t.Helper()
	resp, err := http.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}
