package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Priya8975/webhook-exposee/internal/domain"
	"github.com/Priya8975/webhook-exposee/internal/worker"
)

// PingMessage is the fixed payload of every health probe.
const PingMessage = "Webhook ping test"

// SubscriptionReader is the read side of the subscription registry.
type SubscriptionReader interface {
	ListByEvent(ctx context.Context, eventType domain.EventType) ([]domain.Subscription, error)
	ListAll(ctx context.Context) ([]domain.Subscription, error)
}

// Observer is notified of fan-outs and their individual outcomes. Calls
// may arrive concurrently from delivery workers.
type Observer interface {
	ObserveDispatch(event string, targets int)
	ObserveDelivery(event string, result domain.DeliveryResult)
}

// PingRecorder stores the latest ping outcomes.
type PingRecorder interface {
	RecordPings(ctx context.Context, checkedAt time.Time, results []domain.DeliveryResult) error
}

// Dispatcher fans events out to matching subscribers and probes every
// known subscriber URL. Delivery is best-effort and at-most-once: nothing
// is queued, so a crash mid fan-out drops the undelivered remainder.
type Dispatcher struct {
	registry  SubscriptionReader
	deliverer *worker.Deliverer
	pool      *worker.Pool
	logger    *slog.Logger
	observers []Observer
	pings     PingRecorder
	now       func() time.Time
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithObserver adds a fan-out observer.
func WithObserver(o Observer) DispatcherOption {
	return func(d *Dispatcher) { d.observers = append(d.observers, o) }
}

// WithPingRecorder stores every PingAll outcome.
func WithPingRecorder(r PingRecorder) DispatcherOption {
	return func(d *Dispatcher) { d.pings = r }
}

// WithClock overrides the dispatch timestamp source.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(registry SubscriptionReader, deliverer *worker.Deliverer, pool *worker.Pool, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry:  registry,
		deliverer: deliverer,
		pool:      pool,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Trigger delivers payload to every subscription of eventType. Only catalog
// and registry failures are returned; delivery failures are reported per
// subscriber in the result.
func (d *Dispatcher) Trigger(ctx context.Context, eventType domain.EventType, payload json.RawMessage) (*domain.DispatchReport, error) {
	if !eventType.IsValid() {
		return nil, &domain.InvalidEventTypeError{Value: eventType.String()}
	}
	event := eventType.String()

	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("payload for %s is not valid JSON", event)
	}

	subs, err := d.registry.ListByEvent(ctx, eventType)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions for %s: %w", event, err)
	}

	report := &domain.DispatchReport{
		EventType:         eventType,
		WebhooksTriggered: len(subs),
		Results:           []domain.DeliveryResult{},
	}
	d.notifyDispatch(event, len(subs))

	if len(subs) == 0 {
		d.logger.Info("no subscribers for event", "event_type", event)
		return report, nil
	}

	body, err := json.Marshal(domain.NewEnvelope(event, d.now(), payload))
	if err != nil {
		return nil, fmt.Errorf("encoding envelope: %w", err)
	}

	urls := make([]string, len(subs))
	for i, sub := range subs {
		urls[i] = sub.URL
	}

	report.Results = d.fanOut(ctx, event, urls, body)
	d.logSummary("trigger complete", event, report.Results)
	return report, nil
}

// PingAll sends a ping envelope once to every distinct subscriber URL.
func (d *Dispatcher) PingAll(ctx context.Context) (*domain.PingReport, error) {
	subs, err := d.registry.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}

	urls := distinctURLs(subs)
	report := &domain.PingReport{
		TotalPinged: len(urls),
		Results:     []domain.DeliveryResult{},
	}
	d.notifyDispatch(domain.PingEvent, len(urls))

	if len(urls) == 0 {
		d.logger.Info("no subscribers to ping")
		return report, nil
	}

	at := d.now()
	data, err := json.Marshal(map[string]string{"message": PingMessage})
	if err != nil {
		return nil, fmt.Errorf("encoding ping payload: %w", err)
	}
	body, err := json.Marshal(domain.NewEnvelope(domain.PingEvent, at, data))
	if err != nil {
		return nil, fmt.Errorf("encoding envelope: %w", err)
	}

	report.Results = d.fanOut(ctx, domain.PingEvent, urls, body)
	d.logSummary("ping complete", domain.PingEvent, report.Results)

	if d.pings != nil {
		if err := d.pings.RecordPings(context.WithoutCancel(ctx), at, report.Results); err != nil {
			d.logger.Warn("failed to record ping status", "error", err)
		}
	}

	return report, nil
}

// fanOut delivers body to every url through the pool and returns outcomes
// in url order. Deliveries are detached from ctx cancellation; each is
// bounded by the deliverer's own timeout.
func (d *Dispatcher) fanOut(ctx context.Context, event string, urls []string, body []byte) []domain.DeliveryResult {
	results := make([]domain.DeliveryResult, len(urls))
	done := make([]bool, len(urls))

	d.pool.Run(context.WithoutCancel(ctx), len(urls), func(ctx context.Context, i int) {
		res := d.deliverer.Deliver(ctx, worker.Job{URL: urls[i], EventName: event, Body: body})
		results[i] = res
		done[i] = true
		for _, o := range d.observers {
			o.ObserveDelivery(event, res)
		}
	})

	for i := range results {
		if !done[i] {
			results[i] = domain.DeliveryResult{URL: urls[i], Success: false, Error: "delivery aborted"}
		}
	}
	return results
}

func (d *Dispatcher) notifyDispatch(event string, targets int) {
	for _, o := range d.observers {
		o.ObserveDispatch(event, targets)
	}
}

func (d *Dispatcher) logSummary(msg, event string, results []domain.DeliveryResult) {
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	d.logger.Info(msg,
		"event_type", event,
		"deliveries", len(results),
		"failed", failed,
	)
}

// distinctURLs keeps the first occurrence of every URL in listing order.
func distinctURLs(subs []domain.Subscription) []string {
	seen := make(map[string]struct{}, len(subs))
	urls := make([]string, 0, len(subs))
	for _, sub := range subs {
		if _, ok := seen[sub.URL]; ok {
			continue
		}
		seen[sub.URL] = struct{}{}
		urls = append(urls, sub.URL)
	}
	return urls
}
