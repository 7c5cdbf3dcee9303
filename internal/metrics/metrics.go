package metrics

import (
	"net/http"
	"time"

	"github.com/Priya8975/webhook-exposee/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "exposee"

// Metrics holds the dispatch collectors. It implements engine.Observer.
type Metrics struct {
	registry *prometheus.Registry

	TriggersTotal    *prometheus.CounterVec
	PingsTotal       prometheus.Counter
	DispatchTargets  *prometheus.HistogramVec
	DeliveriesTotal  *prometheus.CounterVec
	DeliveryDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TriggersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "triggers_total",
				Help:      "Number of event triggers",
			},
			[]string{"event_type"},
		),
		PingsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pings_total",
				Help:      "Number of ping-all probes",
			},
		),
		DispatchTargets: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dispatch_targets",
				Help:      "Subscriber URLs targeted per fan-out",
				Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
			},
			[]string{"event_type"},
		),
		DeliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deliveries_total",
				Help:      "Delivery attempts by outcome",
			},
			[]string{"event_type", "outcome"},
		),
		DeliveryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "delivery_duration_seconds",
				Help:      "Time from request start to response or failure",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"event_type"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.TriggersTotal,
		m.PingsTotal,
		m.DispatchTargets,
		m.DeliveriesTotal,
		m.DeliveryDuration,
	)
	return m
}

func (m *Metrics) ObserveDispatch(event string, targets int) {
	if event == domain.PingEvent {
		m.PingsTotal.Inc()
	} else {
		m.TriggersTotal.WithLabelValues(event).Inc()
	}
	m.DispatchTargets.WithLabelValues(event).Observe(float64(targets))
}

func (m *Metrics) ObserveDelivery(event string, r domain.DeliveryResult) {
	m.DeliveriesTotal.WithLabelValues(event, outcome(r)).Inc()
	m.DeliveryDuration.WithLabelValues(event).Observe((time.Duration(r.ResponseMs) * time.Millisecond).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// outcome separates responses the subscriber rejected from transport
// failures; both non-failure kinds count as delivered.
func outcome(r domain.DeliveryResult) string {
	switch {
	case !r.Success:
		return "failed"
	case r.StatusCode != nil && *r.StatusCode >= 400:
		return "delivered_error_status"
	default:
		return "delivered"
	}
}
