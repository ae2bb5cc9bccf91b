package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service
type Metrics struct {
	// Event pipeline metrics
	EventsProcessed prometheus.Counter
	EventsMatched   prometheus.Counter
	EventsDiscarded *prometheus.CounterVec
	EventsDropped   prometheus.Counter
	PersistFailures prometheus.Counter

	// Forwarding metrics
	MessagesForwarded prometheus.Counter
	ForwardErrors     prometheus.Counter

	// Connection metrics
	ActiveConnections prometheus.Gauge
	Reconnections     prometheus.Counter

	// Processor metrics
	ActiveProcessors    prometheus.Gauge
	ActiveSubscriptions prometheus.Gauge

	// Rate limiter metrics
	RateLimitWaits    prometheus.Counter
	RateLimitWaitTime prometheus.Histogram
}

// NewMetrics creates a Metrics instance on the default registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates a Metrics instance on the given registerer.
// Tests pass a fresh registry to avoid duplicate registration panics.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "senseinfo_events_processed_total",
			Help: "Total number of channel events seen by processors",
		}),
		EventsMatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "senseinfo_events_matched_total",
			Help: "Total number of events that matched keyword rules",
		}),
		EventsDiscarded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "senseinfo_events_discarded_total",
				Help: "Total number of discarded events",
			},
			[]string{"reason"},
		),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "senseinfo_events_dropped_total",
			Help: "Total number of events dropped due to full delivery buffers",
		}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "senseinfo_persist_failures_total",
			Help: "Total number of failed message persist transactions",
		}),
		MessagesForwarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "senseinfo_messages_forwarded_total",
			Help: "Total number of matched messages handed to the forwarder",
		}),
		ForwardErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "senseinfo_forward_errors_total",
			Help: "Total number of forwarding hook failures",
		}),
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "senseinfo_active_connections",
			Help: "Current number of live platform connections",
		}),
		Reconnections: factory.NewCounter(prometheus.CounterOpts{
			Name: "senseinfo_reconnections_total",
			Help: "Total number of connection reconnect attempts",
		}),
		ActiveProcessors: factory.NewGauge(prometheus.GaugeOpts{
			Name: "senseinfo_active_processors",
			Help: "Current number of running message processors",
		}),
		ActiveSubscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "senseinfo_active_subscriptions",
			Help: "Current number of channel subscriptions",
		}),
		RateLimitWaits: factory.NewCounter(prometheus.CounterOpts{
			Name: "senseinfo_rate_limit_waits_total",
			Help: "Total number of rate limiter acquisitions that had to wait",
		}),
		RateLimitWaitTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "senseinfo_rate_limit_wait_seconds",
			Help:    "Time spent waiting for rate limiter admission",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
}

// RecordDiscard increments the discard counter for a reason
func (m *Metrics) RecordDiscard(reason string) {
	m.EventsDiscarded.WithLabelValues(reason).Inc()
}
