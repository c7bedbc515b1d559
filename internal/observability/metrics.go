package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// context pipeline and the conversation gateway.
type Metrics struct {
	FeedFetches       *prometheus.CounterVec   // labels: feed={weather,incidents}, outcome={success,unavailable,parse_error}
	FeedFetchDuration *prometheus.HistogramVec // labels: feed={weather,incidents}

	ContextBuilds      *prometheus.CounterVec // labels: result={full,degraded}
	ContextCache       *prometheus.CounterVec // labels: result={hit,miss}
	SnapshotsPublished prometheus.Counter

	GatewayTurns   *prometheus.CounterVec // labels: op={init,chat}, outcome={success,error}
	ActiveSessions prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FeedFetches,
		m.FeedFetchDuration,
		m.ContextBuilds,
		m.ContextCache,
		m.SnapshotsPublished,
		m.GatewayTurns,
		m.ActiveSessions,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FeedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "traffic_agent",
			Name:      "feed_fetches_total",
			Help:      "Feed fetch attempts by feed and outcome.",
		}, []string{"feed", "outcome"}),
		FeedFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "traffic_agent",
			Name:      "feed_fetch_duration_seconds",
			Help:      "Feed retrieval duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"feed"}),
		ContextBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "traffic_agent",
			Name:      "context_builds_total",
			Help:      "Context block compositions by result.",
		}, []string{"result"}),
		ContextCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "traffic_agent",
			Name:      "context_cache_total",
			Help:      "Context cache lookups by result.",
		}, []string{"result"}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "traffic_agent",
			Name:      "snapshots_published_total",
			Help:      "Context snapshots published to the snapshot topic.",
		}),
		GatewayTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "traffic_agent",
			Name:      "gateway_turns_total",
			Help:      "Conversation gateway calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "traffic_agent",
			Name:      "active_sessions",
			Help:      "Number of live conversation sessions.",
		}),
	}
}
