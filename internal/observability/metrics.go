package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges shared by
// the ingress service and the dashboard poller.
type Metrics struct {
	MessagesConsumed prometheus.Counter
	ParseErrors      prometheus.Counter
	PointsWritten    prometheus.Counter
	IngestRunning    prometheus.Gauge
	WriteDuration    prometheus.Histogram

	// Dashboard read path.
	PollFetches *prometheus.CounterVec // labels: series, outcome={success,error,empty}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "haus",
			Name:      "messages_consumed_total",
			Help:      "Total MQTT messages received from the sensor topic.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "haus",
			Name:      "parse_errors_total",
			Help:      "Total payloads rejected by the parser.",
		}),
		PointsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "haus",
			Name:      "points_written_total",
			Help:      "Total points written to the time-series store.",
		}),
		IngestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "haus",
			Name:      "ingest_running",
			Help:      "1 when the ingress loop is active, 0 when shut down.",
		}),
		WriteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "haus",
			Name:      "write_duration_seconds",
			Help:      "Duration of the two store writes for one reading.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		PollFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "haus",
			Name:      "poll_fetches_total",
			Help:      "Dashboard store fetches by series and outcome.",
		}, []string{"series", "outcome"}),
	}

	prometheus.MustRegister(
		m.MessagesConsumed,
		m.ParseErrors,
		m.PointsWritten,
		m.IngestRunning,
		m.WriteDuration,
		m.PollFetches,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "haus", Name: "messages_consumed_total"}),
		ParseErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "haus", Name: "parse_errors_total"}),
		PointsWritten:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "haus", Name: "points_written_total"}),
		IngestRunning:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "haus", Name: "ingest_running"}),
		WriteDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "haus", Name: "write_duration_seconds"}),
		PollFetches:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "haus", Name: "poll_fetches_total"}, []string{"series", "outcome"}),
	}
}
