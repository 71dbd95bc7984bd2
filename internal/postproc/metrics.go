package postproc

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts processed and failed metric computations. A nil *Metrics is
// valid and records nothing, so library callers can opt out.
type Metrics struct {
	processed *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

// NewMetrics builds the counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cdrflux",
			Name:      "metrics_processed_total",
			Help:      "Metric computations that completed and persisted their artifacts.",
		}, []string{"metric"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cdrflux",
			Name:      "metrics_failed_total",
			Help:      "Metric computations that failed (missing input, malformed table, persistence error).",
		}, []string{"metric"}),
	}
	reg.MustRegister(m.processed, m.failed)
	return m
}

func (m *Metrics) done(metric Metric) {
	if m == nil {
		return
	}
	m.processed.WithLabelValues(string(metric)).Inc()
}

func (m *Metrics) fail(metric Metric) {
	if m == nil {
		return
	}
	m.failed.WithLabelValues(string(metric)).Inc()
}
