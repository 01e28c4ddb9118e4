package publisher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks audit delivery outcomes per category.
type Metrics struct {
	appends   *prometheus.CounterVec
	latencies *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		appends: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "equitygate_audit_appends_total",
			Help: "Audit store appends by category and result",
		}, []string{"category", "result"}),
		latencies: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "equitygate_audit_append_duration_seconds",
			Help:    "Audit store append latency by category",
			Buckets: prometheus.DefBuckets,
		}, []string{"category"}),
	}
}

func (m *Metrics) observeAppend(category string, ok bool, d time.Duration) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.appends.WithLabelValues(category, result).Inc()
	m.latencies.WithLabelValues(category).Observe(d.Seconds())
}
