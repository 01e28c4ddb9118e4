package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks eligibility outcomes and accepted orders.
type Metrics struct {
	decisions *prometheus.CounterVec
	orders    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "equitygate",
			Subsystem: "investment",
			Name:      "decisions_total",
			Help:      "Eligibility decisions by outcome and denial reason.",
		}, []string{"outcome", "reason"}),
		orders: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "equitygate",
			Subsystem: "investment",
			Name:      "orders_total",
			Help:      "Accepted investment orders by kind.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) observeDecision(decision bool, reason string) {
	outcome := "denied"
	if decision {
		outcome = "allowed"
		reason = ""
	}
	m.decisions.WithLabelValues(outcome, reason).Inc()
}

func (m *Metrics) observeOrder(kind string) {
	m.orders.WithLabelValues(kind).Inc()
}
