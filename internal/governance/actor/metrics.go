package actor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks guard outcomes.
type Metrics struct {
	actionsRecorded *prometheus.CounterVec
	violations      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		actionsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "equitygate_actor_actions_recorded_total",
			Help: "Governance actions accepted by the actor guard, by actor type",
		}, []string{"actor_type"}),
		violations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "equitygate_actor_violations_total",
			Help: "Actor guard rejections by error code",
		}, []string{"code"}),
	}
}
