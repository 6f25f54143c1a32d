package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the reward ledger.
type Metrics struct {
	PointsAwarded *prometheus.CounterVec
	BadgesAwarded *prometheus.CounterVec
}

// New creates a new Metrics instance with all reward ledger metrics registered.
func New() *Metrics {
	return &Metrics{
		PointsAwarded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "museion_reward_points_awarded_total",
			Help: "Total points awarded by triggering event type",
		}, []string{"event"}),
		BadgesAwarded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "museion_reward_badges_awarded_total",
			Help: "Total badges awarded by badge id",
		}, []string{"badge"}),
	}
}
