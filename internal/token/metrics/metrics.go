package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the asset module.
type Metrics struct {
	TokensMinted      prometheus.Counter
	TokensTransferred *prometheus.CounterVec
}

// New creates a new Metrics instance with all asset module metrics registered.
func New() *Metrics {
	return &Metrics{
		TokensMinted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "museion_tokens_minted_total",
			Help: "Total number of tokens minted",
		}),
		TokensTransferred: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "museion_tokens_transferred_total",
			Help: "Total number of holder changes by kind (transfer or sale)",
		}, []string{"kind"}),
	}
}
