package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry module.
type Metrics struct {
	InstitutionsRegistered prometheus.Counter
	InstitutionsVerified   prometheus.Counter
	CollectionsAdded       prometheus.Counter
}

// New creates a new Metrics instance with all registry module metrics registered.
func New() *Metrics {
	return &Metrics{
		InstitutionsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "museion_institutions_registered_total",
			Help: "Total number of institutions registered",
		}),
		InstitutionsVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "museion_institutions_verified_total",
			Help: "Total number of institution verifications (transitions only)",
		}),
		CollectionsAdded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "museion_collections_added_total",
			Help: "Total number of collection count increments from the mint path",
		}),
	}
}
