package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the event pipeline.
type Metrics struct {
	EventsAppended prometheus.Counter
	EventsRelayed  prometheus.Counter
	RelayFailures  prometheus.Counter
	RelayBacklog   prometheus.Gauge
}

// New creates a new Metrics instance with all event pipeline metrics registered.
func New() *Metrics {
	return &Metrics{
		EventsAppended: promauto.NewCounter(prometheus.CounterOpts{
			Name: "museion_events_appended_total",
			Help: "Total number of events appended to the outbox",
		}),
		EventsRelayed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "museion_events_relayed_total",
			Help: "Total number of events delivered to the broker",
		}),
		RelayFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "museion_relay_failures_total",
			Help: "Total number of failed relay produce attempts",
		}),
		RelayBacklog: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "museion_relay_backlog",
			Help: "Unpublished outbox rows observed on the last relay tick",
		}),
	}
}
