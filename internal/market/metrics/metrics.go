package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the marketplace module.
type Metrics struct {
	ListingsCreated    prometheus.Counter
	AuctionsCreated    prometheus.Counter
	BidsPlaced         prometheus.Counter
	SalesSettled       *prometheus.CounterVec
	SaleVolume         prometheus.Counter
	SettlementDuration prometheus.Histogram
}

// New creates a new Metrics instance with all marketplace metrics registered.
func New() *Metrics {
	return &Metrics{
		ListingsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "museion_listings_created_total",
			Help: "Total number of listings created",
		}),
		AuctionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "museion_auctions_created_total",
			Help: "Total number of auctions created",
		}),
		BidsPlaced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "museion_bids_placed_total",
			Help: "Total number of accepted auction bids",
		}),
		SalesSettled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "museion_sales_settled_total",
			Help: "Total number of settled sales by channel (listing or auction)",
		}, []string{"channel"}),
		SaleVolume: promauto.NewCounter(prometheus.CounterOpts{
			Name: "museion_sale_volume_total",
			Help: "Cumulative settled sale value in the smallest currency unit",
		}),
		SettlementDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "museion_settlement_duration_seconds",
			Help:    "Duration of the atomic settlement transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveSettlement records one completed settlement.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveSettlement(channel string, price int64, start time.Time) {
	m.SalesSettled.WithLabelValues(channel).Inc()
	m.SaleVolume.Add(float64(price))
	m.SettlementDuration.Observe(time.Since(start).Seconds())
}
