package schedule

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	recomputesTotal   *prometheus.CounterVec
	recomputeDuration prometheus.Histogram
	ordersPlaced      prometheus.Counter
	ordersUnplaced    prometheus.Counter
	quotesTotal       *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Histogram, prometheus.Counter, prometheus.Counter, *prometheus.CounterVec) {
	rec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_recomputes_total",
			Help: "Number of per-vehicle schedule recomputes",
		},
		[]string{"result"},
	)
	dur := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "schedule_recompute_duration_seconds",
			Help:    "Duration of per-vehicle schedule recomputes",
			Buckets: prometheus.DefBuckets,
		},
	)
	placed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schedule_orders_placed_total",
			Help: "Number of orders that received at least one trip date",
		},
	)
	unplaced := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schedule_orders_unplaced_total",
			Help: "Number of orders skipped for lack of capacity or invalid input",
		},
	)
	quotes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_quotes_total",
			Help: "Number of delivery quote evaluations",
		},
		[]string{"result"},
	)
	return rec, dur, placed, unplaced, quotes
}

func init() {
	recomputesTotal, recomputeDuration, ordersPlaced, ordersUnplaced, quotesTotal = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers scheduling metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(recomputesTotal, recomputeDuration, ordersPlaced, ordersUnplaced, quotesTotal)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	recomputesTotal, recomputeDuration, ordersPlaced, ordersUnplaced, quotesTotal = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
