package metrics

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coremetrics "github.com/kerbrat/tripcast/core/metrics"
)

// PromSink records scheduling events in Prometheus metrics.
type PromSink struct {
	recomputes *prometheus.CounterVec
	placed     *prometheus.CounterVec
	freeDays   *prometheus.GaugeVec
	quotes     *prometheus.CounterVec
}

// NewPromSink registers scheduling metrics on the default Prometheus
// registerer. The Prometheus server should be started separately using
// cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	recomputes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vehicle_recomputes_total",
		Help: "Total number of per-vehicle schedule recomputes",
	}, []string{"organization", "vehicle_id"})
	placed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vehicle_orders_placed_total",
		Help: "Orders that received trip dates per recompute",
	}, []string{"organization", "vehicle_id"})
	freeDays := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vehicle_forecast_free_days",
		Help: "Number of days with remaining capacity in the vehicle forecast",
	}, []string{"organization", "vehicle_id"})
	quotes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_evaluations_total",
		Help: "Total number of delivery quote evaluations",
	}, []string{"organization"})

	for _, c := range []prometheus.Collector{recomputes, placed, freeDays, quotes} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return &PromSink{recomputes: recomputes, placed: placed, freeDays: freeDays, quotes: quotes}, nil
}

// RecordRecompute increments the counters for each recompute result.
func (s *PromSink) RecordRecompute(res []coremetrics.RecomputeResult) error {
	for _, r := range res {
		s.recomputes.WithLabelValues(r.OrgID, r.VehicleID).Inc()
		s.placed.WithLabelValues(r.OrgID, r.VehicleID).Add(float64(r.OrdersPlaced))
		s.freeDays.WithLabelValues(r.OrgID, r.VehicleID).Set(float64(r.FreeSlotDays))
	}
	return nil
}

// RecordQuote increments the quote counter.
func (s *PromSink) RecordQuote(res []coremetrics.QuoteResult) error {
	for _, r := range res {
		s.quotes.WithLabelValues(r.OrgID).Inc()
	}
	return nil
}

// StartPromServer starts an HTTP server exposing Prometheus metrics on the
// given address. The server runs until the provided context is canceled.
// A dedicated ServeMux is used to avoid interfering with other handlers.
func StartPromServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("prom server shutdown: %v", err)
		}
		cancel()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
