package metrics

import (
	"context"
	"net/http"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kerbrat/tripcast/core/metrics"
	"github.com/kerbrat/tripcast/infra/logger"
)

// InfluxSink writes scheduling analytics to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg coremetrics.Config) *InfluxSink {
	client := influxdb2.NewClientWithOptions(cfg.InfluxURL, cfg.InfluxToken,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRecompute writes recompute summaries as line protocol points.
func (s *InfluxSink) RecordRecompute(res []coremetrics.RecomputeResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(res))
	for _, r := range res {
		p := influxdb2.NewPoint("schedule_recompute",
			map[string]string{
				"organization": r.OrgID,
				"vehicle_id":   r.VehicleID,
			},
			map[string]any{
				"pending_orders": r.PendingOrders,
				"orders_placed":  r.OrdersPlaced,
				"free_slot_days": r.FreeSlotDays,
				"duration_ms":    r.Duration.Milliseconds(),
			},
			r.Timestamp)
		points = append(points, p)
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordQuote writes quote evaluations as line protocol points.
func (s *InfluxSink) RecordQuote(res []coremetrics.QuoteResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(res))
	for _, r := range res {
		p := influxdb2.NewPoint("delivery_quote",
			map[string]string{
				"organization": r.OrgID,
				"product_id":   r.ProductID,
			},
			map[string]any{
				"quantity":   r.Quantity,
				"candidates": r.Candidates,
			},
			r.Timestamp)
		points = append(points, p)
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
