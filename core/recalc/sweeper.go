package recalc

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kerbrat/tripcast/core/logger"
	"github.com/kerbrat/tripcast/core/metrics"
	"github.com/kerbrat/tripcast/core/store"
)

var (
	sweepEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recalc_sweep_entries_total",
		Help: "Number of queue entries drained by the sweep",
	}, []string{"result"})
	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recalc_sweep_duration_seconds",
		Help:    "Duration of one full sweep cycle",
		Buckets: prometheus.DefBuckets,
	})
)

// Recomputer runs a per-vehicle schedule recompute. Implemented by
// schedule.Scheduler.
type Recomputer interface {
	Recompute(ctx context.Context, orgID, vehicleID string) error
}

// Sweeper periodically drains due queue entries into the scheduler.
// Organizations, and vehicles within an organization, are processed
// sequentially. An entry is deleted after the recompute attempt regardless of
// outcome: a failed run is only retried if a later relevant write re-enqueues
// the vehicle.
type Sweeper struct {
	queue     store.RecalcQueue
	scheduler Recomputer
	interval  time.Duration
	sink      metrics.MetricsSink
	log       logger.Logger
	now       func() time.Time
}

// NewSweeper creates a Sweeper. sink may be nil.
func NewSweeper(queue store.RecalcQueue, scheduler Recomputer, interval time.Duration, sink metrics.MetricsSink, log logger.Logger) (*Sweeper, error) {
	if queue == nil || scheduler == nil || log == nil {
		return nil, fmt.Errorf("recalc: nil parameter provided to NewSweeper")
	}
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Sweeper{queue: queue, scheduler: scheduler, interval: interval, sink: sink, log: log, now: time.Now}, nil
}

// Run sweeps the queue until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep drains every due entry once. Failures are confined to their unit of
// work: a broken organization or entry never aborts the rest of the sweep.
func (s *Sweeper) Sweep(ctx context.Context) {
	started := s.now()
	drained := 0

	orgs, err := s.queue.Orgs(ctx)
	if err != nil {
		s.log.Errorf("list queued organizations: %v", err)
		return
	}
	for _, orgID := range orgs {
		entries, err := s.queue.Due(ctx, orgID, s.now().UTC())
		if err != nil {
			s.log.Errorf("list due entries for org %s: %v", orgID, err)
			continue
		}
		for _, e := range entries {
			result := "ok"
			if err := s.scheduler.Recompute(ctx, e.OrgID, e.VehicleID); err != nil {
				result = "error"
				s.log.Errorf("recompute vehicle %s: %v", e.VehicleID, err)
			}
			if err := s.queue.Delete(ctx, e.OrgID, e.VehicleID); err != nil {
				s.log.Errorf("delete queue entry for vehicle %s: %v", e.VehicleID, err)
			}
			sweepEntries.WithLabelValues(result).Inc()
			drained++
		}
	}

	dur := s.now().Sub(started)
	sweepDuration.Observe(dur.Seconds())
	if sr, ok := s.sink.(metrics.SweepRecorder); ok {
		if err := sr.RecordSweep(drained, dur); err != nil {
			s.log.Errorf("metrics error: %v", err)
		}
	}
	if drained > 0 {
		s.log.Infof("sweep drained %d entries in %s", drained, dur)
	}
}
