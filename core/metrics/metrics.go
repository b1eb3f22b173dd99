package metrics

import "time"

// RecomputeResult summarizes one per-vehicle schedule recompute.
type RecomputeResult struct {
	OrgID         string
	VehicleID     string
	PendingOrders int
	OrdersPlaced  int
	FreeSlotDays  int
	Duration      time.Duration
	Timestamp     time.Time
	Err           string
}

// QuoteResult summarizes one ad-hoc delivery quote evaluation.
type QuoteResult struct {
	OrgID      string
	ProductID  string
	Quantity   int
	Candidates int
	Timestamp  time.Time
}

// MetricsSink records recompute outcomes for monitoring and analytics.
type MetricsSink interface {
	RecordRecompute(res []RecomputeResult) error
}

// QuoteRecorder is implemented by sinks that also track quote evaluations.
type QuoteRecorder interface {
	RecordQuote(res []QuoteResult) error
}

// SweepRecorder is implemented by sinks that track sweep cycles.
type SweepRecorder interface {
	RecordSweep(entries int, d time.Duration) error
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) RecordRecompute([]RecomputeResult) error { return nil }
func (NopSink) RecordQuote([]QuoteResult) error         { return nil }
func (NopSink) RecordSweep(int, time.Duration) error    { return nil }
