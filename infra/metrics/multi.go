package metrics

import (
	"time"

	coremetrics "github.com/kerbrat/tripcast/core/metrics"
)

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRecompute forwards the records to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordRecompute(res []coremetrics.RecomputeResult) error {
	for _, s := range m.Sinks {
		if err := s.RecordRecompute(res); err != nil {
			return err
		}
	}
	return nil
}

// RecordQuote forwards quote records to sinks that support them.
func (m *MultiSink) RecordQuote(res []coremetrics.QuoteResult) error {
	for _, s := range m.Sinks {
		if qr, ok := s.(coremetrics.QuoteRecorder); ok {
			if err := qr.RecordQuote(res); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordSweep forwards sweep records to sinks that support them.
func (m *MultiSink) RecordSweep(entries int, d time.Duration) error {
	for _, s := range m.Sinks {
		if sr, ok := s.(coremetrics.SweepRecorder); ok {
			if err := sr.RecordSweep(entries, d); err != nil {
				return err
			}
		}
	}
	return nil
}
