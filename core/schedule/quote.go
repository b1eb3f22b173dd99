package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kerbrat/tripcast/core/logger"
	"github.com/kerbrat/tripcast/core/metrics"
	"github.com/kerbrat/tripcast/core/store"
	"github.com/kerbrat/tripcast/core/timeline"
)

// ErrInvalidRequest flags caller-facing validation failures.
var ErrInvalidRequest = errors.New("schedule: invalid request")

// QuoteRequest describes a prospective order to price against the fleet.
type QuoteRequest struct {
	OrgID         string `json:"organization_id"`
	ProductID     string `json:"product_id"`
	TotalQuantity int    `json:"total_quantity"`
}

// Validate rejects malformed requests at the boundary.
func (r QuoteRequest) Validate() error {
	if r.OrgID == "" {
		return fmt.Errorf("%w: organization is required", ErrInvalidRequest)
	}
	if r.ProductID == "" {
		return fmt.Errorf("%w: product is required", ErrInvalidRequest)
	}
	if r.TotalQuantity <= 0 {
		return fmt.Errorf("%w: total quantity must be positive", ErrInvalidRequest)
	}
	return nil
}

// QuoteOption is one vehicle able to carry the full prospective order.
type QuoteOption struct {
	VehicleID      string   `json:"vehicle_id"`
	VehicleName    string   `json:"vehicle_name,omitempty"`
	TripsRequired  int      `json:"trips_required"`
	StartDate      string   `json:"start_date"`
	CompletionDate string   `json:"completion_date"`
	TripDates      []string `json:"trip_dates"`
}

// QuoteCalculator projects ad-hoc delivery quotes against the cached
// forecasts. It is read-only: every evaluation allocates against a private
// copy of the cache, so calls are safe under arbitrary concurrency.
type QuoteCalculator struct {
	vehicles  store.VehicleStore
	forecasts store.ForecastStore
	sink      metrics.MetricsSink
	log       logger.Logger
	now       func() time.Time
}

// NewQuoteCalculator creates a QuoteCalculator. sink may be nil.
func NewQuoteCalculator(vehicles store.VehicleStore, forecasts store.ForecastStore, sink metrics.MetricsSink, log logger.Logger) (*QuoteCalculator, error) {
	if vehicles == nil || forecasts == nil || log == nil {
		return nil, fmt.Errorf("schedule: nil parameter provided to NewQuoteCalculator")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &QuoteCalculator{vehicles: vehicles, forecasts: forecasts, sink: sink, log: log, now: time.Now}, nil
}

// Quote evaluates every active vehicle of the organization and returns the
// ones able to carry the full quantity, earliest completion first. Quoting
// always assumes normal-priority spacing, and fits are all-or-nothing:
// vehicles that cannot place every trip are discarded.
func (q *QuoteCalculator) Quote(ctx context.Context, req QuoteRequest) ([]QuoteOption, error) {
	if err := req.Validate(); err != nil {
		quotesTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	vehicles, err := q.vehicles.ActiveVehicles(ctx, req.OrgID)
	if err != nil {
		quotesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load vehicles: %w", err)
	}

	var options []QuoteOption
	for _, v := range vehicles {
		cap := v.EffectiveCapacity(req.ProductID)
		if cap <= 0 {
			continue
		}
		need := ceilDiv(req.TotalQuantity, cap)

		fc, err := q.forecasts.Forecast(ctx, req.OrgID, v.ID)
		if errors.Is(err, store.ErrNotFound) {
			q.log.Debugf("no forecast cached for vehicle %s", v.ID)
			continue
		}
		if err != nil {
			q.log.Errorf("load forecast for vehicle %s: %v", v.ID, err)
			continue
		}

		slots := timeline.Timeline(fc.CloneSlots())
		dates, err := timeline.Allocate(slots, need, timeline.Options{BufferDays: 1, Strict: true})
		if err != nil {
			q.log.Debugf("vehicle %s cannot fit %d trips: %v", v.ID, need, err)
			continue
		}
		options = append(options, QuoteOption{
			VehicleID:      v.ID,
			VehicleName:    v.Name,
			TripsRequired:  need,
			StartDate:      dates[0],
			CompletionDate: dates[len(dates)-1],
			TripDates:      dates,
		})
	}

	sort.Slice(options, func(i, j int) bool {
		if options[i].CompletionDate != options[j].CompletionDate {
			return options[i].CompletionDate < options[j].CompletionDate
		}
		return options[i].VehicleID < options[j].VehicleID
	})

	quotesTotal.WithLabelValues("ok").Inc()
	if qr, ok := q.sink.(metrics.QuoteRecorder); ok {
		if err := qr.RecordQuote([]metrics.QuoteResult{{
			OrgID:      req.OrgID,
			ProductID:  req.ProductID,
			Quantity:   req.TotalQuantity,
			Candidates: len(options),
			Timestamp:  q.now(),
		}}); err != nil {
			q.log.Errorf("metrics error: %v", err)
		}
	}
	return options, nil
}
