package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kerbrat/tripcast/core/logger"
	"github.com/kerbrat/tripcast/core/metrics"
	"github.com/kerbrat/tripcast/core/model"
	"github.com/kerbrat/tripcast/core/store"
	"github.com/kerbrat/tripcast/core/timeline"
)

// Scheduler performs the per-vehicle full recompute: it rebuilds the
// vehicle's capacity timeline, subtracts committed trips, allocates every
// pending order assigned to the vehicle and persists the resulting forecast
// cache and order schedules.
type Scheduler struct {
	cfg       Config
	vehicles  store.VehicleStore
	orders    store.OrderStore
	trips     store.TripStore
	forecasts store.ForecastStore
	sink      metrics.MetricsSink
	log       logger.Logger
	now       func() time.Time
}

// NewScheduler creates a Scheduler. sink may be nil to disable metrics.
func NewScheduler(cfg Config, vehicles store.VehicleStore, orders store.OrderStore, trips store.TripStore, forecasts store.ForecastStore, sink metrics.MetricsSink, log logger.Logger) (*Scheduler, error) {
	if vehicles == nil || orders == nil || trips == nil || forecasts == nil || log == nil {
		return nil, fmt.Errorf("schedule: nil parameter provided to NewScheduler")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Scheduler{
		cfg:       cfg,
		vehicles:  vehicles,
		orders:    orders,
		trips:     trips,
		forecasts: forecasts,
		sink:      sink,
		log:       log,
		now:       time.Now,
	}, nil
}

// Recompute rebuilds the schedule of one vehicle. A missing vehicle is a
// logged no-op so a stale queue entry never fails the sweep. Per-order
// allocation failures are logged and skipped; a single order's insufficient
// fit does not block the others.
func (s *Scheduler) Recompute(ctx context.Context, orgID, vehicleID string) error {
	started := s.now()

	v, err := s.vehicles.Vehicle(ctx, orgID, vehicleID)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warnf("vehicle %s not found in org %s, skipping recompute", vehicleID, orgID)
		return nil
	}
	if err != nil {
		recomputesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("load vehicle %s: %w", vehicleID, err)
	}

	startDay := s.cfg.StartDay(s.now())
	tl := timeline.Build(v, startDay, s.cfg.HorizonDays)
	from := timeline.FormatDate(startDay)
	to := timeline.FormatDate(startDay.AddDate(0, 0, s.cfg.HorizonDays-1))
	rocks, err := s.trips.CommittedByVehicle(ctx, orgID, vehicleID, from, to)
	if err != nil {
		recomputesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("load trips for vehicle %s: %w", vehicleID, err)
	}
	tl.SubtractRocks(rocks)

	orders, err := s.orders.PendingByVehicle(ctx, orgID, vehicleID)
	if err != nil {
		recomputesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("load pending orders for vehicle %s: %w", vehicleID, err)
	}
	sortOrders(orders)

	placed := 0
	for _, o := range orders {
		if s.scheduleOrder(ctx, v, o, tl) {
			placed++
		}
	}

	fc := model.Forecast{
		VehicleID:   v.ID,
		LastUpdated: s.now().UTC(),
		FreeSlots:   tl.Prune(),
	}
	if err := s.forecasts.PutForecast(ctx, orgID, fc); err != nil {
		recomputesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("persist forecast for vehicle %s: %w", vehicleID, err)
	}

	dur := s.now().Sub(started)
	recomputesTotal.WithLabelValues("ok").Inc()
	recomputeDuration.Observe(dur.Seconds())
	if err := s.sink.RecordRecompute([]metrics.RecomputeResult{{
		OrgID:         orgID,
		VehicleID:     vehicleID,
		PendingOrders: len(orders),
		OrdersPlaced:  placed,
		FreeSlotDays:  len(fc.FreeSlots),
		Duration:      dur,
		Timestamp:     started,
	}}); err != nil {
		s.log.Errorf("metrics error: %v", err)
	}
	s.log.Infof("recomputed vehicle %s: %d/%d orders placed, %d days with free slots", vehicleID, placed, len(orders), len(fc.FreeSlots))
	return nil
}

// scheduleOrder allocates one order against the shared timeline and persists
// its schedule. Partial fits are applied: the order keeps the dates it got
// and the consumed slots stay consumed for subsequent orders.
func (s *Scheduler) scheduleOrder(ctx context.Context, v model.Vehicle, o model.PendingOrder, tl timeline.Timeline) bool {
	perItem, total := tripsPerItem(v, o)
	if total <= 0 {
		s.log.Warnf("order %s is unschedulable on vehicle %s", o.ID, v.ID)
		ordersUnplaced.Inc()
		return false
	}

	dates, err := timeline.Allocate(tl, total, timeline.Options{BufferDays: o.Priority.BufferDays()})
	if err != nil {
		s.log.Warnf("allocate order %s: %v", o.ID, err)
		ordersUnplaced.Inc()
		return false
	}
	if len(dates) == 0 {
		s.log.Infof("no remaining capacity on vehicle %s for order %s", v.ID, o.ID)
		ordersUnplaced.Inc()
		return false
	}

	edd := buildEDD(v, o, perItem, dates, s.now().UTC())
	if err := s.orders.SetEDD(ctx, o.OrgID, o.ID, edd); err != nil {
		s.log.Errorf("persist schedule for order %s: %v", o.ID, err)
		return false
	}
	ordersPlaced.Inc()
	return true
}

// tripsPerItem computes how many trips each item needs on the vehicle,
// honoring per-product capacity overrides. Items whose product has no usable
// capacity contribute zero trips.
func tripsPerItem(v model.Vehicle, o model.PendingOrder) ([]int, int) {
	perItem := make([]int, len(o.Items))
	total := 0
	for i, it := range o.Items {
		cap := v.EffectiveCapacity(it.ProductID)
		if cap <= 0 || it.TotalQuantity <= 0 {
			continue
		}
		perItem[i] = ceilDiv(it.TotalQuantity, cap)
		total += perItem[i]
	}
	return perItem, total
}

// buildEDD distributes the assigned dates over the order items in sequence.
// A partial allocation leaves the tail items with fewer dates than requested.
func buildEDD(v model.Vehicle, o model.PendingOrder, perItem []int, dates []string, now time.Time) model.EDD {
	edd := model.EDD{
		CalculatedAt:            now,
		VehicleID:               v.ID,
		VehicleName:             v.Name,
		EstimatedStartDate:      dates[0],
		EstimatedCompletionDate: dates[len(dates)-1],
	}
	next := 0
	for i, need := range perItem {
		if need == 0 {
			continue
		}
		end := next + need
		if end > len(dates) {
			end = len(dates)
		}
		item := model.EDDItem{
			ItemIndex:     i,
			ProductID:     o.Items[i].ProductID,
			TripsRequired: need,
			TripDates:     append([]string(nil), dates[next:end]...),
		}
		edd.Items = append(edd.Items, item)
		next = end
		if next == len(dates) {
			break
		}
	}
	return edd
}

// sortOrders orders high priority first, FIFO by creation time within a tier.
func sortOrders(orders []model.PendingOrder) {
	sort.SliceStable(orders, func(i, j int) bool {
		hi := orders[i].Priority == model.PriorityHigh
		hj := orders[j].Priority == model.PriorityHigh
		if hi != hj {
			return hi
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
}

func ceilDiv(qty, capacity int) int {
	return (qty + capacity - 1) / capacity
}
