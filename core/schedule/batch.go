package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/kerbrat/tripcast/core/logger"
	"github.com/kerbrat/tripcast/core/model"
	"github.com/kerbrat/tripcast/core/store"
	"github.com/kerbrat/tripcast/core/timeline"
)

// BatchCalculator evaluates every pending order of an organization against
// every active vehicle and persists the earliest-completing full fit as the
// order's estimated delivery schedule. Orders with no qualifying vehicle are
// left unchanged.
type BatchCalculator struct {
	vehicles  store.VehicleStore
	orders    store.OrderStore
	forecasts store.ForecastStore
	log       logger.Logger
	now       func() time.Time
}

// NewBatchCalculator creates a BatchCalculator.
func NewBatchCalculator(vehicles store.VehicleStore, orders store.OrderStore, forecasts store.ForecastStore, log logger.Logger) (*BatchCalculator, error) {
	if vehicles == nil || orders == nil || forecasts == nil || log == nil {
		return nil, fmt.Errorf("schedule: nil parameter provided to NewBatchCalculator")
	}
	return &BatchCalculator{vehicles: vehicles, orders: orders, forecasts: forecasts, log: log, now: time.Now}, nil
}

// orderFit is a qualifying vehicle for one order.
type orderFit struct {
	vehicle    model.Vehicle
	items      []model.EDDItem
	start      string
	completion string
}

// RecalculateOrg evaluates all pending orders of the organization. Per-order
// problems are logged, never escalated: the overall call succeeds as long as
// the order and vehicle listings do.
func (b *BatchCalculator) RecalculateOrg(ctx context.Context, orgID string) error {
	orders, err := b.orders.PendingByOrg(ctx, orgID)
	if err != nil {
		return fmt.Errorf("load pending orders for org %s: %w", orgID, err)
	}
	vehicles, err := b.vehicles.ActiveVehicles(ctx, orgID)
	if err != nil {
		return fmt.Errorf("load vehicles for org %s: %w", orgID, err)
	}
	if len(orders) == 0 || len(vehicles) == 0 {
		return nil
	}

	forecasts := make(map[string]model.Forecast, len(vehicles))
	for _, v := range vehicles {
		fc, err := b.forecasts.Forecast(ctx, orgID, v.ID)
		if err != nil {
			b.log.Debugf("no forecast for vehicle %s: %v", v.ID, err)
			continue
		}
		forecasts[v.ID] = fc
	}

	for _, o := range orders {
		best := b.bestFit(o, vehicles, forecasts)
		if best == nil {
			b.log.Infof("no vehicle fits all items of order %s", o.ID)
			continue
		}
		edd := model.EDD{
			CalculatedAt:            b.now().UTC(),
			VehicleID:               best.vehicle.ID,
			VehicleName:             best.vehicle.Name,
			EstimatedStartDate:      best.start,
			EstimatedCompletionDate: best.completion,
			Items:                   best.items,
		}
		if err := b.orders.SetEDD(ctx, orgID, o.ID, edd); err != nil {
			b.log.Errorf("persist schedule for order %s: %v", o.ID, err)
		}
	}
	return nil
}

// bestFit returns the qualifying vehicle with the earliest overall completion
// date, or nil when no vehicle can carry every item in full.
func (b *BatchCalculator) bestFit(o model.PendingOrder, vehicles []model.Vehicle, forecasts map[string]model.Forecast) *orderFit {
	var best *orderFit
	for _, v := range vehicles {
		fc, ok := forecasts[v.ID]
		if !ok {
			continue
		}
		fit := fitOrder(o, v, fc)
		if fit == nil {
			continue
		}
		if best == nil || fit.completion < best.completion {
			best = fit
		}
	}
	return best
}

// fitOrder tries to schedule all items of the order on one vehicle against a
// private copy of its forecast. Any item that cannot be placed in full
// disqualifies the vehicle.
func fitOrder(o model.PendingOrder, v model.Vehicle, fc model.Forecast) *orderFit {
	slots := timeline.Timeline(fc.CloneSlots())
	fit := &orderFit{vehicle: v}
	for i, it := range o.Items {
		cap := v.EffectiveCapacity(it.ProductID)
		if cap <= 0 || it.TripsEstimate <= 0 || it.FixedQtyPerTrip <= 0 {
			return nil
		}
		need := it.TripsEstimate
		if it.FixedQtyPerTrip > cap {
			// The planned per-trip load exceeds what the vehicle can carry
			// for this product: scale the trip count up proportionally.
			need = ceilDiv(it.TripsEstimate*it.FixedQtyPerTrip, cap)
		}
		dates, err := timeline.Allocate(slots, need, timeline.Options{BufferDays: o.Priority.BufferDays(), Strict: true})
		if err != nil {
			return nil
		}
		fit.items = append(fit.items, model.EDDItem{
			ItemIndex:     i,
			ProductID:     it.ProductID,
			TripsRequired: need,
			TripDates:     dates,
		})
		if first := dates[0]; fit.start == "" || first < fit.start {
			fit.start = first
		}
		if last := dates[len(dates)-1]; last > fit.completion {
			fit.completion = last
		}
	}
	if len(fit.items) == 0 {
		return nil
	}
	return fit
}
