package recalc

import (
	"context"
	"fmt"
	"time"

	"github.com/kerbrat/tripcast/core/events"
	"github.com/kerbrat/tripcast/core/logger"
	"github.com/kerbrat/tripcast/core/model"
	"github.com/kerbrat/tripcast/core/store"
)

// Trigger classifies order and trip writes and enqueues debounced per-vehicle
// recompute requests. A burst of relevant writes for the same vehicle
// coalesces into a single queue entry whose ScheduledAt keeps moving forward.
type Trigger struct {
	queue    store.RecalcQueue
	trips    store.TripStore
	debounce time.Duration
	log      logger.Logger
	now      func() time.Time
}

// NewTrigger creates a Trigger.
func NewTrigger(queue store.RecalcQueue, trips store.TripStore, debounce time.Duration, log logger.Logger) (*Trigger, error) {
	if queue == nil || trips == nil || log == nil {
		return nil, fmt.Errorf("recalc: nil parameter provided to NewTrigger")
	}
	if debounce <= 0 {
		debounce = 60 * time.Second
	}
	return &Trigger{queue: queue, trips: trips, debounce: debounce, log: log, now: time.Now}, nil
}

// OrderWritten handles one order write. Irrelevant updates are dropped;
// relevant ones enqueue every affected vehicle: the order's current and
// previous suggested vehicle plus the vehicles of its dispatched trips.
func (t *Trigger) OrderWritten(ctx context.Context, ev events.OrderEvent) error {
	if !Relevant(ev.Before, ev.After) {
		return nil
	}

	affected := map[string]struct{}{}
	if ev.After != nil && ev.After.SuggestedVehicleID != "" {
		affected[ev.After.SuggestedVehicleID] = struct{}{}
	}
	if ev.Before != nil && ev.Before.SuggestedVehicleID != "" {
		affected[ev.Before.SuggestedVehicleID] = struct{}{}
	}
	if orderID := ev.OrderID(); orderID != "" {
		trips, err := t.trips.DispatchedByOrder(ctx, ev.OrgID, orderID)
		if err != nil {
			t.log.Warnf("load dispatched trips for order %s: %v", orderID, err)
		}
		for _, trip := range trips {
			if trip.VehicleID != "" {
				affected[trip.VehicleID] = struct{}{}
			}
		}
	}

	for vehicleID := range affected {
		if err := t.enqueue(ctx, ev.OrgID, vehicleID); err != nil {
			return err
		}
	}
	return nil
}

// TripWritten enqueues the trip's vehicle directly.
func (t *Trigger) TripWritten(ctx context.Context, ev events.TripEvent) error {
	if ev.Trip.VehicleID == "" {
		return nil
	}
	return t.enqueue(ctx, ev.OrgID, ev.Trip.VehicleID)
}

func (t *Trigger) enqueue(ctx context.Context, orgID, vehicleID string) error {
	now := t.now().UTC()
	entry := model.RecalcEntry{
		VehicleID:   vehicleID,
		OrgID:       orgID,
		ScheduledAt: now.Add(t.debounce),
		EnqueuedAt:  now,
	}
	if err := t.queue.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("enqueue recompute for vehicle %s: %w", vehicleID, err)
	}
	t.log.Debugw("recompute queued", map[string]any{
		"vehicle_id":   vehicleID,
		"organization": orgID,
		"scheduled_at": entry.ScheduledAt,
	})
	return nil
}

// Relevant reports whether an order write should invalidate schedules.
// Creations and deletions always do; updates only when a scheduling input
// changed.
func Relevant(before, after *model.PendingOrder) bool {
	if before == nil || after == nil {
		return true
	}
	if before.Status != after.Status ||
		before.Priority != after.Priority ||
		before.SuggestedVehicleID != after.SuggestedVehicleID {
		return true
	}
	if !stringsEqual(before.TripIDs, after.TripIDs) {
		return true
	}
	return !itemsEqual(before.Items, after.Items)
}

func itemsEqual(a, b []model.OrderItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
