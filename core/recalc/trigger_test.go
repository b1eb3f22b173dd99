package recalc

import (
	"context"
	"testing"
	"time"

	"github.com/kerbrat/tripcast/core/events"
	"github.com/kerbrat/tripcast/core/model"
	"github.com/kerbrat/tripcast/infra/logger"
	"github.com/kerbrat/tripcast/infra/memstore"
)

var testNow = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestTrigger(t *testing.T, st *memstore.Store) *Trigger {
	t.Helper()
	tr, err := NewTrigger(st, st, time.Minute, logger.NopLogger{})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	tr.now = func() time.Time { return testNow }
	return tr
}

func order(vehicleID string) *model.PendingOrder {
	return &model.PendingOrder{
		ID:                 "o1",
		OrgID:              "org1",
		Priority:           model.PriorityNormal,
		Status:             model.OrderPending,
		SuggestedVehicleID: vehicleID,
		Items: []model.OrderItem{
			{ProductID: "p1", FixedQtyPerTrip: 5, TripsEstimate: 2},
		},
	}
}

func TestRelevant(t *testing.T) {
	base := order("v1")

	changed := func(mutate func(o *model.PendingOrder)) *model.PendingOrder {
		o := *base
		o.Items = append([]model.OrderItem(nil), base.Items...)
		mutate(&o)
		return &o
	}

	cases := []struct {
		name   string
		before *model.PendingOrder
		after  *model.PendingOrder
		want   bool
	}{
		{"creation", nil, base, true},
		{"deletion", base, nil, true},
		{"no change", base, changed(func(o *model.PendingOrder) {}), false},
		{"status change", base, changed(func(o *model.PendingOrder) { o.Status = model.OrderConfirmed }), true},
		{"priority change", base, changed(func(o *model.PendingOrder) { o.Priority = model.PriorityHigh }), true},
		{"vehicle change", base, changed(func(o *model.PendingOrder) { o.SuggestedVehicleID = "v2" }), true},
		{"trip list change", base, changed(func(o *model.PendingOrder) { o.TripIDs = []string{"t1"} }), true},
		{"item quantity change", base, changed(func(o *model.PendingOrder) { o.Items[0].TripsEstimate = 3 }), true},
		{"item added", base, changed(func(o *model.PendingOrder) {
			o.Items = append(o.Items, model.OrderItem{ProductID: "p2", FixedQtyPerTrip: 1, TripsEstimate: 1})
		}), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Relevant(tc.before, tc.after); got != tc.want {
				t.Fatalf("Relevant() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestOrderWrittenIrrelevantUpdateDropped(t *testing.T) {
	st := memstore.New()
	tr := newTestTrigger(t, st)

	before := order("v1")
	after := *before
	after.Items = append([]model.OrderItem(nil), before.Items...)
	if err := tr.OrderWritten(context.Background(), events.OrderEvent{OrgID: "org1", Before: before, After: &after}); err != nil {
		t.Fatalf("order written: %v", err)
	}
	if _, ok := st.Entry("org1", "v1"); ok {
		t.Fatal("irrelevant update must not enqueue")
	}
}

func TestOrderWrittenEnqueuesAffectedVehicles(t *testing.T) {
	st := memstore.New()
	st.PutTrip(model.Trip{ID: "t1", OrgID: "org1", VehicleID: "v3", OrderID: "o1", Date: "2025-03-02", Status: model.TripDispatched})
	st.PutTrip(model.Trip{ID: "t2", OrgID: "org1", VehicleID: "v4", OrderID: "o1", Date: "2025-03-03", Status: model.TripDraft})
	tr := newTestTrigger(t, st)

	before := order("v1")
	after := order("v2")
	if err := tr.OrderWritten(context.Background(), events.OrderEvent{OrgID: "org1", Before: before, After: after}); err != nil {
		t.Fatalf("order written: %v", err)
	}

	for _, id := range []string{"v1", "v2", "v3"} {
		e, ok := st.Entry("org1", id)
		if !ok {
			t.Fatalf("expected queue entry for %s", id)
		}
		if want := testNow.Add(time.Minute); !e.ScheduledAt.Equal(want) {
			t.Fatalf("vehicle %s scheduled at %v, want %v", id, e.ScheduledAt, want)
		}
	}
	// The draft trip's vehicle has no dispatched work for this order.
	if _, ok := st.Entry("org1", "v4"); ok {
		t.Fatal("draft trip vehicle must not enqueue")
	}
}

func TestEnqueueCoalescesAndMovesDeadline(t *testing.T) {
	st := memstore.New()
	tr := newTestTrigger(t, st)

	if err := tr.TripWritten(context.Background(), events.TripEvent{OrgID: "org1", Trip: model.Trip{ID: "t1", VehicleID: "v1", Status: model.TripScheduled}}); err != nil {
		t.Fatalf("trip written: %v", err)
	}
	first, _ := st.Entry("org1", "v1")

	tr.now = func() time.Time { return testNow.Add(30 * time.Second) }
	if err := tr.TripWritten(context.Background(), events.TripEvent{OrgID: "org1", Trip: model.Trip{ID: "t2", VehicleID: "v1", Status: model.TripScheduled}}); err != nil {
		t.Fatalf("trip written: %v", err)
	}

	second, ok := st.Entry("org1", "v1")
	if !ok {
		t.Fatal("expected queue entry")
	}
	if !second.EnqueuedAt.Equal(first.EnqueuedAt) {
		t.Fatalf("coalescing must keep the original enqueue time, got %v want %v", second.EnqueuedAt, first.EnqueuedAt)
	}
	if want := testNow.Add(30*time.Second + time.Minute); !second.ScheduledAt.Equal(want) {
		t.Fatalf("deadline must move forward, got %v want %v", second.ScheduledAt, want)
	}
}

func TestTripWrittenWithoutVehicleIsNoop(t *testing.T) {
	st := memstore.New()
	tr := newTestTrigger(t, st)
	if err := tr.TripWritten(context.Background(), events.TripEvent{OrgID: "org1", Trip: model.Trip{ID: "t1"}}); err != nil {
		t.Fatalf("trip written: %v", err)
	}
	orgs, _ := st.Orgs(context.Background())
	if len(orgs) != 0 {
		t.Fatalf("expected empty queue, got orgs %v", orgs)
	}
}
