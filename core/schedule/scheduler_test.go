package schedule

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/kerbrat/tripcast/core/model"
	"github.com/kerbrat/tripcast/infra/logger"
	"github.com/kerbrat/tripcast/infra/memstore"
)

var testNow = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func day(i int) string {
	return testNow.Truncate(24 * time.Hour).AddDate(0, 0, i).Format("2006-01-02")
}

func newTestScheduler(t *testing.T, st *memstore.Store) *Scheduler {
	t.Helper()
	cfg := Config{}
	cfg.SetDefaults()
	s, err := NewScheduler(cfg, st, st, st, st, nil, logger.NopLogger{})
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	s.now = func() time.Time { return testNow }
	return s
}

func TestRecomputeMissingVehicleIsNoop(t *testing.T) {
	st := memstore.New()
	s := newTestScheduler(t, st)
	if err := s.Recompute(context.Background(), "org1", "ghost"); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestRecomputeSubtractsRocksBeforeAllocating(t *testing.T) {
	st := memstore.New()
	st.PutVehicle(model.Vehicle{ID: "v1", OrgID: "org1", DefaultCapacity: 5, Active: true})
	st.PutTrip(model.Trip{OrgID: "org1", VehicleID: "v1", Date: day(0), Status: model.TripDispatched})
	s := newTestScheduler(t, st)

	if err := s.Recompute(context.Background(), "org1", "v1"); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	fc, err := st.Forecast(context.Background(), "org1", "v1")
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if fc.FreeSlots[day(0)] != 4 {
		t.Fatalf("expected 4 free slots on %s got %d", day(0), fc.FreeSlots[day(0)])
	}
	for d, c := range fc.FreeSlots {
		if c <= 0 {
			t.Fatalf("forecast kept non-positive entry %s=%d", d, c)
		}
	}
}

func TestRecomputeHighPriorityFirst(t *testing.T) {
	st := memstore.New()
	st.PutVehicle(model.Vehicle{ID: "v1", OrgID: "org1", DefaultCapacity: 10, WeeklyCapacity: weekly(1), Active: true})
	normal := st.PutOrder(model.PendingOrder{
		OrgID: "org1", Priority: model.PriorityNormal, Status: model.OrderPending,
		SuggestedVehicleID: "v1", CreatedAt: testNow.Add(-2 * time.Hour),
		Items: []model.OrderItem{{ProductID: "p1", TotalQuantity: 10}},
	})
	high := st.PutOrder(model.PendingOrder{
		OrgID: "org1", Priority: model.PriorityHigh, Status: model.OrderPending,
		SuggestedVehicleID: "v1", CreatedAt: testNow.Add(-time.Hour),
		Items: []model.OrderItem{{ProductID: "p1", TotalQuantity: 10}},
	})
	s := newTestScheduler(t, st)

	if err := s.Recompute(context.Background(), "org1", "v1"); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	ho, _ := st.Order("org1", high.ID)
	no, _ := st.Order("org1", normal.ID)
	if ho.EDD == nil || no.EDD == nil {
		t.Fatalf("expected both orders scheduled")
	}
	// The later-created high-priority order wins the first slot.
	if ho.EDD.EstimatedStartDate != day(0) {
		t.Fatalf("expected high priority to start %s got %s", day(0), ho.EDD.EstimatedStartDate)
	}
	if no.EDD.EstimatedStartDate <= ho.EDD.EstimatedStartDate {
		t.Fatalf("normal order must start after high priority: %s vs %s",
			no.EDD.EstimatedStartDate, ho.EDD.EstimatedStartDate)
	}
}

func TestRecomputeIdempotent(t *testing.T) {
	st := memstore.New()
	st.PutVehicle(model.Vehicle{ID: "v1", OrgID: "org1", DefaultCapacity: 3, Active: true})
	o := st.PutOrder(model.PendingOrder{
		OrgID: "org1", Priority: model.PriorityNormal, Status: model.OrderPending,
		SuggestedVehicleID: "v1", CreatedAt: testNow,
		Items: []model.OrderItem{{ProductID: "p1", TotalQuantity: 7}},
	})
	s := newTestScheduler(t, st)

	if err := s.Recompute(context.Background(), "org1", "v1"); err != nil {
		t.Fatalf("first recompute: %v", err)
	}
	fc1, _ := st.Forecast(context.Background(), "org1", "v1")
	o1, _ := st.Order("org1", o.ID)

	if err := s.Recompute(context.Background(), "org1", "v1"); err != nil {
		t.Fatalf("second recompute: %v", err)
	}
	fc2, _ := st.Forecast(context.Background(), "org1", "v1")
	o2, _ := st.Order("org1", o.ID)

	if !reflect.DeepEqual(fc1.FreeSlots, fc2.FreeSlots) {
		t.Fatalf("forecast changed between identical runs:\n%v\n%v", fc1.FreeSlots, fc2.FreeSlots)
	}
	if !reflect.DeepEqual(o1.EDD.Items, o2.EDD.Items) || o1.EDD.EstimatedCompletionDate != o2.EDD.EstimatedCompletionDate {
		t.Fatalf("order schedule changed between identical runs")
	}
}

func TestRecomputePartialFitStillApplied(t *testing.T) {
	st := memstore.New()
	// One slot per day over a short horizon: the order cannot fully fit.
	st.PutVehicle(model.Vehicle{ID: "v1", OrgID: "org1", DefaultCapacity: 1, WeeklyCapacity: weekly(1), Active: true})
	big := st.PutOrder(model.PendingOrder{
		OrgID: "org1", Priority: model.PriorityHigh, Status: model.OrderPending,
		SuggestedVehicleID: "v1", CreatedAt: testNow,
		Items: []model.OrderItem{{ProductID: "p1", TotalQuantity: 100}},
	})
	s := newTestScheduler(t, st)
	s.cfg.HorizonDays = 10

	if err := s.Recompute(context.Background(), "org1", "v1"); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	o, _ := st.Order("org1", big.ID)
	if o.EDD == nil {
		t.Fatalf("partial fit must still produce a schedule")
	}
	if len(o.EDD.Items[0].TripDates) != 10 {
		t.Fatalf("expected 10 partial trip dates got %d", len(o.EDD.Items[0].TripDates))
	}
	fc, _ := st.Forecast(context.Background(), "org1", "v1")
	if len(fc.FreeSlots) != 0 {
		t.Fatalf("expected exhausted forecast, got %v", fc.FreeSlots)
	}
}

func TestRecomputeSkipsUnschedulableOrder(t *testing.T) {
	st := memstore.New()
	st.PutVehicle(model.Vehicle{ID: "v1", OrgID: "org1", DefaultCapacity: 5, Active: true,
		ProductCapacity: map[string]int{"p0": 0}})
	bad := st.PutOrder(model.PendingOrder{
		OrgID: "org1", Priority: model.PriorityNormal, Status: model.OrderPending,
		SuggestedVehicleID: "v1", CreatedAt: testNow,
		Items: []model.OrderItem{{ProductID: "p0", TotalQuantity: 10}},
	})
	good := st.PutOrder(model.PendingOrder{
		OrgID: "org1", Priority: model.PriorityNormal, Status: model.OrderPending,
		SuggestedVehicleID: "v1", CreatedAt: testNow,
		Items: []model.OrderItem{{ProductID: "p1", TotalQuantity: 5}},
	})
	s := newTestScheduler(t, st)

	if err := s.Recompute(context.Background(), "org1", "v1"); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	bo, _ := st.Order("org1", bad.ID)
	if bo.EDD != nil {
		t.Fatalf("unschedulable order must not receive a schedule")
	}
	okOrder, _ := st.Order("org1", good.ID)
	if okOrder.EDD == nil {
		t.Fatalf("one bad order must not block the others")
	}
}

func TestTripsPerItemUsesProductOverride(t *testing.T) {
	v := model.Vehicle{ID: "v1", DefaultCapacity: 10, ProductCapacity: map[string]int{"p2": 3}}
	o := model.PendingOrder{Items: []model.OrderItem{
		{ProductID: "p1", TotalQuantity: 25},
		{ProductID: "p2", TotalQuantity: 7},
	}}
	perItem, total := tripsPerItem(v, o)
	if perItem[0] != 3 || perItem[1] != 3 || total != 6 {
		t.Fatalf("unexpected trips %v total %d", perItem, total)
	}
}

// weekly builds a flat seven-day capacity profile.
func weekly(c int) map[time.Weekday]int {
	m := make(map[time.Weekday]int, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		m[d] = c
	}
	return m
}
