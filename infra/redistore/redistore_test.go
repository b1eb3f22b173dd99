package redistore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kerbrat/tripcast/core/model"
	"github.com/kerbrat/tripcast/core/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	srv := miniredis.RunT(t)
	st, err := New(Config{Enabled: true, Addr: srv.Addr()})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestNewFailsWithoutServer(t *testing.T) {
	if _, err := New(Config{Addr: "127.0.0.1:1"}); err == nil {
		t.Fatal("expected a connection error")
	}
}

func TestForecastRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if _, err := st.Forecast(ctx, "org1", "v1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	fc := model.Forecast{
		VehicleID:   "v1",
		LastUpdated: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		FreeSlots:   map[string]int{"2025-03-01": 4, "2025-03-02": 5},
	}
	if err := st.PutForecast(ctx, "org1", fc); err != nil {
		t.Fatalf("put forecast: %v", err)
	}
	got, err := st.Forecast(ctx, "org1", "v1")
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if got.FreeSlots["2025-03-01"] != 4 || got.FreeSlots["2025-03-02"] != 5 {
		t.Fatalf("round trip lost slots: %v", got.FreeSlots)
	}

	fc.FreeSlots = map[string]int{"2025-03-03": 1}
	if err := st.PutForecast(ctx, "org1", fc); err != nil {
		t.Fatalf("put forecast: %v", err)
	}
	got, _ = st.Forecast(ctx, "org1", "v1")
	if len(got.FreeSlots) != 1 || got.FreeSlots["2025-03-03"] != 1 {
		t.Fatalf("expected full replacement, got %v", got.FreeSlots)
	}
}

func TestQueueCoalesce(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	first := model.RecalcEntry{VehicleID: "v1", OrgID: "org1", ScheduledAt: now.Add(time.Minute), EnqueuedAt: now}
	if err := st.Upsert(ctx, first); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	later := first
	later.ScheduledAt = now.Add(2 * time.Minute)
	later.EnqueuedAt = now.Add(time.Minute)
	if err := st.Upsert(ctx, later); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	due, err := st.Due(ctx, "org1", now.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("unexpected due set %+v", due)
	}
	if !due[0].EnqueuedAt.Equal(now) {
		t.Fatalf("coalescing must keep the original enqueue time, got %v", due[0].EnqueuedAt)
	}
	if !due[0].ScheduledAt.Equal(now.Add(2 * time.Minute)) {
		t.Fatalf("coalescing must move the deadline, got %v", due[0].ScheduledAt)
	}
}

func TestDueFiltersByDeadline(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	entries := []model.RecalcEntry{
		{VehicleID: "early", OrgID: "org1", ScheduledAt: now.Add(-time.Minute), EnqueuedAt: now.Add(-2 * time.Minute)},
		{VehicleID: "late", OrgID: "org1", ScheduledAt: now.Add(time.Hour), EnqueuedAt: now},
	}
	for _, e := range entries {
		if err := st.Upsert(ctx, e); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	due, err := st.Due(ctx, "org1", now)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if len(due) != 1 || due[0].VehicleID != "early" {
		t.Fatalf("unexpected due set %+v", due)
	}
}

func TestDeleteDropsEmptyOrg(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	for _, e := range []model.RecalcEntry{
		{VehicleID: "v1", OrgID: "org1", ScheduledAt: now, EnqueuedAt: now},
		{VehicleID: "v2", OrgID: "org1", ScheduledAt: now, EnqueuedAt: now},
		{VehicleID: "v3", OrgID: "org2", ScheduledAt: now, EnqueuedAt: now},
	} {
		if err := st.Upsert(ctx, e); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	orgs, err := st.Orgs(ctx)
	if err != nil {
		t.Fatalf("orgs: %v", err)
	}
	if len(orgs) != 2 {
		t.Fatalf("unexpected orgs %v", orgs)
	}

	if err := st.Delete(ctx, "org1", "v1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	orgs, _ = st.Orgs(ctx)
	if len(orgs) != 2 {
		t.Fatalf("org with remaining entries must stay listed, got %v", orgs)
	}

	if err := st.Delete(ctx, "org1", "v2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	orgs, _ = st.Orgs(ctx)
	if len(orgs) != 1 || orgs[0] != "org2" {
		t.Fatalf("drained org must drop out of the set, got %v", orgs)
	}
}
