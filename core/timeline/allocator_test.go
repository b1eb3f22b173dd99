package timeline

import (
	"errors"
	"testing"
	"time"

	"github.com/kerbrat/tripcast/core/model"
)

func flatTimeline(t *testing.T, capacity, days int) Timeline {
	t.Helper()
	v := model.Vehicle{ID: "v1", DefaultCapacity: capacity}
	return Build(v, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), days)
}

func TestAllocateConsecutiveWithoutBuffer(t *testing.T) {
	tl := flatTimeline(t, 5, 60)
	dates, err := Allocate(tl, 5, Options{BufferDays: 0})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(dates) != 5 {
		t.Fatalf("expected 5 dates got %d", len(dates))
	}
	for i, d := range dates {
		if d != day(i) {
			t.Fatalf("expected %s at index %d got %s", day(i), i, d)
		}
		if tl[d] != 4 {
			t.Fatalf("expected 4 remaining slots on %s got %d", d, tl[d])
		}
	}
}

func TestAllocateBufferDaySpacing(t *testing.T) {
	tl := flatTimeline(t, 5, 60)
	dates, err := Allocate(tl, 3, Options{BufferDays: 1})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	want := []string{day(0), day(2), day(4)}
	if len(dates) != 3 {
		t.Fatalf("expected 3 dates got %v", dates)
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Fatalf("expected %v got %v", want, dates)
		}
	}
}

func TestAllocateGapProperties(t *testing.T) {
	for _, buffer := range []int{0, 1} {
		tl := flatTimeline(t, 2, 60)
		dates, err := Allocate(tl, 10, Options{BufferDays: buffer})
		if err != nil {
			t.Fatalf("allocate: %v", err)
		}
		minGap := buffer + 1
		for i := 1; i < len(dates); i++ {
			if dates[i] < AddDays(dates[i-1], minGap) {
				t.Fatalf("buffer %d violated between %s and %s", buffer, dates[i-1], dates[i])
			}
			if dates[i] == dates[i-1] {
				t.Fatalf("duplicate date %s in one allocation", dates[i])
			}
		}
	}
}

func TestAllocateSkipsConsumedDates(t *testing.T) {
	tl := flatTimeline(t, 1, 10)
	tl[day(0)] = 0
	dates, err := Allocate(tl, 1, Options{})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(dates) != 1 || dates[0] != day(1) {
		t.Fatalf("expected allocation on %s got %v", day(1), dates)
	}
}

func TestAllocatePartialWhenNotStrict(t *testing.T) {
	tl := Timeline{day(0): 1, day(1): 1}
	dates, err := Allocate(tl, 5, Options{BufferDays: 0})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(dates) != 2 {
		t.Fatalf("expected partial result of 2 got %v", dates)
	}
}

func TestAllocateStrictRejectsShortFit(t *testing.T) {
	tl := Timeline{day(0): 1, day(1): 1}
	dates, err := Allocate(tl, 5, Options{BufferDays: 0, Strict: true})
	if !errors.Is(err, ErrInsufficientCapacity) {
		t.Fatalf("expected ErrInsufficientCapacity got %v", err)
	}
	if dates != nil {
		t.Fatalf("expected nil result got %v", dates)
	}
}

func TestAllocateRejectsNonPositiveTrips(t *testing.T) {
	tl := flatTimeline(t, 5, 10)
	if _, err := Allocate(tl, 0, Options{}); err == nil {
		t.Fatalf("expected error for zero trips")
	}
}
