package timeline

import (
	"sort"
	"time"

	"github.com/kerbrat/tripcast/core/model"
)

// DateFormat is the calendar-day format used throughout the engine. The
// fixed-width form makes lexicographic comparison equivalent to chronological
// order.
const DateFormat = "2006-01-02"

// DefaultHorizonDays is the rolling scheduling window.
const DefaultHorizonDays = 60

// fallbackCapacity applies when a vehicle has no configured capacity at all.
const fallbackCapacity = 5

// Timeline maps YYYY-MM-DD UTC dates to remaining trip slots.
type Timeline map[string]int

// FormatDate renders t as a YYYY-MM-DD UTC calendar day.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateFormat)
}

// AddDays shifts a YYYY-MM-DD date by n calendar days. Malformed input is
// returned unchanged so lexicographic comparisons against it stay inert.
func AddDays(date string, n int) string {
	t, err := time.ParseInLocation(DateFormat, date, time.UTC)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, n).Format(DateFormat)
}

// Build produces the remaining-capacity map for one vehicle over horizonDays
// consecutive UTC days starting at start. Per day the slot count is the
// weekly profile entry for that weekday if present, else the vehicle default,
// else a fixed fallback. Pure function, no side effects.
func Build(v model.Vehicle, start time.Time, horizonDays int) Timeline {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	day := start.UTC().Truncate(24 * time.Hour)
	tl := make(Timeline, horizonDays)
	for i := 0; i < horizonDays; i++ {
		slots := fallbackCapacity
		if v.DefaultCapacity > 0 {
			slots = v.DefaultCapacity
		}
		if wc, ok := v.WeeklyCapacity[day.Weekday()]; ok {
			slots = wc
		}
		tl[FormatDate(day)] = slots
		day = day.AddDate(0, 0, 1)
	}
	return tl
}

// SubtractRocks removes capacity consumed by already-committed trips. Each
// rock decrements its date by one slot, floored at zero. Trips outside the
// timeline window or in a non-committed status are ignored; processing order
// does not matter.
func (t Timeline) SubtractRocks(trips []model.Trip) {
	for _, trip := range trips {
		if !trip.Status.Committed() {
			continue
		}
		if slots, ok := t[trip.Date]; ok && slots > 0 {
			t[trip.Date] = slots - 1
		}
	}
}

// Clone returns an independent copy of the timeline.
func (t Timeline) Clone() Timeline {
	out := make(Timeline, len(t))
	for d, c := range t {
		out[d] = c
	}
	return out
}

// Dates returns the timeline's well-formed dates in ascending order.
func (t Timeline) Dates() []string {
	dates := make([]string, 0, len(t))
	for d := range t {
		if _, err := time.ParseInLocation(DateFormat, d, time.UTC); err != nil {
			continue
		}
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Prune returns a copy holding only the strictly positive entries, the shape
// persisted as a forecast document.
func (t Timeline) Prune() map[string]int {
	out := make(map[string]int, len(t))
	for d, c := range t {
		if c > 0 {
			out[d] = c
		}
	}
	return out
}
