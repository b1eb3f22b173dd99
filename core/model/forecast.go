package model

import "time"

// Forecast is the cached projection of remaining per-day capacity for one
// vehicle. FreeSlots maps YYYY-MM-DD UTC dates to remaining trip slots; only
// strictly positive entries are retained.
type Forecast struct {
	VehicleID   string         `json:"vehicle_id"`
	LastUpdated time.Time      `json:"last_updated"`
	FreeSlots   map[string]int `json:"free_slots"`
}

// CloneSlots returns an independent copy of the free-slot map so callers can
// project allocations without mutating the cached document.
func (f Forecast) CloneSlots() map[string]int {
	slots := make(map[string]int, len(f.FreeSlots))
	for d, c := range f.FreeSlots {
		slots[d] = c
	}
	return slots
}
