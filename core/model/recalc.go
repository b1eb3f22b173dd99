package model

import "time"

// RecalcEntry is a debounced request to recompute one vehicle's schedule.
// At most one live entry exists per (organization, vehicle): a newer relevant
// write overwrites ScheduledAt while keeping the original EnqueuedAt.
type RecalcEntry struct {
	VehicleID   string    `json:"vehicle_id"`
	OrgID       string    `json:"organization_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}
