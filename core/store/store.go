package store

import (
	"context"
	"errors"
	"time"

	"github.com/kerbrat/tripcast/core/model"
)

// ErrNotFound is returned when a referenced document does not exist.
var ErrNotFound = errors.New("store: not found")

// VehicleStore exposes the vehicle directory owned by the fleet subsystem.
type VehicleStore interface {
	Vehicle(ctx context.Context, orgID, vehicleID string) (model.Vehicle, error)
	ActiveVehicles(ctx context.Context, orgID string) ([]model.Vehicle, error)
}

// OrderStore exposes pending orders. The engine reads them and writes back
// estimated delivery schedules.
type OrderStore interface {
	PendingByVehicle(ctx context.Context, orgID, vehicleID string) ([]model.PendingOrder, error)
	PendingByOrg(ctx context.Context, orgID string) ([]model.PendingOrder, error)
	SetEDD(ctx context.Context, orgID, orderID string, edd model.EDD) error
}

// TripStore exposes trip records supplying rocks.
type TripStore interface {
	// CommittedByVehicle returns the vehicle's trips in committed statuses
	// whose date falls in [from, to], both YYYY-MM-DD inclusive.
	CommittedByVehicle(ctx context.Context, orgID, vehicleID, from, to string) ([]model.Trip, error)
	// DispatchedByOrder returns the order's trips in dispatched status.
	DispatchedByOrder(ctx context.Context, orgID, orderID string) ([]model.Trip, error)
}

// ForecastStore holds the per-vehicle free-slot cache. Writes always replace
// the whole document.
type ForecastStore interface {
	Forecast(ctx context.Context, orgID, vehicleID string) (model.Forecast, error)
	PutForecast(ctx context.Context, orgID string, f model.Forecast) error
}

// RecalcQueue is the debounce queue of per-vehicle recompute requests.
type RecalcQueue interface {
	// Upsert inserts the entry or, if one exists for the same (org, vehicle),
	// overwrites its ScheduledAt while keeping the original EnqueuedAt.
	Upsert(ctx context.Context, e model.RecalcEntry) error
	// Due returns the organization's entries with ScheduledAt <= now,
	// earliest first.
	Due(ctx context.Context, orgID string, now time.Time) ([]model.RecalcEntry, error)
	Delete(ctx context.Context, orgID, vehicleID string) error
	// Orgs lists organizations with at least one queued entry.
	Orgs(ctx context.Context) ([]string, error)
}
