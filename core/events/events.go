package events

import "github.com/kerbrat/tripcast/core/model"

// Event represents an arbitrary event passed on the bus.
type Event interface{}

// OrderEvent signals a created, updated or deleted pending order. Before is
// nil on creation, After is nil on deletion.
type OrderEvent struct {
	OrgID  string
	Before *model.PendingOrder
	After  *model.PendingOrder
}

// OrderID returns the order's ID regardless of the write kind.
func (e OrderEvent) OrderID() string {
	if e.After != nil {
		return e.After.ID
	}
	if e.Before != nil {
		return e.Before.ID
	}
	return ""
}

// TripEvent signals a created or updated trip.
type TripEvent struct {
	OrgID string
	Trip  model.Trip
}
