package model

// TripStatus is the lifecycle state of a trip.
type TripStatus string

const (
	TripDraft      TripStatus = "draft"
	TripScheduled  TripStatus = "scheduled"
	TripDispatched TripStatus = "dispatched"
	TripDelivered  TripStatus = "delivered"
	TripReturned   TripStatus = "returned"
	TripCancelled  TripStatus = "cancelled"
)

// Committed reports whether the trip consumes vehicle capacity. A committed
// trip is a "rock": it occupies exactly one slot on its date and cannot be
// rescheduled by the engine.
func (s TripStatus) Committed() bool {
	switch s {
	case TripScheduled, TripDispatched, TripDelivered, TripReturned:
		return true
	}
	return false
}

// Trip is a single vehicle journey on a fixed calendar date.
type Trip struct {
	ID        string     `json:"id"`
	OrgID     string     `json:"organization_id"`
	VehicleID string     `json:"vehicle_id"`
	OrderID   string     `json:"order_id,omitempty"`
	// Date is a YYYY-MM-DD UTC calendar day.
	Date   string     `json:"date"`
	Status TripStatus `json:"status"`
}
