package model

import "time"

// Priority classifies how aggressively an order may be packed onto the
// timeline. High-priority orders waive the buffer day between trips.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// BufferDays returns the minimum number of empty days enforced between two
// trips of the same allocation.
func (p Priority) BufferDays() int {
	if p == PriorityHigh {
		return 0
	}
	return 1
}

// OrderStatus is the lifecycle state of a pending order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderItem is one product line of a pending order.
type OrderItem struct {
	ProductID       string `json:"product_id"`
	FixedQtyPerTrip int    `json:"fixed_qty_per_trip"`
	TripsEstimate   int    `json:"trips_estimate"`
	TotalQuantity   int    `json:"total_quantity"`
}

// PendingOrder is a delivery order awaiting a committed schedule.
type PendingOrder struct {
	ID                 string      `json:"id"`
	OrgID              string      `json:"organization_id"`
	Priority           Priority    `json:"priority"`
	CreatedAt          time.Time   `json:"created_at"`
	Items              []OrderItem `json:"items"`
	SuggestedVehicleID string      `json:"suggested_vehicle_id,omitempty"`
	Status             OrderStatus `json:"status"`
	// TripIDs references trips already created for this order.
	TripIDs []string `json:"trip_ids,omitempty"`
	EDD     *EDD     `json:"edd,omitempty"`
}

// TotalQuantity sums the quantities of all items.
func (o PendingOrder) TotalQuantity() int {
	total := 0
	for _, it := range o.Items {
		total += it.TotalQuantity
	}
	return total
}

// EDD is the estimated delivery schedule attached to an order.
type EDD struct {
	CalculatedAt            time.Time `json:"calculated_at"`
	VehicleID               string    `json:"vehicle_id"`
	VehicleName             string    `json:"vehicle_name,omitempty"`
	EstimatedStartDate      string    `json:"estimated_start_date"`
	EstimatedCompletionDate string    `json:"estimated_completion_date"`
	Items                   []EDDItem `json:"items,omitempty"`
}

// EDDItem is the per-item breakdown of an estimated delivery schedule.
type EDDItem struct {
	ItemIndex     int      `json:"item_index"`
	ProductID     string   `json:"product_id"`
	TripsRequired int      `json:"trips_required"`
	TripDates     []string `json:"trip_dates"`
}
