// Package events defines the order and trip write events emitted on the
// event bus.
//
// Available event types:
//   - OrderEvent: pending order created, updated or deleted
//   - TripEvent: trip created or updated
package events
