package model

import (
	"fmt"
	"time"
)

// Vehicle represents a delivery vehicle with its daily trip capacity profile.
type Vehicle struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	OrgID string `json:"organization_id"`

	// DefaultCapacity is the quantity the vehicle can carry per trip when no
	// per-product override applies.
	DefaultCapacity int `json:"default_capacity"`

	// WeeklyCapacity optionally overrides the number of trip slots per
	// day of week. An explicit zero entry marks a non-working day.
	WeeklyCapacity map[time.Weekday]int `json:"weekly_capacity,omitempty"`

	// ProductCapacity maps product IDs to a per-trip quantity override.
	ProductCapacity map[string]int `json:"product_capacity,omitempty"`

	Active bool `json:"active"`
}

// Validate checks that the vehicle configuration is sound.
func (v Vehicle) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("vehicle id is required")
	}
	if v.DefaultCapacity < 0 {
		return fmt.Errorf("default capacity must not be negative")
	}
	return nil
}

// EffectiveCapacity returns the per-trip quantity the vehicle can carry for
// the given product, honoring per-product overrides.
func (v Vehicle) EffectiveCapacity(productID string) int {
	if c, ok := v.ProductCapacity[productID]; ok {
		return c
	}
	return v.DefaultCapacity
}
