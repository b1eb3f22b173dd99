package recalc

import (
	"fmt"
	"time"
)

// Config defines the debounce and sweep cadence.
type Config struct {
	// DebounceSeconds is the delay between a relevant write and the earliest
	// recompute, coalescing bursts of writes into one run.
	DebounceSeconds int `json:"debounce_seconds"`
	// SweepIntervalSeconds is the period between queue sweeps.
	SweepIntervalSeconds int `json:"sweep_interval_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.DebounceSeconds == 0 {
		c.DebounceSeconds = 60
	}
	if c.SweepIntervalSeconds == 0 {
		c.SweepIntervalSeconds = 120
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.DebounceSeconds <= 0 {
		return fmt.Errorf("debounce_seconds must be positive")
	}
	if c.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("sweep_interval_seconds must be positive")
	}
	return nil
}

// Debounce returns the debounce delay as a duration.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.DebounceSeconds) * time.Second
}

// SweepInterval returns the sweep period as a duration.
func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}
