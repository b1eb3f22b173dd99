package schedule

import (
	"fmt"
	"time"

	"github.com/kerbrat/tripcast/core/timeline"
)

// Horizon start policies. Which one is canonical is an open product
// question, so the choice is configuration rather than a constant.
const (
	StartToday    = "today"
	StartTomorrow = "tomorrow"
)

// Config defines planning parameters loaded from configuration.
type Config struct {
	// HorizonDays is the length of the rolling scheduling window.
	HorizonDays int `json:"horizon_days"`
	// HorizonStart selects the first schedulable day: "today" or "tomorrow".
	HorizonStart string `json:"horizon_start"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.HorizonDays == 0 {
		c.HorizonDays = timeline.DefaultHorizonDays
	}
	if c.HorizonStart == "" {
		c.HorizonStart = StartToday
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.HorizonDays <= 0 {
		return fmt.Errorf("horizon_days must be positive")
	}
	if c.HorizonStart != StartToday && c.HorizonStart != StartTomorrow {
		return fmt.Errorf("unknown horizon_start %q", c.HorizonStart)
	}
	return nil
}

// StartDay returns the first schedulable UTC calendar day relative to now.
func (c Config) StartDay(now time.Time) time.Time {
	day := now.UTC().Truncate(24 * time.Hour)
	if c.HorizonStart == StartTomorrow {
		day = day.AddDate(0, 0, 1)
	}
	return day
}
