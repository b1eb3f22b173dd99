package timeline

import (
	"errors"
	"fmt"
)

// ErrInsufficientCapacity is returned by strict allocations that cannot place
// every requested trip within the horizon.
var ErrInsufficientCapacity = errors.New("timeline: insufficient capacity")

// Options parametrizes a slot allocation.
type Options struct {
	// BufferDays is the number of empty days enforced between two assigned
	// trips: 1 forces a full free day (normal priority), 0 only forbids
	// assigning the same date twice (high priority).
	BufferDays int
	// Strict rejects allocations that cannot place every trip. Non-strict
	// callers accept a short result as a partial booking.
	Strict bool
}

// Allocate greedily assigns tripsNeeded dates on the timeline, earliest
// first. Dates without remaining capacity are skipped; after an assignment
// the next candidate must be at least BufferDays+1 days later. Accepted dates
// are decremented in place, so callers projecting against a cache must pass a
// copy.
//
// The returned dates are in ascending order. Without Strict the result may be
// shorter than tripsNeeded; with Strict a short fit yields
// ErrInsufficientCapacity and the result is nil.
func Allocate(slots Timeline, tripsNeeded int, opts Options) ([]string, error) {
	if tripsNeeded <= 0 {
		return nil, fmt.Errorf("timeline: trips needed must be positive, got %d", tripsNeeded)
	}
	gap := 1
	if opts.BufferDays >= 1 {
		gap = 2
	}

	var assigned []string
	nextAllowed := ""
	for _, d := range slots.Dates() {
		if slots[d] < 1 {
			continue
		}
		if d < nextAllowed {
			continue
		}
		slots[d]--
		assigned = append(assigned, d)
		if len(assigned) == tripsNeeded {
			break
		}
		nextAllowed = AddDays(d, gap)
	}
	if opts.Strict && len(assigned) < tripsNeeded {
		return nil, ErrInsufficientCapacity
	}
	return assigned, nil
}
