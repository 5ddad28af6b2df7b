package slot

import (
	"sort"

	"github.com/tidewise/tidewise/internal/conditions"
)

// extremeWindow is how close (in hours) to a tide extreme a slot must be
// to report that extreme as its state.
const extremeWindow = 0.5

// InterpolateTide returns the tide state and water height at hour h of the
// reference day. Events may be given in any order. When no pair of events
// brackets h the height is 0 and the state RISING.
func InterpolateTide(events []conditions.TideEvent, h float64) (conditions.TideState, float64) {
	if len(events) < 2 {
		return conditions.TideStateRising, 0
	}

	sorted := make([]conditions.TideEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time < sorted[j].Time
	})

	for i := 0; i < len(sorted)-1; i++ {
		current, next := sorted[i], sorted[i+1]
		if current.Time > h || h >= next.Time {
			continue
		}

		ratio := (h - current.Time) / (next.Time - current.Time)
		height := current.Height + ratio*(next.Height-current.Height)

		return tideState(current, next, h), height
	}

	return conditions.TideStateRising, 0
}

func tideState(current, next conditions.TideEvent, h float64) conditions.TideState {
	switch {
	case h-current.Time <= extremeWindow:
		return conditions.TideState(current.Type)
	case next.Time-h <= extremeWindow:
		return conditions.TideState(next.Type)
	case current.Type == conditions.TideHigh:
		return conditions.TideStateFalling
	default:
		return conditions.TideStateRising
	}
}
