package scoring

import (
	"github.com/tidewise/tidewise/internal/activity"
	"github.com/tidewise/tidewise/internal/slot"
)

// BucketScorer coarsens another scorer into three levels: unmet (0),
// partially met (0.5) and fully met (1).
type BucketScorer struct {
	Base ConstraintScorer
}

// Score implements ConstraintScorer.
func (b BucketScorer) Score(c activity.Constraint, s slot.TimeSlot) float64 {
	switch v := b.Base.Score(c, s); {
	case v <= 0:
		return 0
	case v >= 1:
		return 1
	default:
		return 0.5
	}
}
