// Package scoring turns activities and time slots into ranked activity scores.
package scoring

import (
	"fmt"
	"time"

	"github.com/tidewise/tidewise/internal/activity"
	"github.com/tidewise/tidewise/internal/conditions"
)

// ActivityScore is the result of scoring one activity against one slot.
type ActivityScore struct {
	Activity  activity.Activity `json:"activity"`
	Score     float64           `json:"score"`
	Feasible  bool              `json:"feasible"`
	Timestamp time.Time         `json:"timestamp"`

	// ConstraintScores is keyed by ConstraintKey.
	ConstraintScores map[string]float64 `json:"constraintScores"`

	Debug Debug `json:"debug"`
}

// Debug captures the slot conditions a score was computed from.
type Debug struct {
	TideState     conditions.TideState `json:"tideState"`
	TideHeight    float64              `json:"tideHeight"`
	IsDaylight    bool                 `json:"isDaylight"`
	WindSpeed     float64              `json:"windSpeed"`
	WindGust      float64              `json:"windGust"`
	WindDirection float64              `json:"windDirection"`
	Temperature   float64              `json:"temperature"`
}

// ConstraintKey identifies the i-th constraint of an activity, e.g. "0:wind".
func ConstraintKey(i int, kind activity.ConstraintKind) string {
	return fmt.Sprintf("%d:%s", i, kind)
}
