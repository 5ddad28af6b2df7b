package scoring

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tidewise/tidewise/internal/activity"
	"github.com/tidewise/tidewise/internal/conditions"
	"github.com/tidewise/tidewise/internal/slot"
)

// Tolerance windows for limits that have no natural scale of their own.
const (
	minWindSpeedRange = 2.0 // m/s
	temperatureRange  = 5.0 // °C
	uvIndexRange      = 1.0
	hourRange         = 1.0
)

// Policy names a ConstraintScorer implementation.
type Policy string

const (
	PolicyBackoff Policy = "backoff"
	PolicyBucket  Policy = "bucket"
)

// ErrUnknownPolicy is returned by NewScorer for an unrecognized policy.
var ErrUnknownPolicy = errors.New("unknown scoring policy")

// ConstraintScorer scores one constraint against one slot. Implementations
// must return a value in [0,1].
type ConstraintScorer interface {
	Score(c activity.Constraint, s slot.TimeSlot) float64
}

// NewScorer returns the scorer for the given policy. An empty policy
// selects PolicyBackoff.
func NewScorer(p Policy) (ConstraintScorer, error) {
	switch p {
	case PolicyBackoff, "":
		return BackoffScorer{}, nil
	case PolicyBucket:
		return BucketScorer{Base: BackoffScorer{}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, p)
	}
}

// BackoffScorer is the continuous scoring model: each populated field of a
// constraint yields a sub-score and the constraint scores their mean.
type BackoffScorer struct{}

// Score implements ConstraintScorer.
func (BackoffScorer) Score(c activity.Constraint, s slot.TimeSlot) float64 {
	switch c := c.(type) {
	case activity.WindConstraint:
		return scoreWind(c, s.Wind)
	case activity.WeatherConstraint:
		return scoreWeather(c, s.Weather)
	case activity.TideConstraint:
		return scoreTide(c, s)
	case activity.SunConstraint:
		return scoreSun(c, s)
	case activity.TimeConstraint:
		return scoreTime(c, s.FractionalHour)
	case activity.DayConstraint:
		return scoreDay(c, s.Timestamp)
	default:
		panic(fmt.Sprintf("scoring: unhandled constraint type %T", c))
	}
}

func scoreWind(c activity.WindConstraint, w conditions.WindSample) float64 {
	var scores []float64

	if c.MaxGustSpeed != nil {
		scores = append(scores, Backoff(w.Gust-*c.MaxGustSpeed, *c.MaxGustSpeed))
	}
	if c.MinSpeed != nil {
		scores = append(scores, Backoff(*c.MinSpeed-w.Speed, minWindSpeedRange))
	}
	if c.MaxSpeed != nil {
		scores = append(scores, Backoff(w.Speed-*c.MaxSpeed, *c.MaxSpeed))
	}
	if len(c.PreferredDirections) > 0 {
		tolerance := activity.DefaultDirectionTolerance
		if c.DirectionTolerance != nil {
			tolerance = *c.DirectionTolerance
		}
		scores = append(scores, boolScore(anyDirectionWithin(w.Direction, c.PreferredDirections, tolerance)))
	}

	return meanOr(scores, 1)
}

// angularDistance is the shortest distance between two headings in degrees.
func angularDistance(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	return math.Min(d, 360-d)
}

func anyDirectionWithin(direction float64, preferred []float64, tolerance float64) bool {
	for _, p := range preferred {
		if angularDistance(direction, p) <= tolerance {
			return true
		}
	}
	return false
}

func scoreWeather(c activity.WeatherConstraint, w conditions.WeatherSample) float64 {
	var scores []float64

	if c.MaxCloudCover != nil {
		scores = append(scores, Backoff(w.CloudCover-*c.MaxCloudCover, *c.MaxCloudCover))
	}
	if c.MaxTemperature != nil {
		scores = append(scores, Backoff(w.Temperature-*c.MaxTemperature, temperatureRange))
	}
	if c.MinTemperature != nil {
		scores = append(scores, Backoff(*c.MinTemperature-w.Temperature, temperatureRange))
	}
	if c.MaxUVIndex != nil && w.UVIndex != nil {
		scores = append(scores, Backoff(*w.UVIndex-*c.MaxUVIndex, uvIndexRange))
	}
	if c.MaxPrecipitationProbability != nil && w.PrecipitationProbability != nil {
		scores = append(scores, Backoff(*w.PrecipitationProbability-*c.MaxPrecipitationProbability, *c.MaxPrecipitationProbability))
	}

	return meanOr(scores, 1)
}

// scoreTide averages over every event of the requested type. A day without
// such an event scores 0: the activity needs that tide and there is none.
func scoreTide(c activity.TideConstraint, s slot.TimeSlot) float64 {
	var perEvent []float64

	for _, event := range s.Tide {
		if event.Type != c.EventType {
			continue
		}

		start, end := 0.0, float64(slot.HoursPerDay)
		if c.MaxHoursBefore != nil {
			start = event.Time - *c.MaxHoursBefore
		}
		if c.MaxHoursAfter != nil {
			end = event.Time + *c.MaxHoursAfter
		}

		scores := []float64{boolScore(s.FractionalHour >= start && s.FractionalHour <= end)}
		if c.MinHeight != nil {
			scores = append(scores, Backoff(*c.MinHeight-event.Height, *c.MinHeight))
		}
		if c.MaxHeight != nil {
			scores = append(scores, Backoff(event.Height-*c.MaxHeight, *c.MaxHeight))
		}
		perEvent = append(perEvent, mean(scores))
	}

	return meanOr(perEvent, 0)
}

func scoreSun(c activity.SunConstraint, s slot.TimeSlot) float64 {
	var scores []float64

	if c.RequiresDaylight {
		scores = append(scores, boolScore(s.IsDaylight))
	}
	if c.RequiresDarkness {
		scores = append(scores, boolScore(!s.IsDaylight))
	}
	day := conditions.StartOfDay(s.Timestamp)
	if c.MaxHoursBeforeSunset != nil {
		limit := s.Sun.SunsetHour(day) - *c.MaxHoursBeforeSunset
		scores = append(scores, Backoff(s.FractionalHour-limit, hourRange))
	}
	if c.MinHoursAfterSunrise != nil {
		limit := s.Sun.SunriseHour(day) + *c.MinHoursAfterSunrise
		scores = append(scores, Backoff(-(s.FractionalHour-limit), hourRange))
	}

	return meanOr(scores, 1)
}

func scoreTime(c activity.TimeConstraint, hour float64) float64 {
	var scores []float64

	if c.EarliestHour != nil {
		scores = append(scores, Backoff(-(hour-*c.EarliestHour), hourRange))
	}
	if c.LatestHour != nil {
		scores = append(scores, Backoff(hour-*c.LatestHour, hourRange))
	}
	if len(c.PreferredHours) > 0 {
		preferred := false
		for _, p := range c.PreferredHours {
			if hour >= p && hour < p+1 {
				preferred = true
				break
			}
		}
		scores = append(scores, boolScore(preferred))
	}

	return meanOr(scores, 1)
}

func scoreDay(c activity.DayConstraint, at time.Time) float64 {
	var scores []float64

	weekend := isWeekend(at)
	if c.IsWeekday != nil {
		scores = append(scores, boolScore(*c.IsWeekday == !weekend))
	}
	if c.IsWeekend != nil {
		scores = append(scores, boolScore(*c.IsWeekend == weekend))
	}
	if len(c.DateRanges) > 0 {
		inRange := false
		for _, r := range c.DateRanges {
			if r.Contains(at) {
				inRange = true
				break
			}
		}
		scores = append(scores, boolScore(inRange))
	}

	return meanOr(scores, 1)
}

func isWeekend(t time.Time) bool {
	switch t.UTC().Weekday() {
	case time.Saturday, time.Sunday:
		return true
	default:
		return false
	}
}

func boolScore(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}
