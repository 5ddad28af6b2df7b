package activity

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tidewise/tidewise/internal/conditions"
)

// ConstraintKind is the discriminator of the Constraint union.
type ConstraintKind string

const (
	KindWind    ConstraintKind = "wind"
	KindWeather ConstraintKind = "weather"
	KindTide    ConstraintKind = "tide"
	KindSun     ConstraintKind = "sun"
	KindTime    ConstraintKind = "time"
	KindDay     ConstraintKind = "day"
)

// Constraint is one rule an activity wants satisfied. The set of
// implementations is closed: WindConstraint, WeatherConstraint,
// TideConstraint, SunConstraint, TimeConstraint and DayConstraint.
type Constraint interface {
	Kind() ConstraintKind
	sealed()
}

// WindConstraint limits wind speed, gusts and direction.
type WindConstraint struct {
	MinSpeed            *float64  `json:"minSpeed,omitempty" validate:"omitempty,gte=0"`
	MaxSpeed            *float64  `json:"maxSpeed,omitempty" validate:"omitempty,gt=0"`
	MaxGustSpeed        *float64  `json:"maxGustSpeed,omitempty" validate:"omitempty,gt=0"`
	PreferredDirections []float64 `json:"preferredDirections,omitempty" validate:"omitempty,dive,gte=0,lt=360"`

	// DirectionTolerance in degrees, defaults to DefaultDirectionTolerance.
	DirectionTolerance *float64 `json:"directionTolerance,omitempty" validate:"omitempty,gte=0,lte=180"`
}

// DefaultDirectionTolerance is used when a wind constraint lists preferred
// directions without a tolerance.
const DefaultDirectionTolerance = 10.0

// WeatherConstraint limits temperature, cloud cover, UV and precipitation.
type WeatherConstraint struct {
	MinTemperature              *float64 `json:"minTemperature,omitempty"`
	MaxTemperature              *float64 `json:"maxTemperature,omitempty"`
	MaxCloudCover               *float64 `json:"maxCloudCover,omitempty" validate:"omitempty,gt=0,lte=100"`
	MaxUVIndex                  *float64 `json:"maxUvIndex,omitempty" validate:"omitempty,gte=0"`
	MaxPrecipitationProbability *float64 `json:"maxPrecipitationProbability,omitempty" validate:"omitempty,gt=0,lte=100"`
}

// TideConstraint requires the slot to sit near a tide extreme of EventType.
type TideConstraint struct {
	EventType      conditions.TideType `json:"eventType" validate:"oneof=HIGH LOW"`
	MinHeight      *float64            `json:"minHeight,omitempty" validate:"omitempty,gt=0"`
	MaxHeight      *float64            `json:"maxHeight,omitempty" validate:"omitempty,gt=0"`
	MaxHoursBefore *float64            `json:"maxHoursBefore,omitempty" validate:"omitempty,gte=0,lte=24"`
	MaxHoursAfter  *float64            `json:"maxHoursAfter,omitempty" validate:"omitempty,gte=0,lte=24"`
}

// SunConstraint relates the slot to sunrise and sunset.
type SunConstraint struct {
	RequiresDaylight     bool     `json:"requiresDaylight,omitempty"`
	RequiresDarkness     bool     `json:"requiresDarkness,omitempty"`
	MaxHoursBeforeSunset *float64 `json:"maxHoursBeforeSunset,omitempty" validate:"omitempty,gte=0,lte=24"`
	MinHoursAfterSunrise *float64 `json:"minHoursAfterSunrise,omitempty" validate:"omitempty,gte=0,lte=24"`
}

// TimeConstraint restricts the hour of day.
type TimeConstraint struct {
	EarliestHour   *float64  `json:"earliestHour,omitempty" validate:"omitempty,gte=0,lte=24"`
	LatestHour     *float64  `json:"latestHour,omitempty" validate:"omitempty,gte=0,lte=24"`
	PreferredHours []float64 `json:"preferredHours,omitempty" validate:"omitempty,dive,gte=0,lt=24"`
}

// DayConstraint restricts the calendar day.
type DayConstraint struct {
	IsWeekday  *bool       `json:"isWeekday,omitempty"`
	IsWeekend  *bool       `json:"isWeekend,omitempty"`
	DateRanges []DateRange `json:"dateRanges,omitempty" validate:"omitempty,dive"`
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Contains reports whether the calendar date of t lies within the range.
func (r DateRange) Contains(t time.Time) bool {
	d := dateOf(t)
	return !d.Before(dateOf(r.Start.Time)) && !d.After(dateOf(r.End.Time))
}

func (WindConstraint) Kind() ConstraintKind    { return KindWind }
func (WeatherConstraint) Kind() ConstraintKind { return KindWeather }
func (TideConstraint) Kind() ConstraintKind    { return KindTide }
func (SunConstraint) Kind() ConstraintKind     { return KindSun }
func (TimeConstraint) Kind() ConstraintKind    { return KindTime }
func (DayConstraint) Kind() ConstraintKind     { return KindDay }

func (WindConstraint) sealed()    {}
func (WeatherConstraint) sealed() {}
func (TideConstraint) sealed()    {}
func (SunConstraint) sealed()     {}
func (TimeConstraint) sealed()    {}
func (DayConstraint) sealed()     {}

// Constraints is a list of constraints that encodes as a JSON array of
// objects tagged with a "type" field, e.g. {"type":"wind","maxSpeed":8}.
type Constraints []Constraint

// MarshalJSON implements json.Marshaler.
func (cs Constraints) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, c := range cs {
		if i > 0 {
			buf.WriteByte(',')
		}
		encoded, err := marshalConstraint(c)
		if err != nil {
			return nil, err
		}
		buf.Write(encoded)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (cs *Constraints) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Constraints, 0, len(raw))
	for i, item := range raw {
		c, err := unmarshalConstraint(item)
		if err != nil {
			return fmt.Errorf("constraint %d: %w", i, err)
		}
		out = append(out, c)
	}
	*cs = out
	return nil
}

func marshalConstraint(c Constraint) ([]byte, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}

	tag := fmt.Sprintf(`{"type":%q`, c.Kind())
	if len(body) <= 2 {
		return []byte(tag + "}"), nil
	}
	return append([]byte(tag+","), body[1:]...), nil
}

func unmarshalConstraint(data []byte) (Constraint, error) {
	var envelope struct {
		Type ConstraintKind `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	switch envelope.Type {
	case KindWind:
		return decodeAs[WindConstraint](data)
	case KindWeather:
		return decodeAs[WeatherConstraint](data)
	case KindTide:
		return decodeAs[TideConstraint](data)
	case KindSun:
		return decodeAs[SunConstraint](data)
	case KindTime:
		return decodeAs[TimeConstraint](data)
	case KindDay:
		return decodeAs[DayConstraint](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownConstraintType, envelope.Type)
	}
}

func decodeAs[T Constraint](data []byte) (Constraint, error) {
	var c T
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return c, nil
}

// Date is a calendar date encoded as "2006-01-02".
type Date struct {
	time.Time
}

// NewDate returns the Date for the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(time.DateOnly) + `"`), nil
}

// UnmarshalJSON accepts "2006-01-02" or a full RFC3339 timestamp.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = dateOf(t)
	return nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
