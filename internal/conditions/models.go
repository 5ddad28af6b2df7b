// Package conditions holds the environmental snapshot for one reference day:
// sun times, tide extremes and hourly wind and weather samples.
package conditions

import (
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// TideType identifies a tide extreme.
type TideType string

const (
	TideHigh TideType = "HIGH"
	TideLow  TideType = "LOW"
)

// UnmarshalJSON accepts tide types in any letter case, so "high" decodes as
// TideHigh.
func (t *TideType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = TideType(strings.ToUpper(strings.TrimSpace(s)))
	return nil
}

// TideState describes the water level at a given hour.
type TideState string

const (
	TideStateHigh    TideState = "HIGH"
	TideStateLow     TideState = "LOW"
	TideStateRising  TideState = "RISING"
	TideStateFalling TideState = "FALLING"
)

// Condition represents the general weather condition.
type Condition string

const (
	ConditionClear        Condition = "CLEAR"
	ConditionClouds       Condition = "CLOUDS"
	ConditionRain         Condition = "RAIN"
	ConditionDrizzle      Condition = "DRIZZLE"
	ConditionThunderstorm Condition = "THUNDERSTORM"
	ConditionSnow         Condition = "SNOW"
	ConditionFog          Condition = "FOG"
	ConditionUnknown      Condition = "UNKNOWN"
)

// SunTimes holds sunrise and sunset for the reference day.
type SunTimes struct {
	Sunrise time.Time `json:"sunrise"`
	Sunset  time.Time `json:"sunset"`
}

// TideEvent is a single high or low water extreme.
type TideEvent struct {
	// Height in meters.
	Height float64 `json:"height"`

	// Time as hours of the reference day, in [0,24).
	Time float64 `json:"time"`

	Type TideType `json:"type" validate:"oneof=HIGH LOW"`
}

// WindSample is the hourly wind observation or forecast.
type WindSample struct {
	Time      time.Time `json:"time"`
	Speed     float64   `json:"speed"`     // m/s
	Gust      float64   `json:"gust"`      // m/s (0 if not available)
	Direction float64   `json:"direction"` // degrees (0-360, 0=N, 90=E, 180=S, 270=W)
}

// WeatherSample is the hourly weather observation or forecast.
type WeatherSample struct {
	Time time.Time `json:"time"`

	// Temperature in Celsius
	Temperature float64 `json:"temperature"`

	// Cloud cover percentage (0-100)
	CloudCover float64 `json:"cloudCover"`

	// UVIndex is nil when the upstream source does not report it.
	UVIndex *float64 `json:"uvIndex,omitempty"`

	// Probability of precipitation percentage (0-100), nil when unknown.
	PrecipitationProbability *float64 `json:"precipitationProbability,omitempty"`

	Condition Condition `json:"condition,omitempty"`
}

// DataContext is the read-only environmental snapshot for one reference day.
// It is owned by the caller for the duration of a scoring pass.
type DataContext struct {
	ReferenceDate time.Time       `json:"referenceDate"`
	Sun           SunTimes        `json:"sun"`
	Tide          []TideEvent     `json:"tide" validate:"dive"`
	Weather       []WeatherSample `json:"weather"`
	Wind          []WindSample    `json:"wind"`
}

// Day returns the reference date truncated to midnight UTC.
func (d DataContext) Day() time.Time {
	return StartOfDay(d.ReferenceDate)
}

// StartOfDay returns midnight UTC of the day t falls on.
func StartOfDay(t time.Time) time.Time {
	y, m, day := t.UTC().Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// WindAt returns the wind sample whose timestamp equals t exactly.
func (d DataContext) WindAt(t time.Time) (WindSample, bool) {
	for _, w := range d.Wind {
		if w.Time.Equal(t) {
			return w, true
		}
	}
	return WindSample{}, false
}

// WeatherAt returns the weather sample whose timestamp equals t exactly.
func (d DataContext) WeatherAt(t time.Time) (WeatherSample, bool) {
	for _, w := range d.Weather {
		if w.Time.Equal(t) {
			return w, true
		}
	}
	return WeatherSample{}, false
}

// SunriseHour returns sunrise in hours since midnight of day.
func (s SunTimes) SunriseHour(day time.Time) float64 {
	return HoursSince(day, s.Sunrise)
}

// SunsetHour returns sunset in hours since midnight of day. A sunset after
// midnight UTC yields a value above 24.
func (s SunTimes) SunsetHour(day time.Time) float64 {
	return HoursSince(day, s.Sunset)
}

// IsDaylight reports whether t falls within [sunrise, sunset].
func (s SunTimes) IsDaylight(t time.Time) bool {
	return !t.Before(s.Sunrise) && !t.After(s.Sunset)
}

// HoursSince returns the hours from midnight of day's UTC date to t,
// negative when t is earlier.
func HoursSince(day, t time.Time) float64 {
	return t.Sub(StartOfDay(day)).Hours()
}

// FractionalHour converts t into hours of its UTC day, e.g. 13:30 -> 13.5.
func FractionalHour(t time.Time) float64 {
	t = t.UTC()
	return float64(t.Hour()) +
		float64(t.Minute())/60 +
		float64(t.Second())/3600 +
		float64(t.Nanosecond())/3.6e12
}
