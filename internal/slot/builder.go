// Package slot expands a day of environmental data into hourly time slots.
package slot

import (
	"iter"
	"time"

	"github.com/rs/zerolog"

	"github.com/tidewise/tidewise/internal/conditions"
)

// HoursPerDay is the number of candidate slots in a reference day.
const HoursPerDay = 24

// WorkingHours restricts slots to a time-of-day window. When Enabled is
// false no filtering happens.
type WorkingHours struct {
	StartHour float64 `json:"startHour" validate:"gte=0,lte=24"`
	EndHour   float64 `json:"endHour" validate:"gte=0,lte=24,gtefield=StartHour"`
	Enabled   bool    `json:"enabled"`
}

// Allows reports whether hour h lies inside the window.
func (w *WorkingHours) Allows(h float64) bool {
	if w == nil || !w.Enabled {
		return true
	}
	return h >= w.StartHour && h <= w.EndHour
}

// TimeSlot is one hour of the reference day with its matched samples.
type TimeSlot struct {
	Timestamp      time.Time
	FractionalHour float64

	Sun        conditions.SunTimes
	IsDaylight bool

	// Tide is the full list of tide events for the day.
	Tide       []conditions.TideEvent
	TideState  conditions.TideState
	TideHeight float64

	Wind    conditions.WindSample
	Weather conditions.WeatherSample
}

// BuilderConfig holds configuration for the slot builder.
type BuilderConfig struct {
	Logger zerolog.Logger
}

// Builder turns a DataContext into hourly slots.
type Builder struct {
	logger zerolog.Logger
}

// NewBuilder creates a new slot builder.
func NewBuilder(cfg BuilderConfig) *Builder {
	return &Builder{logger: cfg.Logger}
}

// Slots returns the slots of data's reference day, optionally limited to
// working hours. Nothing is computed until the sequence is iterated.
func (b *Builder) Slots(data conditions.DataContext, wh *WorkingHours) Sequence {
	return Sequence{builder: b, data: data, workingHours: wh}
}

// Sequence is a finite, restartable, ascending sequence of slots.
type Sequence struct {
	builder      *Builder
	data         conditions.DataContext
	workingHours *WorkingHours
}

// All yields the slots in ascending order. Each call starts over.
func (s Sequence) All() iter.Seq[TimeSlot] {
	return func(yield func(TimeSlot) bool) {
		day := s.data.Day()
		for h := 0; h < HoursPerDay; h++ {
			ts, ok := s.builder.build(s.data, day.Add(time.Duration(h)*time.Hour), s.workingHours)
			if !ok {
				continue
			}
			if !yield(ts) {
				return
			}
		}
	}
}

// Collect materializes the sequence.
func (s Sequence) Collect() []TimeSlot {
	slots := make([]TimeSlot, 0, HoursPerDay)
	for ts := range s.All() {
		slots = append(slots, ts)
	}
	return slots
}

func (b *Builder) build(data conditions.DataContext, at time.Time, wh *WorkingHours) (TimeSlot, bool) {
	hour := conditions.FractionalHour(at)
	if !wh.Allows(hour) {
		return TimeSlot{}, false
	}

	wind, hasWind := data.WindAt(at)
	weather, hasWeather := data.WeatherAt(at)
	if !hasWind || !hasWeather {
		b.logger.Debug().
			Time("slot", at).
			Bool("has_wind", hasWind).
			Bool("has_weather", hasWeather).
			Msg("dropping slot with missing samples")
		return TimeSlot{}, false
	}

	state, height := InterpolateTide(data.Tide, hour)

	return TimeSlot{
		Timestamp:      at,
		FractionalHour: hour,
		Sun:            data.Sun,
		IsDaylight:     data.Sun.IsDaylight(at),
		Tide:           data.Tide,
		TideState:      state,
		TideHeight:     height,
		Wind:           wind,
		Weather:        weather,
	}, true
}
