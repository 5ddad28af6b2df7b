// Package suggest answers "what should I do, and when" for one day of
// environmental data by wiring slot building, scoring and grouping together.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/tidewise/tidewise/internal/activity"
	"github.com/tidewise/tidewise/internal/conditions"
	"github.com/tidewise/tidewise/internal/grouping"
	"github.com/tidewise/tidewise/internal/scoring"
	"github.com/tidewise/tidewise/internal/slot"
)

const instrumentationName = "github.com/tidewise/tidewise/internal/suggest"

// ErrNoActivities is returned when a request resolves to no activities.
var ErrNoActivities = errors.New("no activities to score")

// Catalog supplies activity definitions when a request carries none.
type Catalog interface {
	List(ctx context.Context) ([]activity.Activity, error)
	GetMany(ctx context.Context, ids []string) ([]activity.Activity, error)
}

// Request describes one suggestion computation.
type Request struct {
	Data conditions.DataContext

	// Activities to score. When empty they are loaded from the catalog,
	// restricted to ActivityIDs if given.
	Activities  []activity.Activity
	ActivityIDs []string

	WorkingHours *slot.WorkingHours
	Grouping     grouping.Mode

	// Limit caps both result lists. Zero means no limit.
	Limit int

	// FeasibleOnly drops scores where some constraint is entirely unmet.
	FeasibleOnly bool

	// From drops slots before this instant.
	From *time.Time
}

// Result holds ranked and grouped scores.
type Result struct {
	GeneratedAt time.Time
	Ranked      []scoring.ActivityScore
	Grouped     []grouping.EnrichedActivityScore
}

// ServiceConfig holds configuration for the suggestion service.
type ServiceConfig struct {
	Catalog Catalog
	Engine  *scoring.Engine
	Builder *slot.Builder
	Logger  zerolog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Service computes suggestions.
type Service struct {
	catalog Catalog
	engine  *scoring.Engine
	builder *slot.Builder
	logger  zerolog.Logger
	now     func() time.Time

	tracer     trace.Tracer
	pairs      metric.Int64Counter
	infeasible metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewService creates a new suggestion service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Engine == nil {
		cfg.Engine = scoring.NewEngine(scoring.EngineConfig{Logger: cfg.Logger})
	}
	if cfg.Builder == nil {
		cfg.Builder = slot.NewBuilder(slot.BuilderConfig{Logger: cfg.Logger})
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	meter := otel.Meter(instrumentationName)

	pairs, err := meter.Int64Counter(
		"tidewise.scoring.pairs",
		metric.WithDescription("Number of activity and slot pairs scored"),
		metric.WithUnit("{pair}"),
	)
	if err != nil {
		return nil, err
	}

	infeasible, err := meter.Int64Counter(
		"tidewise.scoring.infeasible",
		metric.WithDescription("Number of scored pairs with an unmet constraint"),
		metric.WithUnit("{pair}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"tidewise.suggest.duration",
		metric.WithDescription("Duration of suggestion computations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Service{
		catalog:    cfg.Catalog,
		engine:     cfg.Engine,
		builder:    cfg.Builder,
		logger:     cfg.Logger,
		now:        cfg.Now,
		tracer:     otel.Tracer(instrumentationName),
		pairs:      pairs,
		infeasible: infeasible,
		duration:   duration,
	}, nil
}

// Suggest scores the request's activities against every usable hour of its
// day and returns the ranked scores together with their grouped intervals.
func (s *Service) Suggest(ctx context.Context, req Request) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "suggest.Suggest")
	defer span.End()

	start := time.Now()

	activities, err := s.resolveActivities(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	slots := make([]slot.TimeSlot, 0, slot.HoursPerDay)
	for ts := range s.builder.Slots(req.Data, req.WorkingHours).All() {
		if req.From != nil && ts.Timestamp.Before(*req.From) {
			continue
		}
		slots = append(slots, ts)
	}

	ranked := s.engine.Score(activities, slots)

	infeasible := 0
	for _, r := range ranked {
		if !r.Feasible {
			infeasible++
		}
	}
	scored := len(ranked)

	if req.FeasibleOnly {
		ranked = feasible(ranked)
	}

	mode := req.Grouping
	if mode == "" {
		mode = grouping.ModeNone
	}
	grouped := grouping.GroupByActivity(ranked, mode)

	if req.Limit > 0 {
		ranked = ranked[:min(req.Limit, len(ranked))]
		grouped = grouped[:min(req.Limit, len(grouped))]
	}

	attrs := metric.WithAttributes(attribute.String("grouping", string(mode)))
	s.pairs.Add(ctx, int64(scored), attrs)
	s.infeasible.Add(ctx, int64(infeasible), attrs)
	s.duration.Record(ctx, time.Since(start).Seconds(), attrs)

	span.SetAttributes(
		attribute.Int("suggest.activities", len(activities)),
		attribute.Int("suggest.slots", len(slots)),
		attribute.String("suggest.grouping", string(mode)),
	)

	s.logger.Info().
		Str("reference_date", req.Data.Day().Format(time.DateOnly)).
		Int("activities", len(activities)).
		Int("slots", len(slots)).
		Int("scored", scored).
		Int("infeasible", infeasible).
		Int("grouped", len(grouped)).
		Str("grouping", string(mode)).
		Dur("duration", time.Since(start)).
		Msg("suggestions computed")

	return &Result{
		GeneratedAt: s.now().UTC(),
		Ranked:      ranked,
		Grouped:     grouped,
	}, nil
}

func (s *Service) resolveActivities(ctx context.Context, req Request) ([]activity.Activity, error) {
	if len(req.Activities) > 0 {
		return req.Activities, nil
	}
	if s.catalog == nil {
		return nil, ErrNoActivities
	}

	var (
		activities []activity.Activity
		err        error
	)
	if len(req.ActivityIDs) > 0 {
		activities, err = s.catalog.GetMany(ctx, req.ActivityIDs)
	} else {
		activities, err = s.catalog.List(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("load activities: %w", err)
	}
	if len(activities) == 0 {
		return nil, ErrNoActivities
	}
	return activities, nil
}

func feasible(scores []scoring.ActivityScore) []scoring.ActivityScore {
	out := make([]scoring.ActivityScore, 0, len(scores))
	for _, s := range scores {
		if s.Feasible {
			out = append(out, s)
		}
	}
	return out
}
