package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tidewise/tidewise/internal/conditions"
	"github.com/tidewise/tidewise/internal/grouping"
	"github.com/tidewise/tidewise/internal/suggest"
	"github.com/tidewise/tidewise/internal/validation"
)

// ErrNoDays is returned for a job that carries no day snapshot.
var ErrNoDays = errors.New("job carries no day snapshot")

// Suggester computes suggestions. *suggest.Service satisfies it.
type Suggester interface {
	Suggest(ctx context.Context, req suggest.Request) (*suggest.Result, error)
}

// ScoredDay is the payload published for each scored day.
type ScoredDay struct {
	JobID         string                           `json:"job_id"`
	ReferenceDate string                           `json:"reference_date"`
	GeneratedAt   time.Time                        `json:"generated_at"`
	Grouping      grouping.Mode                    `json:"grouping"`
	Grouped       []grouping.EnrichedActivityScore `json:"grouped"`
}

// ScoreJob scores day snapshots for the whole catalog and publishes the
// grouped results.
type ScoreJob struct {
	config    ScoreConfig
	suggester Suggester
	publisher ResultPublisher
	logger    zerolog.Logger

	metrics *ScoreMetrics
}

// ScoreMetrics tracks score job statistics.
type ScoreMetrics struct {
	mu sync.RWMutex

	TotalJobs     int64
	DaysScored    int64
	DaysFailed    int64
	PublishFailed int64

	LastJobAt       time.Time
	LastJobDuration time.Duration
	TotalDuration   time.Duration
}

// ScoreJobConfig holds configuration for creating a ScoreJob.
type ScoreJobConfig struct {
	Config    ScoreConfig
	Suggester Suggester
	Publisher ResultPublisher
	Logger    zerolog.Logger
}

// NewScoreJob creates a new score job processor.
func NewScoreJob(cfg ScoreJobConfig) *ScoreJob {
	return &ScoreJob{
		config:    cfg.Config.withDefaults(),
		suggester: cfg.Suggester,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		metrics:   &ScoreMetrics{},
	}
}

// ScoreRequest describes one batch of days to score.
type ScoreRequest struct {
	JobID       string
	Days        []conditions.DataContext
	ActivityIDs []string

	// Grouping falls back to the job default when empty.
	Grouping grouping.Mode
	Limit    int
}

// ScoreResult contains the result of a score run.
type ScoreResult struct {
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	TotalDays  int
	Successful int
	Failed     int
	Errors     []DayError
}

// DayError records why a day could not be scored or published.
type DayError struct {
	ReferenceDate string
	Stage         string
	Error         string
}

// Run scores every day of req with a bounded worker pool and publishes each
// result. Per-day failures are reported in the result.
func (j *ScoreJob) Run(ctx context.Context, req ScoreRequest) (*ScoreResult, error) {
	if len(req.Days) == 0 {
		return nil, ErrNoDays
	}

	mode := req.Grouping
	if mode == "" {
		mode = j.config.Grouping
	}

	startTime := time.Now()
	result := &ScoreResult{
		StartTime: startTime,
		TotalDays: len(req.Days),
	}

	j.logger.Info().
		Str("job_id", req.JobID).
		Int("total_days", result.TotalDays).
		Int("concurrency", j.config.Concurrency).
		Str("grouping", string(mode)).
		Msg("starting score job")

	daysChan := make(chan conditions.DataContext, len(req.Days))
	resultsChan := make(chan dayResult, len(req.Days))

	var wg sync.WaitGroup
	for i := 0; i < min(j.config.Concurrency, len(req.Days)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.scoreWorker(ctx, req, mode, daysChan, resultsChan)
		}()
	}

	for _, d := range req.Days {
		daysChan <- d
	}
	close(daysChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for dr := range resultsChan {
		if dr.err == nil {
			result.Successful++
			continue
		}
		result.Failed++
		result.Errors = append(result.Errors, *dr.err)
	}
	// Days never picked up because ctx ended count as failed.
	if missing := result.TotalDays - result.Successful - result.Failed; missing > 0 {
		result.Failed += missing
		result.Errors = append(result.Errors, DayError{Stage: "cancelled", Error: context.Cause(ctx).Error()})
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Str("job_id", req.JobID).
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("score job completed")

	return result, nil
}

type dayResult struct {
	err *DayError
}

func (j *ScoreJob) scoreWorker(ctx context.Context, req ScoreRequest, mode grouping.Mode, days <-chan conditions.DataContext, results chan<- dayResult) {
	for day := range days {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.scoreDay(ctx, req, mode, day)
		}
	}
}

func (j *ScoreJob) scoreDay(ctx context.Context, req ScoreRequest, mode grouping.Mode, data conditions.DataContext) dayResult {
	date := data.Day().Format(time.DateOnly)
	if data.ReferenceDate.IsZero() {
		return dayResult{err: &DayError{Stage: "validate", Error: "referenceDate is required"}}
	}
	if err := validation.Struct(data); err != nil {
		return dayResult{err: &DayError{ReferenceDate: date, Stage: "validate", Error: err.Error()}}
	}

	dayCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	res, err := j.suggester.Suggest(dayCtx, suggest.Request{
		Data:         data,
		ActivityIDs:  req.ActivityIDs,
		Grouping:     mode,
		Limit:        req.Limit,
		FeasibleOnly: j.config.FeasibleOnly,
	})
	if err != nil {
		j.logger.Warn().Err(err).Str("reference_date", date).Msg("failed to score day")
		return dayResult{err: &DayError{ReferenceDate: date, Stage: "score", Error: err.Error()}}
	}

	scored := ScoredDay{
		JobID:         req.JobID,
		ReferenceDate: date,
		GeneratedAt:   res.GeneratedAt,
		Grouping:      mode,
		Grouped:       res.Grouped,
	}
	if j.publisher != nil {
		if err := j.publisher.Publish(dayCtx, scored); err != nil {
			j.metrics.mu.Lock()
			j.metrics.PublishFailed++
			j.metrics.mu.Unlock()

			j.logger.Error().Err(err).Str("reference_date", date).Msg("failed to publish scored day")
			return dayResult{err: &DayError{ReferenceDate: date, Stage: "publish", Error: err.Error()}}
		}
	}

	j.logger.Debug().
		Str("reference_date", date).
		Int("grouped", len(res.Grouped)).
		Msg("day scored")
	return dayResult{}
}

func (j *ScoreJob) updateMetrics(result *ScoreResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalJobs++
	j.metrics.DaysScored += int64(result.Successful)
	j.metrics.DaysFailed += int64(result.Failed)
	j.metrics.LastJobAt = result.EndTime
	j.metrics.LastJobDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *ScoreJob) GetMetrics() ScoreMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return ScoreMetrics{
		TotalJobs:       j.metrics.TotalJobs,
		DaysScored:      j.metrics.DaysScored,
		DaysFailed:      j.metrics.DaysFailed,
		PublishFailed:   j.metrics.PublishFailed,
		LastJobAt:       j.metrics.LastJobAt,
		LastJobDuration: j.metrics.LastJobDuration,
		TotalDuration:   j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *ScoreJob) MetricsSnapshot() map[string]any {
	m := j.GetMetrics()
	return map[string]any{
		"total_jobs":        m.TotalJobs,
		"days_scored":       m.DaysScored,
		"days_failed":       m.DaysFailed,
		"publish_failed":    m.PublishFailed,
		"last_job_at":       m.LastJobAt,
		"last_job_duration": m.LastJobDuration.String(),
		"total_duration":    m.TotalDuration.String(),
	}
}

func (r *ScoreResult) err() error {
	if r.Failed > r.Successful {
		return fmt.Errorf("too many failed days: %d/%d", r.Failed, r.TotalDays)
	}
	return nil
}
