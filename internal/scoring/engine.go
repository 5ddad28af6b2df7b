package scoring

import (
	"runtime"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tidewise/tidewise/internal/activity"
	"github.com/tidewise/tidewise/internal/slot"
)

// EngineConfig holds configuration for the scoring engine.
type EngineConfig struct {
	// Scorer scores individual constraints. Default: BackoffScorer.
	Scorer ConstraintScorer

	// Concurrency is the number of activities scored in parallel.
	// Default: GOMAXPROCS.
	Concurrency int

	Logger zerolog.Logger
}

// Engine scores activities against time slots. It holds no per-call state
// and is safe for concurrent use.
type Engine struct {
	scorer      ConstraintScorer
	concurrency int
	logger      zerolog.Logger
}

// NewEngine creates a new scoring engine.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Scorer == nil {
		cfg.Scorer = BackoffScorer{}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		scorer:      cfg.Scorer,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}
}

// ScoreSlot scores a single activity against a single slot. The score is the
// mean of the constraint scores, or 1 when the activity has no constraints.
// The pair is infeasible when any constraint scores exactly 0.
func (e *Engine) ScoreSlot(a activity.Activity, s slot.TimeSlot) ActivityScore {
	result := ActivityScore{
		Activity:         a,
		Score:            1,
		Feasible:         true,
		Timestamp:        s.Timestamp,
		ConstraintScores: make(map[string]float64, len(a.Constraints)),
		Debug: Debug{
			TideState:     s.TideState,
			TideHeight:    s.TideHeight,
			IsDaylight:    s.IsDaylight,
			WindSpeed:     s.Wind.Speed,
			WindGust:      s.Wind.Gust,
			WindDirection: s.Wind.Direction,
			Temperature:   s.Weather.Temperature,
		},
	}

	if len(a.Constraints) == 0 {
		return result
	}

	scores := make([]float64, len(a.Constraints))
	for i, c := range a.Constraints {
		v := clamp(e.scorer.Score(c, s))
		scores[i] = v
		result.ConstraintScores[ConstraintKey(i, c.Kind())] = v
		if v == 0 {
			result.Feasible = false
		}
	}
	result.Score = mean(scores)

	return result
}

// Score scores every activity against every slot and returns the results
// sorted by score, highest first. Equal scores keep activity order, then
// slot order.
func (e *Engine) Score(activities []activity.Activity, slots []slot.TimeSlot) []ActivityScore {
	perActivity := make([][]ActivityScore, len(activities))

	workers := min(e.concurrency, len(activities))
	indexes := make(chan int, len(activities))
	for i := range activities {
		indexes <- i
	}
	close(indexes)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				out := make([]ActivityScore, len(slots))
				for j, s := range slots {
					out[j] = e.ScoreSlot(activities[i], s)
				}
				perActivity[i] = out
			}
		}()
	}
	wg.Wait()

	results := make([]ActivityScore, 0, len(activities)*len(slots))
	for _, scores := range perActivity {
		results = append(results, scores...)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	e.logger.Debug().
		Int("activities", len(activities)).
		Int("slots", len(slots)).
		Int("scores", len(results)).
		Msg("scored activities")

	return results
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
