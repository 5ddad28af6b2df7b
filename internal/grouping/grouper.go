// Package grouping merges hourly activity scores into display intervals.
package grouping

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tidewise/tidewise/internal/scoring"
)

// Mode selects how scores are merged.
type Mode string

const (
	// ModeNone emits one single-point interval per score.
	ModeNone Mode = "none"

	// ModeTime merges consecutive hours of one activity with an identical score.
	ModeTime Mode = "time"

	// ModeTimeAndActivity additionally merges consecutive time groups of one
	// activity regardless of score, keeping the groups as sub-intervals.
	ModeTimeAndActivity Mode = "timeAndActivity"
)

// ErrUnknownMode is returned by ParseMode.
var ErrUnknownMode = errors.New("unknown grouping mode")

// ParseMode parses a wire value. The empty string selects ModeNone.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeNone:
		return ModeNone, nil
	case ModeTime:
		return ModeTime, nil
	case ModeTimeAndActivity:
		return ModeTimeAndActivity, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Interval is an inclusive range of slot timestamps.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SubInterval is one time group absorbed into an activity group.
type SubInterval struct {
	Score            float64            `json:"score"`
	Interval         Interval           `json:"interval"`
	ConstraintScores map[string]float64 `json:"constraintScores"`
}

// EnrichedActivityScore is a representative score for an interval of slots.
type EnrichedActivityScore struct {
	scoring.ActivityScore

	Interval Interval `json:"interval"`

	// Intervals is only set in ModeTimeAndActivity.
	Intervals []SubInterval `json:"intervals,omitempty"`
}

// Group merges scores, which must be in chronological order, according to
// mode. The result is in the same order and is never nil.
func Group(scores []scoring.ActivityScore, mode Mode) []EnrichedActivityScore {
	switch mode {
	case ModeTime:
		return groupByTime(scores)
	case ModeTimeAndActivity:
		return groupByActivity(groupByTime(scores))
	default:
		out := make([]EnrichedActivityScore, len(scores))
		for i, s := range scores {
			out[i] = EnrichedActivityScore{
				ActivityScore: s,
				Interval:      Interval{Start: s.Timestamp, End: s.Timestamp},
			}
		}
		return out
	}
}

func groupByTime(scores []scoring.ActivityScore) []EnrichedActivityScore {
	return foldRuns(scores,
		func(last, next scoring.ActivityScore) bool {
			return last.Activity.ID == next.Activity.ID &&
				last.Score == next.Score &&
				next.Timestamp.Sub(last.Timestamp) == time.Hour
		},
		func(run []scoring.ActivityScore) EnrichedActivityScore {
			return EnrichedActivityScore{
				ActivityScore: run[0],
				Interval:      Interval{Start: run[0].Timestamp, End: run[len(run)-1].Timestamp},
			}
		},
	)
}

func groupByActivity(groups []EnrichedActivityScore) []EnrichedActivityScore {
	return foldRuns(groups,
		func(last, next EnrichedActivityScore) bool {
			return last.Activity.ID == next.Activity.ID
		},
		func(run []EnrichedActivityScore) EnrichedActivityScore {
			parent := EnrichedActivityScore{
				ActivityScore: run[0].ActivityScore,
				Interval:      Interval{Start: run[0].Interval.Start, End: run[len(run)-1].Interval.End},
				Intervals:     make([]SubInterval, len(run)),
			}
			for i, g := range run {
				parent.Intervals[i] = SubInterval{
					Score:            g.Score,
					Interval:         g.Interval,
					ConstraintScores: g.ConstraintScores,
				}
			}
			return parent
		},
	)
}

// runs is the accumulator of foldRuns.
type runs[T, R any] struct {
	open   []T
	closed []R
}

// foldRuns walks items left to right, extending the open run while
// continues(lastOfRun, item) holds and closing it with closeRun otherwise.
func foldRuns[T, R any](items []T, continues func(last, next T) bool, closeRun func([]T) R) []R {
	acc := runs[T, R]{closed: make([]R, 0, len(items))}

	for _, item := range items {
		if len(acc.open) > 0 && !continues(acc.open[len(acc.open)-1], item) {
			acc.closed = append(acc.closed, closeRun(acc.open))
			acc.open = nil
		}
		acc.open = append(acc.open, item)
	}
	if len(acc.open) > 0 {
		acc.closed = append(acc.closed, closeRun(acc.open))
	}

	return acc.closed
}

// GroupByActivity groups a mixed or ranked list of scores. Scores are
// partitioned by activity, each partition is put in chronological order and
// grouped on its own, and the partitions are returned best score first.
// Activities with equal best scores keep their order of first appearance.
func GroupByActivity(scores []scoring.ActivityScore, mode Mode) []EnrichedActivityScore {
	var order []string
	partitions := make(map[string][]scoring.ActivityScore)
	for _, s := range scores {
		id := s.Activity.ID
		if _, ok := partitions[id]; !ok {
			order = append(order, id)
		}
		partitions[id] = append(partitions[id], s)
	}

	grouped := make([][]EnrichedActivityScore, len(order))
	var wg sync.WaitGroup
	for i, id := range order {
		wg.Add(1)
		go func(i int, part []scoring.ActivityScore) {
			defer wg.Done()
			sort.SliceStable(part, func(a, b int) bool {
				return part[a].Timestamp.Before(part[b].Timestamp)
			})
			grouped[i] = Group(part, mode)
		}(i, partitions[id])
	}
	wg.Wait()

	sort.SliceStable(grouped, func(a, b int) bool {
		return bestScore(grouped[a]) > bestScore(grouped[b])
	})

	out := make([]EnrichedActivityScore, 0, len(scores))
	for _, g := range grouped {
		out = append(out, g...)
	}
	return out
}

func bestScore(groups []EnrichedActivityScore) float64 {
	best := 0.0
	for _, g := range groups {
		best = max(best, g.Score)
		for _, sub := range g.Intervals {
			best = max(best, sub.Score)
		}
	}
	return best
}
