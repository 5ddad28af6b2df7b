// Package worker provides background scoring of published day snapshots.
package worker

import (
	"time"

	"github.com/tidewise/tidewise/internal/grouping"
)

// ScoreConfig holds configuration for the score job.
type ScoreConfig struct {
	// Concurrency is the number of days scored at once.
	// Default: 3
	Concurrency int

	// Timeout bounds scoring and publishing of a single day.
	// Default: 30 seconds
	Timeout time.Duration

	// Grouping is used when a message does not name a mode.
	// Default: time
	Grouping grouping.Mode

	// FeasibleOnly drops infeasible scores before grouping.
	// Default: true
	FeasibleOnly bool
}

// DefaultScoreConfig returns the default score job configuration.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		Concurrency:  3,
		Timeout:      30 * time.Second,
		Grouping:     grouping.ModeTime,
		FeasibleOnly: true,
	}
}

func (c ScoreConfig) withDefaults() ScoreConfig {
	def := DefaultScoreConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.Grouping == "" {
		c.Grouping = def.Grouping
	}
	return c
}
