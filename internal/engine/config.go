package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/testsched/internal/calendar"
	"github.com/roach88/testsched/internal/constraint"
	"github.com/roach88/testsched/internal/ir"
	"github.com/roach88/testsched/internal/priority"
)

// Default search bounds.
const (
	DefaultMaxLookaheadDays = 365
	DefaultMaxProbes        = 20000
)

// Config is the immutable engine configuration of one run.
type Config struct {
	Phases           ir.PhaseOrder
	Limits           constraint.Limits
	Calendar         calendar.Config
	Weights          priority.Weights
	MaxLookaheadDays int
	MaxProbes        int
}

// DefaultConfig returns the stock limits with the given phase order.
func DefaultConfig(phases ir.PhaseOrder) Config {
	return Config{
		Phases: phases,
		Limits: constraint.Limits{
			MaxParallel:         3,
			MaxParallelPerPhase: 3,
			MaxDailyStarts:      5,
			GroupExclusive:      true,
		},
		Calendar:         calendar.DefaultConfig(),
		Weights:          priority.DefaultWeights(),
		MaxLookaheadDays: DefaultMaxLookaheadDays,
		MaxProbes:        DefaultMaxProbes,
	}
}

// WithMaxParallel returns a copy of c with the global parallel bound replaced.
func (c Config) WithMaxParallel(n int) Config {
	c.Limits.MaxParallel = n
	return c
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	if len(c.Phases) == 0 {
		errs = append(errs, errors.New("phase order must not be empty"))
	}
	seen := make(map[string]bool, len(c.Phases))
	for _, p := range c.Phases {
		if seen[p] {
			errs = append(errs, fmt.Errorf("phase %q listed twice", p))
		}
		seen[p] = true
	}
	if c.Limits.MaxParallel < 1 {
		errs = append(errs, fmt.Errorf("max_parallel must be at least 1, got %d", c.Limits.MaxParallel))
	}
	if c.Limits.MaxParallelPerPhase < 1 {
		errs = append(errs, fmt.Errorf("max_parallel_per_phase must be at least 1, got %d", c.Limits.MaxParallelPerPhase))
	}
	if c.Limits.MaxDailyStarts < 0 {
		errs = append(errs, fmt.Errorf("max_daily_starts must not be negative, got %d", c.Limits.MaxDailyStarts))
	}
	if c.MaxLookaheadDays < 1 {
		errs = append(errs, fmt.Errorf("max_lookahead_days must be at least 1, got %d", c.MaxLookaheadDays))
	}
	if c.MaxProbes < 1 {
		errs = append(errs, fmt.Errorf("max_probes must be at least 1, got %d", c.MaxProbes))
	}
	if err := c.Calendar.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Weights.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
