package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/roach88/testsched/internal/config"
	"github.com/roach88/testsched/internal/dataset"
	"github.com/roach88/testsched/internal/engine"
	"github.com/roach88/testsched/internal/ir"
	"github.com/roach88/testsched/internal/planner"
)

// Harness executes one scenario against a fresh planner.
type Harness struct {
	scenario *Scenario
	planner  *planner.Planner
	logger   *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger routes planner logs to l. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// New loads the scenario's dataset and configuration into a planner.
// Input problems are returned joined.
func New(scenario *Scenario, opts ...Option) (*Harness, error) {
	h := &Harness{scenario: scenario}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cfg := config.Default()
	if scenario.Config != "" {
		loaded, err := config.Load(scenario.Config)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	ds, err := dataset.Load(scenario.Dataset)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	h.planner = planner.New(cfg, planner.WithLogger(h.logger))
	if errs := h.planner.LoadDataset(ds); len(errs) > 0 {
		return nil, fmt.Errorf("load dataset %s: %w", scenario.Dataset, errors.Join(errs...))
	}
	return h, nil
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Load dataset and configuration
// 2. Run the planner in the scenario's mode
// 3. Check the expect clause
// 4. Evaluate assertions
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	h, err := New(scenario)
	if err != nil {
		return nil, err
	}
	return h.Run(ctx)
}

// Run executes the scenario once and evaluates it.
func (h *Harness) Run(ctx context.Context) (*Result, error) {
	result, err := h.execute(ctx)
	if err != nil {
		return nil, err
	}

	h.checkExpect(result)

	actx := &AssertionContext{
		Graph:      h.planner.Graph(),
		Capacities: h.planner.Capacities(),
		Phases:     h.planner.Phases(),
		Rerun: func() (string, error) {
			again, err := h.execute(ctx)
			if err != nil {
				return "", err
			}
			return again.Hash, nil
		},
	}
	for _, msg := range EvaluateAssertions(result, h.scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// execute runs the planner and flattens its output into a Result.
func (h *Harness) execute(ctx context.Context) (*Result, error) {
	result := NewResult(h.scenario.Mode)
	var conflicts []engine.Conflict

	switch h.scenario.Mode {
	case ModeSequence:
		seq, err := h.planner.GenerateSequence(ctx)
		if err != nil {
			return nil, fmt.Errorf("generate sequence: %w", err)
		}
		result.Sequence = seq
		result.Success = seq.Success
		conflicts = seq.Conflicts
		for _, it := range seq.Items {
			result.Placements = append(result.Placements, Placement{
				ID:    it.ID,
				Item:  it.Name,
				Phase: it.Phase,
				Start: it.Sequence,
				End:   it.Sequence + 1,
				Group: it.ParallelGroup,
			})
		}
		if result.Hash, err = ir.ResultHash(seq); err != nil {
			return nil, err
		}
	default:
		sched, err := h.planner.SolveSchedule(ctx, h.scenario.MaxParallel)
		if err != nil {
			return nil, fmt.Errorf("solve schedule: %w", err)
		}
		result.Schedule = sched
		result.Success = sched.Success
		conflicts = sched.Conflicts
		for _, it := range sched.Items {
			if it.Status != engine.StatusScheduled {
				continue
			}
			result.Placements = append(result.Placements, Placement{
				ID:    it.ID,
				Item:  it.Name,
				Phase: it.Phase,
				Start: it.Start,
				End:   it.End,
			})
		}
		if result.Hash, err = ir.ResultHash(sched); err != nil {
			return nil, err
		}
	}

	for _, c := range conflicts {
		result.Conflicts = append(result.Conflicts, c.Item)
	}
	sort.Strings(result.Conflicts)
	return result, nil
}

func (h *Harness) checkExpect(result *Result) {
	expect := h.scenario.Expect
	if expect.Success != nil && *expect.Success != result.Success {
		result.AddError(fmt.Sprintf("expected success=%v, got %v (conflicts: %v)",
			*expect.Success, result.Success, result.Conflicts))
	}
	if expect.Conflicts != nil {
		want := append([]string(nil), expect.Conflicts...)
		sort.Strings(want)
		if !equalStrings(want, result.Conflicts) {
			result.AddError(fmt.Sprintf("expected conflicts %v, got %v", want, result.Conflicts))
		}
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
