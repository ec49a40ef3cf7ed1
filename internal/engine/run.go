package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/roach88/testsched/internal/calendar"
	"github.com/roach88/testsched/internal/constraint"
	"github.com/roach88/testsched/internal/graph"
	"github.com/roach88/testsched/internal/ir"
	"github.com/roach88/testsched/internal/priority"
)

// Option configures a Scheduler or Sequencer.
type Option func(*options)

type options struct {
	scorer   priority.Scorer
	checker  constraint.Checker
	logger   *slog.Logger
	observer Observer
}

// WithScorer injects a priority strategy. Default: priority.Calculator.
func WithScorer(s priority.Scorer) Option {
	return func(o *options) { o.scorer = s }
}

// WithChecker injects a constraint strategy. Default: constraint.StandardChecker.
func WithChecker(c constraint.Checker) Option {
	return func(o *options) { o.checker = c }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver registers placement event hooks.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.checker == nil {
		o.checker = constraint.NewChecker()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.observer == nil {
		o.observer = NopObserver{}
	}
	return o
}

// ValidatePhases checks that every item's phase appears in phases and that
// no dependency points from a later phase to an earlier one. Such an edge
// can never be honoured together with phase ordering.
func ValidatePhases(g *graph.Graph, phases ir.PhaseOrder) []error {
	var errs []error
	if len(phases) == 0 {
		return []error{ir.NewValidationError("phase_order", "must not be empty")}
	}
	for _, id := range g.IDs() {
		item := g.Item(id)
		if phases.Index(item.Phase) < 0 {
			errs = append(errs, ir.NewItemValidationError(id, "test_phase",
				"phase %q is not in the phase order %s", item.Phase, phases))
		}
	}
	for _, edge := range g.Edges() {
		from, to := g.Item(edge[0]), g.Item(edge[1])
		if phases.Before(to.Phase, from.Phase) {
			errs = append(errs, ir.NewItemValidationError(to.ID, "dependencies",
				"depends on %q from later phase %q", from.Name, from.Phase))
		}
	}
	return errs
}

// run is the mutable state of one engine invocation. Owned by one goroutine.
type run struct {
	mode      constraint.Mode
	cfg       Config
	graph     *graph.Graph
	opts      options
	scorer    priority.Scorer
	state     *constraint.State
	levels    map[int]int
	status    map[int]Status
	scores    map[int]float64
	conflicts []Conflict
	warnings  []string
	clock     *Clock
	trace     []Decision
}

func newRun(ctx context.Context, mode constraint.Mode, cfg Config, g *graph.Graph, capacities ir.Capacities, opts options) (*run, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if errs := ValidatePhases(g, cfg.Phases); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}

	scorer := opts.scorer
	if scorer == nil {
		calc, err := priority.NewCalculator(ctx, g, cfg.Phases, cfg.Weights)
		if err != nil {
			return nil, ir.NewSchedulingError("priority", err)
		}
		scorer = calc
	}

	status := make(map[int]Status, g.Len())
	for _, id := range g.IDs() {
		status[id] = StatusPending
	}

	return &run{
		mode:   mode,
		cfg:    cfg,
		graph:  g,
		opts:   opts,
		scorer: scorer,
		state:  constraint.NewState(mode, g, cfg.Phases, capacities, cfg.Limits),
		levels: levels,
		status: status,
		scores: make(map[int]float64, g.Len()),
		clock:  NewClock(),
	}, nil
}

// precheck records items that can never be placed before the loop starts.
func (r *run) precheck(cal *calendar.Manager) {
	for _, id := range r.graph.IDs() {
		if r.status[id] != StatusPending {
			continue
		}
		item := r.graph.Item(id)
		if err := r.state.Resources().Feasible(id, item.Demands()); err != nil {
			r.markConflict(item, constraint.ReasonResourceCapacity, constraint.ReasonNone, err.Error())
			continue
		}
		if cal != nil {
			if v := cal.Feasible(item.Duration); v != calendar.NoViolation {
				r.markConflict(item, constraint.ReasonCalendarSpan, constraint.ReasonNone,
					fmt.Sprintf("duration %d: %s", item.Duration, v))
			}
		}
	}
}

// place commits a placement and records it.
func (r *run) place(item *ir.TestItem, p constraint.Placement, score float64, probes int) error {
	if err := r.state.Commit(item, p); err != nil {
		return err
	}
	r.status[item.ID] = StatusScheduled
	r.scores[item.ID] = score
	r.trace = append(r.trace, Decision{
		Seq:    r.clock.Next(),
		ItemID: item.ID,
		Action: ActionPlaced,
		Score:  round4(score),
		Start:  p.Interval.Start,
		End:    p.Interval.End,
		Probes: probes,
	})
	r.opts.observer.ItemPlaced(r.mode, item, probes)
	r.opts.logger.Debug("item placed",
		slog.String("mode", r.mode.String()),
		slog.Int("item_id", item.ID),
		slog.String("item", item.Name),
		slog.Int("start", p.Interval.Start),
		slog.Int("end", p.Interval.End),
		slog.Int("position", p.Position),
		slog.Float64("score", score))
	return nil
}

// markConflict records item as unplaceable and cascades to every transitive
// dependent still pending.
func (r *run) markConflict(item *ir.TestItem, reason, last constraint.Reason, detail string) {
	r.conflict(item, reason, last, detail)
	for _, id := range r.graph.Descendants(item.ID) {
		if r.status[id] != StatusPending {
			continue
		}
		r.conflict(r.graph.Item(id), constraint.ReasonDependencyConflict, constraint.ReasonNone,
			fmt.Sprintf("requires %q which could not be placed", item.Name))
	}
}

func (r *run) conflict(item *ir.TestItem, reason, last constraint.Reason, detail string) {
	r.status[item.ID] = StatusConflict
	r.state.Resolve(item)
	r.conflicts = append(r.conflicts, newConflict(item, reason, last, detail))
	r.trace = append(r.trace, Decision{
		Seq:    r.clock.Next(),
		ItemID: item.ID,
		Action: ActionConflict,
		Reason: reason,
	})
	r.opts.observer.ItemConflicted(r.mode, item, reason)
	r.opts.logger.Debug("item conflict",
		slog.String("mode", r.mode.String()),
		slog.Int("item_id", item.ID),
		slog.String("item", item.Name),
		slog.String("reason", string(reason)),
		slog.String("detail", detail))
}

// pending returns the items still pending, by ascending id.
func (r *run) pending() []*ir.TestItem {
	var out []*ir.TestItem
	for _, id := range r.graph.IDs() {
		if r.status[id] == StatusPending {
			out = append(out, r.graph.Item(id))
		}
	}
	return out
}

// deadlock records every remaining pending item as a conflict.
func (r *run) deadlock() {
	stuck := r.pending()
	if len(stuck) == 0 {
		return
	}
	names := make([]string, len(stuck))
	for i, item := range stuck {
		names[i] = item.Name
		r.conflict(item, constraint.ReasonDeadlock, constraint.ReasonNone, "no progress possible")
	}
	r.warnings = append(r.warnings, fmt.Sprintf("deadlock: %d items could not be placed: %s",
		len(stuck), strings.Join(names, ", ")))
	r.opts.logger.Warn("placement deadlock", slog.Int("items", len(stuck)))
}

// staticRanks ranks every item by its score with no placement context.
func (r *run) staticRanks() map[int]int {
	type entry struct {
		id    int
		score float64
	}
	entries := make([]entry, 0, r.graph.Len())
	for _, id := range r.graph.IDs() {
		entries = append(entries, entry{id: id, score: r.scorer.Score(r.graph.Item(id), priority.Context{}).Total})
	}
	sort.Slice(entries, func(i, j int) bool {
		return priority.Before(entries[i].id, entries[i].score, entries[j].id, entries[j].score)
	})
	ranks := make(map[int]int, len(entries))
	for i, e := range entries {
		ranks[e.id] = i + 1
	}
	return ranks
}

func (r *run) conflictList() []Conflict {
	if r.conflicts == nil {
		return []Conflict{}
	}
	return r.conflicts
}

func (r *run) warningList() []string {
	if r.warnings == nil {
		return []string{}
	}
	return r.warnings
}
