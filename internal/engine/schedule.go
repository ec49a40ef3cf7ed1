package engine

import (
	"context"
	"log/slog"
	"sort"

	"github.com/roach88/testsched/internal/calendar"
	"github.com/roach88/testsched/internal/constraint"
	"github.com/roach88/testsched/internal/graph"
	"github.com/roach88/testsched/internal/ir"
	"github.com/roach88/testsched/internal/priority"
	"github.com/roach88/testsched/internal/resource"
)

// Scheduler is the time-mode engine: a greedy list scheduler assigning
// concrete calendar intervals.
type Scheduler struct {
	cfg        Config
	graph      *graph.Graph
	capacities ir.Capacities
	cal        *calendar.Manager
	opts       options
}

// NewScheduler creates a time-mode engine over g.
func NewScheduler(cfg Config, g *graph.Graph, capacities ir.Capacities, opts ...Option) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, ir.NewValidationError("config", "%v", err)
	}
	cal, err := calendar.New(cfg.Calendar)
	if err != nil {
		return nil, ir.NewValidationError("working_time", "%v", err)
	}
	return &Scheduler{
		cfg:        cfg,
		graph:      g,
		capacities: capacities,
		cal:        cal,
		opts:       buildOptions(opts),
	}, nil
}

// Calendar returns the scheduler's time manager.
func (s *Scheduler) Calendar() *calendar.Manager {
	return s.cal
}

// probeOutcome is the result of searching placements for one item.
type probeOutcome struct {
	interval resource.Interval
	probes   int
	ok       bool
	detail   string
	rejected constraint.Reason
}

// Solve runs the placement loop and returns the schedule. Fatal input
// problems (cycles, invalid phases) return an error before any placement;
// unplaceable items are recorded as conflicts in the result instead.
func (s *Scheduler) Solve(ctx context.Context) (*SchedulingResult, error) {
	r, err := newRun(ctx, constraint.ModeTime, s.cfg, s.graph, s.capacities, s.opts)
	if err != nil {
		return nil, err
	}
	r.precheck(s.cal)

	var last *ir.TestItem
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ready := s.ready(r)
		if len(ready) == 0 {
			r.deadlock()
			break
		}

		item, score := priority.Select(ready, r.scorer, priority.Context{Last: last})
		outcome := s.probe(r, item)
		if !outcome.ok {
			r.markConflict(item, constraint.ReasonHorizonExhausted, outcome.rejected, outcome.detail)
			continue
		}

		if err := r.place(item, constraint.Placement{Interval: outcome.interval}, score.Total, outcome.probes); err != nil {
			return nil, err
		}
		last = item
	}

	result := s.aggregate(r)
	s.opts.observer.RunFinished(constraint.ModeTime, result.Success, len(result.Items))
	s.opts.logger.Info("schedule solved",
		slog.Bool("success", result.Success),
		slog.Int("items", len(result.Items)),
		slog.Int("conflicts", len(result.Conflicts)),
		slog.Int("makespan_hours", result.MakespanHours))
	return result, nil
}

// ready returns pending items whose dependencies are scheduled and whose
// earlier phases are resolved, by ascending id.
func (s *Scheduler) ready(r *run) []*ir.TestItem {
	var out []*ir.TestItem
	for _, item := range r.pending() {
		if ok, _ := r.state.PhaseBarrier(item.Phase); !ok {
			continue
		}
		blocked := false
		for _, dep := range s.graph.Prerequisites(item.ID) {
			if r.status[dep] != StatusScheduled {
				blocked = true
				break
			}
		}
		if !blocked {
			out = append(out, item)
		}
	}
	return out
}

// probe searches successive candidate starts from the earliest instant
// allowed by dependencies and phase ordering.
func (s *Scheduler) probe(r *run, item *ir.TestItem) probeOutcome {
	earliest, known := r.state.EarliestStart(item)
	if !known {
		return probeOutcome{rejected: constraint.ReasonDependencyUnfinished, detail: "prerequisites not placed"}
	}
	limit := earliest + s.cfg.MaxLookaheadDays*calendar.HoursPerCalendarDay
	quota := NewProbeQuota(s.cfg.MaxProbes)

	var rejected constraint.Verdict
	t, ok := s.cal.EarliestFit(earliest, item.Duration, limit)
	for ok {
		if err := quota.Check(item.ID); err != nil {
			return probeOutcome{probes: quota.Current() - 1, rejected: rejected.Reason, detail: err.Error()}
		}
		iv := resource.Interval{Start: t, End: s.cal.AddWorkingDuration(t, item.Duration)}
		v := r.opts.checker.CanPlace(item, constraint.Candidate{Interval: iv}, r.state)
		if v.OK {
			return probeOutcome{interval: iv, probes: quota.Current(), ok: true}
		}
		rejected = v
		t, ok = s.cal.EarliestFit(t+1, item.Duration, limit)
	}

	detail := "no valid start within the search horizon from " + s.cal.Format(earliest)
	if rejected.Detail != "" {
		detail += ": " + rejected.Detail
	}
	return probeOutcome{probes: quota.Current(), rejected: rejected.Reason, detail: detail}
}

// aggregate builds the immutable result from the final run state.
func (s *Scheduler) aggregate(r *run) *SchedulingResult {
	items := make([]ScheduledItem, 0, s.graph.Len())
	makespan := 0
	busyItemHours := 0
	phaseStats := make(map[string]*PhaseSummary, len(s.cfg.Phases))
	for _, p := range s.cfg.Phases {
		phaseStats[p] = &PhaseSummary{Phase: p, Start: -1}
	}
	groups := make(map[string]int)

	for _, id := range s.graph.IDs() {
		item := s.graph.Item(id)
		si := ScheduledItem{
			ID:              id,
			Name:            item.Name,
			Phase:           item.Phase,
			Group:           item.Group,
			Duration:        item.Duration,
			DependencyLevel: r.levels[id],
			Status:          r.status[id],
			Score:           round4(r.scores[id]),
		}
		ps := phaseStats[item.Phase]
		ps.Items++
		if item.HasGroup() {
			groups[item.Group]++
		}

		if p, ok := r.state.Placed(id); ok {
			si.Start, si.End = p.Interval.Start, p.Interval.End
			si.StartLabel = s.cal.Format(si.Start)
			si.EndLabel = s.cal.Format(si.End)
			makespan = max(makespan, si.End)
			busyItemHours += s.cal.WorkingHoursBetween(si.Start, si.End)
			ps.Scheduled++
			if ps.Start < 0 || si.Start < ps.Start {
				ps.Start = si.Start
			}
			ps.End = max(ps.End, si.End)
		} else if si.Status == StatusConflict {
			ps.Conflicts++
		}
		items = append(items, si)
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		aPlaced, bPlaced := a.Status == StatusScheduled, b.Status == StatusScheduled
		if aPlaced != bPlaced {
			return aPlaced
		}
		if aPlaced && a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.ID < b.ID
	})

	workingHours := s.cal.WorkingHoursBetween(0, makespan)
	calendarDays := 0
	if makespan > 0 {
		calendarDays = calendar.Day(makespan-1) + 1
	}

	phases := make([]PhaseSummary, 0, len(s.cfg.Phases))
	for _, p := range s.cfg.Phases {
		ps := phaseStats[p]
		if ps.Items == 0 {
			continue
		}
		if ps.Start < 0 {
			ps.Start = 0
		}
		phases = append(phases, *ps)
	}

	utilization := make([]ResourceUtilization, 0)
	for _, name := range r.state.Resources().Constrained() {
		capacity, _ := r.state.Resources().Capacity(name)
		busy := 0
		for _, h := range r.state.Resources().Holds(name) {
			busy += h.Qty * s.cal.WorkingHoursBetween(h.Interval.Start, h.Interval.End)
		}
		available := capacity * workingHours
		ratio := 0.0
		if available > 0 {
			ratio = float64(busy) / float64(available)
		}
		utilization = append(utilization, ResourceUtilization{
			Resource:       name,
			Capacity:       capacity,
			BusyHours:      busy,
			AvailableHours: available,
			Utilization:    round4(ratio),
		})
	}

	efficiency := 0.0
	if workingHours > 0 {
		efficiency = float64(busyItemHours) / float64(workingHours) / float64(s.cfg.Limits.MaxParallel)
	}

	trace := r.trace
	if trace == nil {
		trace = []Decision{}
	}

	return &SchedulingResult{
		Version:            ir.ResultVersion,
		Success:            len(r.conflicts) == 0,
		Items:              items,
		MakespanHours:      makespan,
		WorkingHours:       workingHours,
		CalendarDays:       calendarDays,
		Phases:             phases,
		Groups:             sortedCounts(groups),
		Utilization:        utilization,
		ParallelEfficiency: round4(efficiency),
		MaxParallel:        s.cfg.Limits.MaxParallel,
		Conflicts:          r.conflictList(),
		Warnings:           r.warningList(),
		Trace:              trace,
	}
}
