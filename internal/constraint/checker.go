// Package constraint decides whether an item may be placed at a candidate
// interval or sequence position given the partial placement so far.
package constraint

import (
	"fmt"

	"github.com/roach88/testsched/internal/calendar"
	"github.com/roach88/testsched/internal/ir"
	"github.com/roach88/testsched/internal/resource"
)

// Reason is a stable code explaining why a placement was rejected.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonDependencyUnfinished Reason = "DEPENDENCY_UNFINISHED"
	ReasonPhaseBlocked         Reason = "PHASE_BLOCKED"
	ReasonResourceCapacity     Reason = "RESOURCE_CAPACITY"
	ReasonParallelLimit        Reason = "PARALLEL_LIMIT"
	ReasonPhaseParallelLimit   Reason = "PHASE_PARALLEL_LIMIT"
	ReasonGroupBusy            Reason = "GROUP_BUSY"
	ReasonDailyLimit           Reason = "DAILY_LIMIT"
	ReasonCalendarSpan         Reason = "CALENDAR_SPAN"
	ReasonDependencyConflict   Reason = "DEPENDENCY_CONFLICT"
	ReasonHorizonExhausted     Reason = "HORIZON_EXHAUSTED"
	ReasonDeadlock             Reason = "DEADLOCK"
)

// Verdict is the outcome of a placement check.
type Verdict struct {
	OK     bool
	Reason Reason
	Detail string
}

// Pass is the successful verdict.
func Pass() Verdict {
	return Verdict{OK: true}
}

// Fail builds a rejecting verdict.
func Fail(reason Reason, format string, args ...any) Verdict {
	return Verdict{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Candidate is a proposed placement. Time mode uses Interval; sequence mode
// uses Position and the Companions already sharing the parallel group.
type Candidate struct {
	Interval   resource.Interval
	Position   int
	Companions []*ir.TestItem
}

// Checker decides whether item may be placed at c given s.
type Checker interface {
	CanPlace(item *ir.TestItem, c Candidate, s *State) Verdict
}

// StandardChecker applies, in order: dependency, phase ordering, resource
// capacity, parallelism, group exclusivity and the daily start cap.
// The first failure short-circuits.
type StandardChecker struct{}

// NewChecker returns the standard rule set.
func NewChecker() Checker {
	return StandardChecker{}
}

// CanPlace implements Checker.
func (StandardChecker) CanPlace(item *ir.TestItem, c Candidate, s *State) Verdict {
	checks := []func(*ir.TestItem, Candidate, *State) Verdict{
		checkDependencies,
		checkPhaseOrder,
		checkResources,
		checkParallelism,
		checkGroup,
		checkDailyStarts,
	}
	for _, check := range checks {
		if v := check(item, c, s); !v.OK {
			return v
		}
	}
	return Pass()
}

func checkDependencies(item *ir.TestItem, c Candidate, s *State) Verdict {
	for _, dep := range s.graph.Prerequisites(item.ID) {
		p, ok := s.placed[dep]
		if !ok {
			return Fail(ReasonDependencyUnfinished, "dependency %d not placed", dep)
		}
		if s.mode == ModeTime && p.Interval.End > c.Interval.Start {
			return Fail(ReasonDependencyUnfinished, "dependency %d finishes at %d after start %d",
				dep, p.Interval.End, c.Interval.Start)
		}
		if s.mode == ModeSequence && p.Position >= c.Position {
			return Fail(ReasonDependencyUnfinished, "dependency %d at position %d not before %d",
				dep, p.Position, c.Position)
		}
	}
	for _, other := range c.Companions {
		if related(s, item.ID, other.ID) {
			return Fail(ReasonDependencyUnfinished, "item %d depends on companion %d", item.ID, other.ID)
		}
	}
	return Pass()
}

func related(s *State, a, b int) bool {
	for _, id := range s.graph.Prerequisites(a) {
		if id == b {
			return true
		}
	}
	for _, id := range s.graph.Prerequisites(b) {
		if id == a {
			return true
		}
	}
	return false
}

func checkPhaseOrder(item *ir.TestItem, c Candidate, s *State) Verdict {
	ok, barrier := s.PhaseBarrier(item.Phase)
	if !ok {
		return Fail(ReasonPhaseBlocked, "an earlier phase than %q is still pending", item.Phase)
	}
	if s.mode == ModeTime && c.Interval.Start < barrier.Interval.End {
		return Fail(ReasonPhaseBlocked, "earlier phases finish at %d after start %d",
			barrier.Interval.End, c.Interval.Start)
	}
	if s.mode == ModeSequence && c.Position <= barrier.Position {
		return Fail(ReasonPhaseBlocked, "earlier phases end at position %d", barrier.Position)
	}
	for _, other := range c.Companions {
		if other.Phase != item.Phase {
			return Fail(ReasonPhaseBlocked, "companion %d belongs to phase %q", other.ID, other.Phase)
		}
	}
	return Pass()
}

func checkResources(item *ir.TestItem, c Candidate, s *State) Verdict {
	if s.mode == ModeTime {
		if err := s.resources.Check(item.ID, item.Demands(), c.Interval); err != nil {
			return Verdict{Reason: ReasonResourceCapacity, Detail: err.Error()}
		}
		return Pass()
	}

	load := make(map[string]int)
	for _, other := range c.Companions {
		for _, d := range other.Demands() {
			load[d.Name] += d.Qty
		}
	}
	for _, d := range item.Demands() {
		capacity, constrained := s.resources.Capacity(d.Name)
		if constrained && load[d.Name]+d.Qty > capacity {
			return Fail(ReasonResourceCapacity, "%s: group needs %d of %d",
				d.Name, load[d.Name]+d.Qty, capacity)
		}
	}
	return Pass()
}

func checkParallelism(item *ir.TestItem, c Candidate, s *State) Verdict {
	if s.mode == ModeTime {
		if s.slots.ProjectedUsage(slotParallel, c.Interval) >= s.limits.MaxParallel {
			return Fail(ReasonParallelLimit, "%d items already active", s.limits.MaxParallel)
		}
		if s.slots.ProjectedUsage(slotPhase(item.Phase), c.Interval) >= s.limits.MaxParallelPerPhase {
			return Fail(ReasonPhaseParallelLimit, "%d items of %q already active",
				s.limits.MaxParallelPerPhase, item.Phase)
		}
		return Pass()
	}

	if len(c.Companions)+1 > s.limits.MaxParallel {
		return Fail(ReasonParallelLimit, "group already holds %d items", len(c.Companions))
	}
	samePhase := 0
	for _, other := range c.Companions {
		if other.Phase == item.Phase {
			samePhase++
		}
	}
	if samePhase+1 > s.limits.MaxParallelPerPhase {
		return Fail(ReasonPhaseParallelLimit, "group already holds %d items of %q", samePhase, item.Phase)
	}
	return Pass()
}

func checkGroup(item *ir.TestItem, c Candidate, s *State) Verdict {
	if !s.limits.GroupExclusive || !item.HasGroup() {
		return Pass()
	}
	if s.mode == ModeTime {
		if s.slots.ProjectedUsage(slotGroup(item.Group), c.Interval) > 0 {
			return Fail(ReasonGroupBusy, "group %q already active", item.Group)
		}
		return Pass()
	}
	for _, other := range c.Companions {
		if other.Group == item.Group {
			return Fail(ReasonGroupBusy, "companion %d shares group %q", other.ID, item.Group)
		}
	}
	return Pass()
}

func checkDailyStarts(item *ir.TestItem, c Candidate, s *State) Verdict {
	if s.mode != ModeTime || s.limits.MaxDailyStarts <= 0 {
		return Pass()
	}
	day := calendar.Day(c.Interval.Start)
	if s.dailyStarts[day] >= s.limits.MaxDailyStarts {
		return Fail(ReasonDailyLimit, "%d items already start on day %d", s.dailyStarts[day], day)
	}
	return Pass()
}
