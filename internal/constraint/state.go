package constraint

import (
	"fmt"

	"github.com/roach88/testsched/internal/calendar"
	"github.com/roach88/testsched/internal/graph"
	"github.com/roach88/testsched/internal/ir"
	"github.com/roach88/testsched/internal/resource"
)

// Mode selects time-mode or sequence-mode semantics.
type Mode int

const (
	// ModeTime places items on calendar intervals.
	ModeTime Mode = iota
	// ModeSequence places items at sequence positions.
	ModeSequence
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeSequence {
		return "sequence"
	}
	return "schedule"
}

// Limits bounds concurrency.
type Limits struct {
	MaxParallel         int
	MaxParallelPerPhase int
	MaxDailyStarts      int // 0 disables
	GroupExclusive      bool
}

// Placement is where an item landed: an interval in time mode, a 1-based
// position in sequence mode.
type Placement struct {
	Interval resource.Interval
	Position int
}

// slot resource names in the occupancy model.
const slotParallel = "parallel"

func slotPhase(phase string) string { return "phase:" + phase }
func slotGroup(group string) string { return "group:" + group }

// State is the partial placement of one run. It is owned by a single engine
// and mutated only through Commit and Resolve.
type State struct {
	mode      Mode
	graph     *graph.Graph
	phases    ir.PhaseOrder
	limits    Limits
	resources *resource.Model
	slots     *resource.Model

	placed      map[int]Placement
	unresolved  map[string]int
	phaseEnd    map[string]Placement
	dailyStarts map[int]int
}

// NewState creates an empty placement state over g.
func NewState(mode Mode, g *graph.Graph, phases ir.PhaseOrder, capacities ir.Capacities, limits Limits) *State {
	slotCaps := ir.Capacities{slotParallel: limits.MaxParallel}
	unresolved := make(map[string]int, len(phases))
	for _, id := range g.IDs() {
		item := g.Item(id)
		unresolved[item.Phase]++
		slotCaps[slotPhase(item.Phase)] = limits.MaxParallelPerPhase
		if limits.GroupExclusive && item.HasGroup() {
			slotCaps[slotGroup(item.Group)] = 1
		}
	}

	return &State{
		mode:        mode,
		graph:       g,
		phases:      phases,
		limits:      limits,
		resources:   resource.New(capacities),
		slots:       resource.New(slotCaps),
		placed:      make(map[int]Placement, g.Len()),
		unresolved:  unresolved,
		phaseEnd:    make(map[string]Placement, len(phases)),
		dailyStarts: make(map[int]int),
	}
}

// Mode returns the state's mode.
func (s *State) Mode() Mode { return s.mode }

// Graph returns the dependency graph.
func (s *State) Graph() *graph.Graph { return s.graph }

// Limits returns the concurrency limits.
func (s *State) Limits() Limits { return s.limits }

// Resources returns the resource timeline.
func (s *State) Resources() *resource.Model { return s.resources }

// Placed returns where id landed, if it has been placed.
func (s *State) Placed(id int) (Placement, bool) {
	p, ok := s.placed[id]
	return p, ok
}

// PlacedCount returns the number of committed placements.
func (s *State) PlacedCount() int { return len(s.placed) }

// Unresolved returns the number of items of phase neither placed nor in conflict.
func (s *State) Unresolved(phase string) int { return s.unresolved[phase] }

// PhaseBarrier reports whether every phase strictly before phase is resolved
// and, if so, the latest end (time mode) or position (sequence mode) among
// their placed items.
func (s *State) PhaseBarrier(phase string) (bool, Placement) {
	idx := s.phases.Index(phase)
	var barrier Placement
	for i := 0; i < idx; i++ {
		earlier := s.phases[i]
		if s.unresolved[earlier] > 0 {
			return false, barrier
		}
		end := s.phaseEnd[earlier]
		barrier.Interval.End = max(barrier.Interval.End, end.Interval.End)
		barrier.Position = max(barrier.Position, end.Position)
	}
	return true, barrier
}

// EarliestStart returns the first instant satisfying dependency finish times
// and phase ordering for item, and whether all of them are known.
func (s *State) EarliestStart(item *ir.TestItem) (int, bool) {
	ok, barrier := s.PhaseBarrier(item.Phase)
	if !ok {
		return 0, false
	}
	earliest := barrier.Interval.End
	for _, dep := range s.graph.Prerequisites(item.ID) {
		p, placed := s.placed[dep]
		if !placed {
			return 0, false
		}
		earliest = max(earliest, p.Interval.End)
	}
	return earliest, true
}

// slotDemands returns the occupancy demands item holds while active.
func (s *State) slotDemands(item *ir.TestItem) []ir.Demand {
	demands := []ir.Demand{
		{Name: slotParallel, Qty: 1},
		{Name: slotPhase(item.Phase), Qty: 1},
	}
	if s.limits.GroupExclusive && item.HasGroup() {
		demands = append(demands, ir.Demand{Name: slotGroup(item.Group), Qty: 1})
	}
	return demands
}

// Commit records a placement. In time mode it reserves the item's resources
// and concurrency slots over the interval; the caller must have checked the
// placement first.
func (s *State) Commit(item *ir.TestItem, p Placement) error {
	if _, dup := s.placed[item.ID]; dup {
		return ir.NewSchedulingError(fmt.Sprintf("item %d placed twice", item.ID), nil)
	}
	if s.mode == ModeTime {
		if err := s.resources.Reserve(item, p.Interval); err != nil {
			return ir.NewSchedulingError("commit resources", err)
		}
		if err := s.slots.ReserveDemands(item.ID, s.slotDemands(item), p.Interval); err != nil {
			return ir.NewSchedulingError("commit slots", err)
		}
		s.dailyStarts[calendar.Day(p.Interval.Start)]++
	}

	s.placed[item.ID] = p
	s.unresolved[item.Phase]--
	end := s.phaseEnd[item.Phase]
	end.Interval.End = max(end.Interval.End, p.Interval.End)
	end.Position = max(end.Position, p.Position)
	s.phaseEnd[item.Phase] = end
	return nil
}

// Resolve marks item as permanently unplaceable so it no longer blocks later phases.
func (s *State) Resolve(item *ir.TestItem) {
	if _, placed := s.placed[item.ID]; placed {
		return
	}
	s.unresolved[item.Phase]--
}
