package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/testsched/internal/graph"
	"github.com/roach88/testsched/internal/ir"
	"github.com/roach88/testsched/internal/resource"
)

var phases = ir.PhaseOrder{"集成测试", "系统测试"}

type fixture struct {
	items map[string]*ir.TestItem
	graph *graph.Graph
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	monitor := []ir.Demand{{Name: "性能监控仪", Qty: 1}}
	list := []*ir.TestItem{
		{ID: 1, Name: "A", Phase: "集成测试", Group: "g1", Duration: 4},
		{ID: 2, Name: "B", Phase: "集成测试", Group: "g1", Duration: 4},
		{ID: 3, Name: "C", Phase: "集成测试", Group: "g2", Duration: 4, Instruments: monitor},
		{ID: 4, Name: "D", Phase: "集成测试", Group: "g3", Duration: 4, Instruments: monitor},
		{ID: 5, Name: "E", Phase: "系统测试", Group: "g4", Duration: 2},
		{ID: 6, Name: "F", Phase: "集成测试", Group: "g5", Duration: 2},
	}
	g, err := graph.Build(list, map[string][]string{"F": {"A"}})
	require.NoError(t, err)

	byName := make(map[string]*ir.TestItem, len(list))
	for _, item := range list {
		byName[item.Name] = item
	}
	return &fixture{items: byName, graph: g}
}

func (f *fixture) state(mode Mode, limits Limits) *State {
	return NewState(mode, f.graph, phases, ir.Capacities{"性能监控仪": 1}, limits)
}

func iv(start, end int) Candidate {
	return Candidate{Interval: resource.Interval{Start: start, End: end}}
}

var wide = Limits{MaxParallel: 10, MaxParallelPerPhase: 10, GroupExclusive: true}

// TestCheckDependencyTimeMode tests finish-before-start.
func TestCheckDependencyTimeMode(t *testing.T) {
	f := newFixture(t)
	s := f.state(ModeTime, wide)
	checker := NewChecker()

	v := checker.CanPlace(f.items["F"], iv(0, 2), s)
	assert.Equal(t, ReasonDependencyUnfinished, v.Reason)

	require.NoError(t, s.Commit(f.items["A"], Placement{Interval: resource.Interval{Start: 0, End: 4}}))
	v = checker.CanPlace(f.items["F"], iv(2, 4), s)
	assert.Equal(t, ReasonDependencyUnfinished, v.Reason)

	v = checker.CanPlace(f.items["F"], iv(4, 6), s)
	assert.True(t, v.OK, v.Detail)
}

// TestCheckPhaseOrder tests that later phases wait for earlier ones.
func TestCheckPhaseOrder(t *testing.T) {
	f := newFixture(t)
	s := f.state(ModeTime, wide)
	checker := NewChecker()

	v := checker.CanPlace(f.items["E"], iv(100, 102), s)
	assert.Equal(t, ReasonPhaseBlocked, v.Reason)

	end := 0
	for _, name := range []string{"A", "B", "C", "D", "F"} {
		require.NoError(t, s.Commit(f.items[name], Placement{Interval: resource.Interval{Start: end, End: end + 4}}))
		end += 4
	}
	ok, barrier := s.PhaseBarrier("系统测试")
	require.True(t, ok)
	assert.Equal(t, 20, barrier.Interval.End)

	v = checker.CanPlace(f.items["E"], iv(19, 21), s)
	assert.Equal(t, ReasonPhaseBlocked, v.Reason)
	v = checker.CanPlace(f.items["E"], iv(20, 22), s)
	assert.True(t, v.OK, v.Detail)
}

// TestResolveUnblocksPhase tests that conflicts do not block later phases.
func TestResolveUnblocksPhase(t *testing.T) {
	f := newFixture(t)
	s := f.state(ModeTime, wide)
	for _, name := range []string{"A", "B", "C", "D", "F"} {
		s.Resolve(f.items[name])
	}
	ok, barrier := s.PhaseBarrier("系统测试")
	assert.True(t, ok)
	assert.Equal(t, 0, barrier.Interval.End)
	assert.Equal(t, 0, s.Unresolved("集成测试"))
}

// TestCheckResourceTimeMode tests capacity over overlapping intervals.
func TestCheckResourceTimeMode(t *testing.T) {
	f := newFixture(t)
	s := f.state(ModeTime, wide)
	checker := NewChecker()

	require.NoError(t, s.Commit(f.items["C"], Placement{Interval: resource.Interval{Start: 0, End: 4}}))
	v := checker.CanPlace(f.items["D"], iv(2, 6), s)
	assert.Equal(t, ReasonResourceCapacity, v.Reason)
	assert.True(t, checker.CanPlace(f.items["D"], iv(4, 8), s).OK)
}

// TestCheckParallelLimits tests global and per-phase bounds.
func TestCheckParallelLimits(t *testing.T) {
	f := newFixture(t)
	checker := NewChecker()

	s := f.state(ModeTime, Limits{MaxParallel: 1, MaxParallelPerPhase: 5})
	require.NoError(t, s.Commit(f.items["A"], Placement{Interval: resource.Interval{Start: 0, End: 4}}))
	assert.Equal(t, ReasonParallelLimit, checker.CanPlace(f.items["C"], iv(1, 5), s).Reason)

	s = f.state(ModeTime, Limits{MaxParallel: 5, MaxParallelPerPhase: 1})
	require.NoError(t, s.Commit(f.items["A"], Placement{Interval: resource.Interval{Start: 0, End: 4}}))
	assert.Equal(t, ReasonPhaseParallelLimit, checker.CanPlace(f.items["C"], iv(1, 5), s).Reason)
}

// TestCheckGroupExclusive tests that one group never runs twice at once.
func TestCheckGroupExclusive(t *testing.T) {
	f := newFixture(t)
	checker := NewChecker()

	s := f.state(ModeTime, wide)
	require.NoError(t, s.Commit(f.items["A"], Placement{Interval: resource.Interval{Start: 0, End: 4}}))
	assert.Equal(t, ReasonGroupBusy, checker.CanPlace(f.items["B"], iv(2, 6), s).Reason)
	assert.True(t, checker.CanPlace(f.items["B"], iv(4, 8), s).OK)

	lenient := wide
	lenient.GroupExclusive = false
	s = f.state(ModeTime, lenient)
	require.NoError(t, s.Commit(f.items["A"], Placement{Interval: resource.Interval{Start: 0, End: 4}}))
	assert.True(t, checker.CanPlace(f.items["B"], iv(2, 6), s).OK)
}

// TestCheckDailyStarts tests the daily start cap.
func TestCheckDailyStarts(t *testing.T) {
	f := newFixture(t)
	limits := wide
	limits.MaxDailyStarts = 1
	s := f.state(ModeTime, limits)
	checker := NewChecker()

	require.NoError(t, s.Commit(f.items["A"], Placement{Interval: resource.Interval{Start: 0, End: 4}}))
	assert.Equal(t, ReasonDailyLimit, checker.CanPlace(f.items["C"], iv(4, 8), s).Reason)
	assert.True(t, checker.CanPlace(f.items["C"], iv(24, 28), s).OK)
}

// TestCheckSequenceMode tests position ordering and group packing.
func TestCheckSequenceMode(t *testing.T) {
	f := newFixture(t)
	s := f.state(ModeSequence, Limits{MaxParallel: 2, MaxParallelPerPhase: 2, GroupExclusive: true})
	checker := NewChecker()

	require.NoError(t, s.Commit(f.items["A"], Placement{Position: 1}))
	assert.Equal(t, ReasonDependencyUnfinished,
		checker.CanPlace(f.items["F"], Candidate{Position: 1}, s).Reason)
	assert.True(t, checker.CanPlace(f.items["F"], Candidate{Position: 2}, s).OK)

	c, d, b := f.items["C"], f.items["D"], f.items["B"]
	assert.Equal(t, ReasonResourceCapacity,
		checker.CanPlace(d, Candidate{Position: 3, Companions: []*ir.TestItem{c}}, s).Reason)
	assert.Equal(t, ReasonGroupBusy,
		checker.CanPlace(b, Candidate{Position: 3, Companions: []*ir.TestItem{f.items["A"]}}, s).Reason)
	assert.Equal(t, ReasonParallelLimit,
		checker.CanPlace(b, Candidate{Position: 3, Companions: []*ir.TestItem{c, f.items["F"]}}, s).Reason)
	assert.Equal(t, ReasonDependencyUnfinished,
		checker.CanPlace(f.items["F"], Candidate{Position: 3, Companions: []*ir.TestItem{f.items["A"]}}, s).Reason)
}

// TestCommitTwiceFails tests that a double placement is an engine fault.
func TestCommitTwiceFails(t *testing.T) {
	f := newFixture(t)
	s := f.state(ModeSequence, wide)
	require.NoError(t, s.Commit(f.items["A"], Placement{Position: 1}))
	err := s.Commit(f.items["A"], Placement{Position: 2})
	assert.Equal(t, ir.ErrCodeScheduling, ir.CodeOf(err))
}

// TestEarliestStart tests dependency and phase driven earliest starts.
func TestEarliestStart(t *testing.T) {
	f := newFixture(t)
	s := f.state(ModeTime, wide)

	_, known := s.EarliestStart(f.items["F"])
	assert.False(t, known)

	require.NoError(t, s.Commit(f.items["A"], Placement{Interval: resource.Interval{Start: 0, End: 4}}))
	start, known := s.EarliestStart(f.items["F"])
	assert.True(t, known)
	assert.Equal(t, 4, start)
}
