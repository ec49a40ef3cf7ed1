package harness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/testsched/internal/graph"
	"github.com/roach88/testsched/internal/ir"
	"github.com/roach88/testsched/internal/testutil"
)

// fixture builds an assertion context over three items sharing a
// capacity-1 instrument, with B depending on A.
func fixture(t *testing.T) *AssertionContext {
	t.Helper()
	items := []ir.TestItem{
		testutil.NewItem(1, "A", "P1", 2, testutil.WithInstruments("scope")),
		testutil.NewItem(2, "B", "P2", 2, testutil.WithInstruments("scope")),
		testutil.NewItem(3, "C", "P2", 2),
	}
	g, err := graph.Build(testutil.Pointers(items), map[string][]string{"B": {"A"}})
	require.NoError(t, err)
	return &AssertionContext{
		Graph:      g,
		Capacities: ir.Capacities{"scope": 1},
		Phases:     ir.PhaseOrder{"P1", "P2"},
	}
}

func timeResult(placements ...Placement) *Result {
	r := NewResult(ModeSchedule)
	r.Placements = placements
	return r
}

// TestEvaluate_ValidPlan tests that a correct plan passes every assertion.
func TestEvaluate_ValidPlan(t *testing.T) {
	actx := fixture(t)
	actx.Rerun = func() (string, error) { return "h", nil }
	r := timeResult(
		Placement{ID: 1, Item: "A", Phase: "P1", Start: 0, End: 2},
		Placement{ID: 2, Item: "B", Phase: "P2", Start: 2, End: 4},
		Placement{ID: 3, Item: "C", Phase: "P2", Start: 2, End: 4},
	)
	r.Hash = "h"

	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertPrecedes, Before: "A", After: "B"},
		{Type: AssertNoOverlap, Items: []string{"A", "B"}},
		{Type: AssertPhaseOrder},
		{Type: AssertCapacity},
		{Type: AssertDependencies},
		{Type: AssertDeterministic},
	}, actx)
	assert.Empty(t, errs)
}

// TestEvaluate_Violations tests that each assertion detects its violation.
func TestEvaluate_Violations(t *testing.T) {
	actx := fixture(t)
	// A and B overlap on the single scope, B starts before A ends, and C
	// of the later phase starts before A finishes.
	r := timeResult(
		Placement{ID: 1, Item: "A", Phase: "P1", Start: 0, End: 2},
		Placement{ID: 2, Item: "B", Phase: "P2", Start: 1, End: 3},
		Placement{ID: 3, Item: "C", Phase: "P2", Start: 0, End: 2},
	)

	tests := []Assertion{
		{Type: AssertPrecedes, Before: "A", After: "B"},
		{Type: AssertNoOverlap, Items: []string{"A", "B"}},
		{Type: AssertPhaseOrder},
		{Type: AssertCapacity},
		{Type: AssertDependencies},
		{Type: AssertConflict, Item: "C"},
	}
	for _, a := range tests {
		t.Run(a.Type, func(t *testing.T) {
			errs := EvaluateAssertions(r, []Assertion{a}, actx)
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], "Assertion failed: "+a.Type)
		})
	}
}

// TestEvaluate_Unplaced tests references to items that were not placed.
func TestEvaluate_Unplaced(t *testing.T) {
	actx := fixture(t)
	r := timeResult(Placement{ID: 2, Item: "B", Phase: "P2", Start: 0, End: 2})
	r.Conflicts = []string{"A"}

	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertPrecedes, Before: "A", After: "B"},
		{Type: AssertNoOverlap, Items: []string{"A", "B"}},
		{Type: AssertDependencies},
		{Type: AssertConflict, Item: "A"},
	}, actx)
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], `item "A" was not placed`)
	assert.Contains(t, errs[1], `item "A" was not placed`)
	assert.Contains(t, errs[2], "prerequisite A was not")
}

// TestEvaluate_SequenceGroups tests sequence-mode overlap and capacity.
func TestEvaluate_SequenceGroups(t *testing.T) {
	actx := fixture(t)
	r := NewResult(ModeSequence)
	r.Placements = []Placement{
		{ID: 1, Item: "A", Phase: "P1", Start: 1, End: 2, Group: 1},
		{ID: 3, Item: "C", Phase: "P2", Start: 2, End: 3, Group: 2},
		{ID: 2, Item: "B", Phase: "P2", Start: 3, End: 4, Group: 2},
	}
	assert.Empty(t, EvaluateAssertions(r, []Assertion{
		{Type: AssertNoOverlap, Items: []string{"A", "B"}},
		{Type: AssertCapacity},
		{Type: AssertDependencies},
		{Type: AssertPhaseOrder},
	}, actx))

	r.Placements[0].Group = 2
	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertNoOverlap, Items: []string{"A", "B"}},
		{Type: AssertCapacity},
	}, actx)
	assert.Len(t, errs, 2)
}

// TestEvaluate_Deterministic tests hash comparison and rerun failures.
func TestEvaluate_Deterministic(t *testing.T) {
	r := timeResult()
	r.Hash = "one"

	actx := &AssertionContext{Rerun: func() (string, error) { return "two", nil }}
	errs := EvaluateAssertions(r, []Assertion{{Type: AssertDeterministic}}, actx)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "result hash two")

	actx.Rerun = func() (string, error) { return "", errors.New("boom") }
	errs = EvaluateAssertions(r, []Assertion{{Type: AssertDeterministic}}, actx)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "rerun: boom")

	errs = EvaluateAssertions(r, []Assertion{{Type: AssertDeterministic}}, &AssertionContext{})
	require.Len(t, errs, 1)
}

// TestAssertionError_Format tests the error layout.
func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:       AssertPrecedes,
		Expected:   "A before B",
		Actual:     "B first",
		Placements: []Placement{{Item: "A", Start: 0, End: 2}},
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: precedes")
	assert.Contains(t, msg, "Expected: A before B")
	assert.Contains(t, msg, "Actual: B first")
	assert.Contains(t, msg, "A [0,2)")
}
