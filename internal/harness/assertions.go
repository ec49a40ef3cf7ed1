package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/testsched/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the placements for debugging context.
type AssertionError struct {
	Type       string      // Assertion type for categorization
	Expected   string      // Human-readable expected outcome
	Actual     string      // Human-readable actual outcome
	Placements []Placement // Full plan for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nPlan:\n")
	for _, p := range e.Placements {
		fmt.Fprintf(&buf, "  %s [%d,%d)\n", p.Item, p.Start, p.End)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion[%d] (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertPrecedes:
		return assertPrecedes(result, a)
	case AssertNoOverlap:
		return assertNoOverlap(result, a)
	case AssertPhaseOrder:
		return assertPhaseOrder(result, actx)
	case AssertCapacity:
		return assertCapacity(result, actx)
	case AssertDependencies:
		return assertDependencies(result, actx)
	case AssertConflict:
		return assertConflict(result, a)
	case AssertDeterministic:
		return assertDeterministic(result, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// precedes reports whether a is finished before b begins. Sequence
// placements are unit-length so the same test covers both modes.
func precedes(a, b Placement) bool {
	return a.End <= b.Start
}

// together reports whether two placements run concurrently.
func together(result *Result, a, b Placement) bool {
	if result.Mode == ModeSequence {
		return a.Group == b.Group
	}
	return a.Start < b.End && b.Start < a.End
}

func assertPrecedes(result *Result, a Assertion) error {
	before, ok := result.Placement(a.Before)
	if !ok {
		return fmt.Errorf("item %q was not placed", a.Before)
	}
	after, ok := result.Placement(a.After)
	if !ok {
		return fmt.Errorf("item %q was not placed", a.After)
	}
	if precedes(before, after) {
		return nil
	}
	return &AssertionError{
		Type:       AssertPrecedes,
		Expected:   fmt.Sprintf("%s before %s", a.Before, a.After),
		Actual:     fmt.Sprintf("%s [%d,%d), %s [%d,%d)", a.Before, before.Start, before.End, a.After, after.Start, after.End),
		Placements: result.Placements,
	}
}

func assertNoOverlap(result *Result, a Assertion) error {
	placed := make([]Placement, 0, len(a.Items))
	for _, name := range a.Items {
		p, ok := result.Placement(name)
		if !ok {
			return fmt.Errorf("item %q was not placed", name)
		}
		placed = append(placed, p)
	}
	for i := range placed {
		for j := i + 1; j < len(placed); j++ {
			if together(result, placed[i], placed[j]) {
				return &AssertionError{
					Type:       AssertNoOverlap,
					Expected:   fmt.Sprintf("%s and %s never run together", placed[i].Item, placed[j].Item),
					Actual:     "they overlap",
					Placements: result.Placements,
				}
			}
		}
	}
	return nil
}

func assertPhaseOrder(result *Result, actx *AssertionContext) error {
	for _, a := range result.Placements {
		for _, b := range result.Placements {
			if actx.Phases.Before(a.Phase, b.Phase) && !precedes(a, b) {
				return &AssertionError{
					Type:       AssertPhaseOrder,
					Expected:   fmt.Sprintf("phase %s finished before %s starts", a.Phase, b.Phase),
					Actual:     fmt.Sprintf("%s [%d,%d) vs %s [%d,%d)", a.Item, a.Start, a.End, b.Item, b.Start, b.End),
					Placements: result.Placements,
				}
			}
		}
	}
	return nil
}

func assertCapacity(result *Result, actx *AssertionContext) error {
	demands := make(map[int][]ir.Demand, len(result.Placements))
	for _, p := range result.Placements {
		demands[p.ID] = actx.Graph.Item(p.ID).Demands()
	}

	// Every placement's start is a point where usage can peak; every group
	// member shares its start in sequence mode.
	for _, at := range result.Placements {
		usage := make(map[string]int)
		for _, p := range result.Placements {
			if p.ID != at.ID && !together(result, at, p) {
				continue
			}
			if result.Mode != ModeSequence && (p.Start > at.Start || p.End <= at.Start) {
				continue
			}
			for _, d := range demands[p.ID] {
				usage[d.Name] += d.Qty
			}
		}
		for name, used := range usage {
			capacity, constrained := actx.Capacities[name]
			if constrained && used > capacity {
				return &AssertionError{
					Type:       AssertCapacity,
					Expected:   fmt.Sprintf("%s used at most %d", name, capacity),
					Actual:     fmt.Sprintf("%d in use at %s [%d,%d)", used, at.Item, at.Start, at.End),
					Placements: result.Placements,
				}
			}
		}
	}
	return nil
}

func assertDependencies(result *Result, actx *AssertionContext) error {
	byID := make(map[int]Placement, len(result.Placements))
	for _, p := range result.Placements {
		byID[p.ID] = p
	}
	for _, p := range result.Placements {
		for _, dep := range actx.Graph.Prerequisites(p.ID) {
			prereq, ok := byID[dep]
			if !ok {
				return fmt.Errorf("%s was placed but its prerequisite %s was not",
					p.Item, actx.Graph.Item(dep).Name)
			}
			if !precedes(prereq, p) {
				return &AssertionError{
					Type:       AssertDependencies,
					Expected:   fmt.Sprintf("%s before %s", prereq.Item, p.Item),
					Actual:     fmt.Sprintf("%s [%d,%d), %s [%d,%d)", prereq.Item, prereq.Start, prereq.End, p.Item, p.Start, p.End),
					Placements: result.Placements,
				}
			}
		}
	}
	return nil
}

func assertConflict(result *Result, a Assertion) error {
	if result.Conflicted(a.Item) {
		return nil
	}
	return &AssertionError{
		Type:       AssertConflict,
		Expected:   fmt.Sprintf("%s in conflict", a.Item),
		Actual:     fmt.Sprintf("conflicts are %v", result.Conflicts),
		Placements: result.Placements,
	}
}

func assertDeterministic(result *Result, actx *AssertionContext) error {
	if actx.Rerun == nil {
		return fmt.Errorf("no rerun available")
	}
	hash, err := actx.Rerun()
	if err != nil {
		return fmt.Errorf("rerun: %w", err)
	}
	if hash != result.Hash {
		return &AssertionError{
			Type:       AssertDeterministic,
			Expected:   "result hash " + result.Hash,
			Actual:     "result hash " + hash,
			Placements: result.Placements,
		}
	}
	return nil
}
