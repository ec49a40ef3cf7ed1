package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/testsched/internal/ir"
)

func items(names ...string) []*ir.TestItem {
	out := make([]*ir.TestItem, len(names))
	for i, name := range names {
		out[i] = &ir.TestItem{ID: i + 1, Name: name, Phase: "P", Duration: 1}
	}
	return out
}

// TestBuildResolvesNames tests adjacency construction from a name-keyed map.
func TestBuildResolvesNames(t *testing.T) {
	g, err := Build(items("A", "B", "C"), map[string][]string{
		"C": {"A", "B", "A"},
		"B": {"A"},
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, g.Prerequisites(3))
	assert.Equal(t, []int{2, 3}, g.Dependents(1))
	assert.Equal(t, [][2]int{{1, 2}, {1, 3}, {2, 3}}, g.Edges())

	id, ok := g.Lookup("B")
	assert.True(t, ok)
	assert.Equal(t, 2, id)
}

// TestBuildUnknownReference tests that unresolved names are validation errors.
func TestBuildUnknownReference(t *testing.T) {
	_, err := Build(items("A", "B"), map[string][]string{
		"B": {"Z"},
		"Y": {"A"},
	})
	require.Error(t, err)
	assert.True(t, ir.IsValidationError(err))
	assert.Contains(t, err.Error(), `unknown dependency "Z"`)
	assert.Contains(t, err.Error(), `unknown item "Y"`)
}

// TestBuildDuplicates tests duplicate ids and names.
func TestBuildDuplicates(t *testing.T) {
	list := items("A", "B")
	list = append(list, &ir.TestItem{ID: 1, Name: "C", Duration: 1})
	list = append(list, &ir.TestItem{ID: 9, Name: "A", Duration: 1})

	_, err := Build(list, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id")
	assert.Contains(t, err.Error(), `name "A" already used by item 1`)
}

// TestDetectCycle tests that A→B→C→A is reported in traversal order.
func TestDetectCycle(t *testing.T) {
	g, err := Build(items("A", "B", "C", "D"), map[string][]string{
		"B": {"A"},
		"C": {"B"},
		"A": {"C"},
		"D": {"A"},
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, g.DetectCycle())

	err = g.Validate()
	require.Error(t, err)
	var cycleErr *ir.CircularDependencyError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"A", "B", "C"}, cycleErr.Path)

	_, err = g.Levels()
	assert.True(t, ir.IsCircularDependencyError(err))
}

// TestDetectSelfCycle tests an item depending on itself.
func TestDetectSelfCycle(t *testing.T) {
	g, err := Build(items("A"), map[string][]string{"A": {"A"}})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, g.DetectCycle())
}

// TestDetectCycleAcyclic tests a diamond graph.
func TestDetectCycleAcyclic(t *testing.T) {
	g, err := Build(items("A", "B", "C", "D"), map[string][]string{
		"B": {"A"},
		"C": {"A"},
		"D": {"B", "C"},
	})
	require.NoError(t, err)
	assert.Nil(t, g.DetectCycle())
	assert.NoError(t, g.Validate())
}

// TestDetectCycleDeepChain tests that a long chain does not exhaust the stack.
func TestDetectCycleDeepChain(t *testing.T) {
	const n = 20000
	names := make([]string, n)
	deps := make(map[string][]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("T%05d", i)
		if i > 0 {
			deps[names[i]] = []string{names[i-1]}
		}
	}
	g, err := Build(items(names...), deps)
	require.NoError(t, err)

	assert.Nil(t, g.DetectCycle())
	levels, err := g.Levels()
	require.NoError(t, err)
	assert.Equal(t, n-1, levels[n])
}

// TestLevelsLongestChain tests that level is the longest chain, not the shortest.
func TestLevelsLongestChain(t *testing.T) {
	g, err := Build(items("A", "B", "C", "D"), map[string][]string{
		"B": {"A"},
		"C": {"B"},
		"D": {"A", "C"},
	})
	require.NoError(t, err)

	levels, err := g.Levels()
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 0, 2: 1, 3: 2, 4: 3}, levels)
	assert.Equal(t, 3, g.Level(4))
}

// TestDescendantCount tests transitive dependents counting.
func TestDescendantCount(t *testing.T) {
	g, err := Build(items("A", "B", "C", "D", "E"), map[string][]string{
		"B": {"A"},
		"C": {"A"},
		"D": {"B", "C"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, g.DescendantCount(1))
	assert.Equal(t, 1, g.DescendantCount(2))
	assert.Equal(t, 0, g.DescendantCount(4))
	assert.Equal(t, 0, g.DescendantCount(5))
	assert.Equal(t, []int{2, 3, 4}, g.Descendants(1))
}

// TestTopologicalOrderPrefersSmallestID tests the deterministic Kahn order.
func TestTopologicalOrderPrefersSmallestID(t *testing.T) {
	g, err := Build(items("A", "B", "C", "D"), map[string][]string{
		"A": {"D"},
	})
	require.NoError(t, err)

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4, 1}, order)
}
