// Package graph builds and analyses the precedence DAG over test items.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/testsched/internal/ir"
)

// Graph is the precedence DAG. An edge A→B means B requires A finished first.
// Adjacency lists are kept sorted by id so every traversal is deterministic.
type Graph struct {
	items      map[int]*ir.TestItem
	byName     map[string]int
	ids        []int
	prereqs    map[int][]int
	dependents map[int][]int

	levels      map[int]int
	descendants map[int]int
}

// Build constructs the graph from items and a dependency map keyed by item name.
// Every unresolved name is reported as a ValidationError; the errors are joined.
func Build(items []*ir.TestItem, dependencies map[string][]string) (*Graph, error) {
	g := &Graph{
		items:      make(map[int]*ir.TestItem, len(items)),
		byName:     make(map[string]int, len(items)),
		prereqs:    make(map[int][]int, len(items)),
		dependents: make(map[int][]int, len(items)),
	}

	var errs []error
	for _, item := range items {
		if _, dup := g.items[item.ID]; dup {
			errs = append(errs, ir.NewItemValidationError(item.ID, "test_id", "duplicate id"))
			continue
		}
		if other, dup := g.byName[item.Name]; dup {
			errs = append(errs, ir.NewItemValidationError(item.ID, "test_item",
				"name %q already used by item %d", item.Name, other))
			continue
		}
		g.items[item.ID] = item
		g.byName[item.Name] = item.ID
		g.ids = append(g.ids, item.ID)
	}
	sort.Ints(g.ids)

	names := make([]string, 0, len(dependencies))
	for name := range dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		to, ok := g.byName[name]
		if !ok {
			errs = append(errs, ir.NewValidationError("dependencies",
				"unknown item %q", name))
			continue
		}
		seen := make(map[int]bool)
		for _, prereqName := range dependencies[name] {
			from, ok := g.byName[prereqName]
			if !ok {
				errs = append(errs, ir.NewItemValidationError(to, "dependencies",
					"unknown dependency %q", prereqName))
				continue
			}
			if seen[from] {
				continue
			}
			seen[from] = true
			g.prereqs[to] = append(g.prereqs[to], from)
			g.dependents[from] = append(g.dependents[from], to)
		}
	}

	for _, id := range g.ids {
		sort.Ints(g.prereqs[id])
		sort.Ints(g.dependents[id])
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return g, nil
}

// IDs returns every item id in ascending order.
func (g *Graph) IDs() []int {
	return g.ids
}

// Item returns the item with the given id.
func (g *Graph) Item(id int) *ir.TestItem {
	return g.items[id]
}

// Lookup resolves an item name to its id.
func (g *Graph) Lookup(name string) (int, bool) {
	id, ok := g.byName[name]
	return id, ok
}

// Len returns the number of items.
func (g *Graph) Len() int {
	return len(g.ids)
}

// Prerequisites returns the direct dependencies of id.
func (g *Graph) Prerequisites(id int) []int {
	return g.prereqs[id]
}

// Dependents returns the items that directly require id.
func (g *Graph) Dependents(id int) []int {
	return g.dependents[id]
}

// Edges returns every (from, to) edge ordered by from, then to.
func (g *Graph) Edges() [][2]int {
	var edges [][2]int
	for _, from := range g.ids {
		for _, to := range g.dependents[from] {
			edges = append(edges, [2]int{from, to})
		}
	}
	return edges
}

// Names maps a list of ids to item names.
func (g *Graph) Names(ids []int) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = g.items[id].Name
	}
	return names
}

// Descendants returns every item that directly or transitively requires id,
// in ascending id order.
func (g *Graph) Descendants(id int) []int {
	visited := map[int]bool{id: true}
	queue := append([]int(nil), g.dependents[id]...)
	var out []int
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if visited[next] {
			continue
		}
		visited[next] = true
		out = append(out, next)
		queue = append(queue, g.dependents[next]...)
	}
	sort.Ints(out)
	return out
}

// DescendantCount returns the number of items that directly or transitively
// require id to finish first.
func (g *Graph) DescendantCount(id int) int {
	if g.descendants == nil {
		g.descendants = make(map[int]int, len(g.ids))
		for _, other := range g.ids {
			g.descendants[other] = len(g.Descendants(other))
		}
	}
	return g.descendants[id]
}

// Levels computes the dependency level of every item: the length of the
// longest prerequisite chain ending at it (roots are 0).
// Returns a CircularDependencyError if the graph is cyclic.
func (g *Graph) Levels() (map[int]int, error) {
	if g.levels != nil {
		return g.levels, nil
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	levels := make(map[int]int, len(order))
	for _, id := range order {
		level := 0
		for _, p := range g.prereqs[id] {
			if levels[p]+1 > level {
				level = levels[p] + 1
			}
		}
		levels[id] = level
	}
	g.levels = levels
	return levels, nil
}

// Level returns the dependency level of id. Levels must succeed first.
func (g *Graph) Level(id int) int {
	levels, err := g.Levels()
	if err != nil {
		return 0
	}
	return levels[id]
}

// TopologicalOrder returns ids in an order where every prerequisite precedes
// its dependents. Among available items the smallest id goes first.
func (g *Graph) TopologicalOrder() ([]int, error) {
	inDegree := make(map[int]int, len(g.ids))
	var ready []int
	for _, id := range g.ids {
		inDegree[id] = len(g.prereqs[id])
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]int, 0, len(g.ids))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, dep := range g.dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = insertSorted(ready, dep)
			}
		}
	}

	if len(order) != len(g.ids) {
		if cycle := g.DetectCycle(); cycle != nil {
			return nil, g.cycleError(cycle)
		}
		return nil, fmt.Errorf("topological order incomplete: %d of %d items", len(order), len(g.ids))
	}
	return order, nil
}

// Validate returns a CircularDependencyError naming the first cycle found, or nil.
func (g *Graph) Validate() error {
	if cycle := g.DetectCycle(); cycle != nil {
		return g.cycleError(cycle)
	}
	return nil
}

func (g *Graph) cycleError(cycle []int) *ir.CircularDependencyError {
	return &ir.CircularDependencyError{Path: g.Names(cycle), IDs: cycle}
}

func insertSorted(s []int, v int) []int {
	i := sort.SearchInts(s, v)
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
