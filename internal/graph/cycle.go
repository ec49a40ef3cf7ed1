package graph

// color marks DFS visitation state.
type color int

const (
	white color = iota // unvisited
	gray               // on the current path
	black              // fully explored
)

// frame is one entry of the explicit DFS stack.
type frame struct {
	id   int
	next int // index into dependents(id) of the next edge to follow
}

// DetectCycle runs an iterative depth-first search along dependency edges and
// returns the first cycle found as an ordered id path, or nil if the graph is
// acyclic. Roots and edges are visited in ascending id order, so the reported
// cycle is deterministic. The path starts at the item where the cycle closes
// and does not repeat it at the end.
func (g *Graph) DetectCycle() []int {
	colors := make(map[int]color, len(g.ids))

	for _, root := range g.ids {
		if colors[root] != white {
			continue
		}

		stack := []frame{{id: root}}
		colors[root] = gray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			edges := g.dependents[top.id]

			if top.next >= len(edges) {
				colors[top.id] = black
				stack = stack[:len(stack)-1]
				continue
			}

			child := edges[top.next]
			top.next++

			switch colors[child] {
			case white:
				colors[child] = gray
				stack = append(stack, frame{id: child})
			case gray:
				return cycleFromStack(stack, child)
			}
		}
	}
	return nil
}

// cycleFromStack extracts the portion of the DFS path that starts at the
// gray item being revisited.
func cycleFromStack(stack []frame, start int) []int {
	for i := range stack {
		if stack[i].id == start {
			path := make([]int, 0, len(stack)-i)
			for _, f := range stack[i:] {
				path = append(path, f.id)
			}
			return path
		}
	}
	return []int{start}
}
