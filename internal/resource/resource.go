// Package resource tracks per-resource capacity and time-indexed demand.
//
// Usage is stored as (resource name, hour bucket) → demand. A Model is owned
// by exactly one engine run and must not be shared between goroutines.
package resource

import (
	"fmt"
	"sort"

	"github.com/roach88/testsched/internal/ir"
)

// Interval is a half-open span of hours [Start, End).
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of hour buckets covered.
func (iv Interval) Len() int {
	if iv.End <= iv.Start {
		return 0
	}
	return iv.End - iv.Start
}

// Overlaps reports whether two intervals share at least one hour.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// String renders the interval for diagnostics.
func (iv Interval) String() string {
	return fmt.Sprintf("[%d,%d)", iv.Start, iv.End)
}

// Hold records one committed reservation.
type Hold struct {
	ItemID   int
	Interval Interval
	Qty      int
}

// Model is the resource usage timeline of one run.
type Model struct {
	capacity map[string]int
	usage    map[string]map[int]int
	holds    map[string][]Hold
}

// New creates a Model with the given capacities. Names absent from the map
// are unconstrained. Capacities are copied and never change afterward.
func New(capacities ir.Capacities) *Model {
	capacity := make(map[string]int, len(capacities))
	for name, c := range capacities {
		capacity[name] = c
	}
	return &Model{
		capacity: capacity,
		usage:    make(map[string]map[int]int),
		holds:    make(map[string][]Hold),
	}
}

// Capacity returns the capacity of name and whether it is constrained.
func (m *Model) Capacity(name string) (int, bool) {
	c, ok := m.capacity[name]
	return c, ok
}

// Constrained returns the constrained resource names in sorted order.
func (m *Model) Constrained() []string {
	names := make([]string, 0, len(m.capacity))
	for name := range m.capacity {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProjectedUsage returns the peak committed demand of name within iv.
// It does not modify the model.
func (m *Model) ProjectedUsage(name string, iv Interval) int {
	buckets := m.usage[name]
	if len(buckets) == 0 {
		return 0
	}
	peak := 0
	for t := iv.Start; t < iv.End; t++ {
		if u := buckets[t]; u > peak {
			peak = u
		}
	}
	return peak
}

// Check reports the first demand that would exceed capacity within iv.
// Demands on unconstrained resources never fail.
func (m *Model) Check(itemID int, demands []ir.Demand, iv Interval) error {
	for _, d := range demands {
		capacity, ok := m.capacity[d.Name]
		if !ok {
			continue
		}
		peak := m.ProjectedUsage(d.Name, iv)
		if peak+d.Qty > capacity {
			return &ir.ResourceConflictError{
				ItemID:   itemID,
				Resource: d.Name,
				Demand:   d.Qty,
				Peak:     peak,
				Capacity: capacity,
				Start:    iv.Start,
				End:      iv.End,
			}
		}
	}
	return nil
}

// Feasible reports whether the demands could ever be satisfied on an empty
// timeline, i.e. no single demand exceeds capacity.
func (m *Model) Feasible(itemID int, demands []ir.Demand) error {
	for _, d := range demands {
		if capacity, ok := m.capacity[d.Name]; ok && d.Qty > capacity {
			return &ir.ResourceConflictError{
				ItemID:   itemID,
				Resource: d.Name,
				Demand:   d.Qty,
				Capacity: capacity,
			}
		}
	}
	return nil
}

// Reserve commits item's demands over iv. It fails with a
// ResourceConflictError, leaving the model untouched, if any constrained
// resource would exceed capacity.
func (m *Model) Reserve(item *ir.TestItem, iv Interval) error {
	return m.ReserveDemands(item.ID, item.Demands(), iv)
}

// ReserveDemands commits arbitrary demands on behalf of itemID.
func (m *Model) ReserveDemands(itemID int, demands []ir.Demand, iv Interval) error {
	if err := m.Check(itemID, demands, iv); err != nil {
		return err
	}
	for _, d := range demands {
		if _, ok := m.capacity[d.Name]; !ok {
			continue
		}
		buckets := m.usage[d.Name]
		if buckets == nil {
			buckets = make(map[int]int, iv.Len())
			m.usage[d.Name] = buckets
		}
		for t := iv.Start; t < iv.End; t++ {
			buckets[t] += d.Qty
		}
		m.holds[d.Name] = append(m.holds[d.Name], Hold{ItemID: itemID, Interval: iv, Qty: d.Qty})
	}
	return nil
}

// Holds returns the committed reservations of name in commit order.
func (m *Model) Holds(name string) []Hold {
	return m.holds[name]
}

// Conflicting returns the constrained resources on which a and b cannot run
// side by side, in sorted order.
func (m *Model) Conflicting(a, b *ir.TestItem) []string {
	bDemand := make(map[string]int)
	for _, d := range b.Demands() {
		bDemand[d.Name] = d.Qty
	}
	var out []string
	for _, d := range a.Demands() {
		other, shared := bDemand[d.Name]
		if !shared {
			continue
		}
		if capacity, ok := m.capacity[d.Name]; ok && d.Qty+other > capacity {
			out = append(out, d.Name)
		}
	}
	return out
}
