package ir

import (
	"fmt"
	"sort"
	"strings"
)

// NoneMarker is the literal used by input files for "no requirement".
const NoneMarker = "无"

// Demand is a named resource requirement with a unit quantity.
type Demand struct {
	Name string `json:"name" validate:"required"`
	Qty  int    `json:"qty" validate:"gt=0"`
}

// String renders a demand the way input files write it.
func (d Demand) String() string {
	if d.Qty == 1 {
		return d.Name
	}
	return fmt.Sprintf("%s×%d", d.Name, d.Qty)
}

// TestItem is one schedulable verification unit.
type TestItem struct {
	ID          int      `json:"test_id" validate:"gte=0"`
	Phase       string   `json:"test_phase" validate:"required"`
	Group       string   `json:"test_group"`
	Name        string   `json:"test_item" validate:"required"`
	Equipment   []Demand `json:"required_equipment" validate:"dive"`
	Instruments []Demand `json:"required_instruments" validate:"dive"`
	Duration    int      `json:"duration" validate:"gt=0"`
}

// HasGroup reports whether the item belongs to a named group.
func (t *TestItem) HasGroup() bool {
	return t.Group != "" && t.Group != NoneMarker
}

// Demands merges equipment and instrument demands by resource name.
// The result is sorted by name so iteration is deterministic.
func (t *TestItem) Demands() []Demand {
	if len(t.Equipment) == 0 && len(t.Instruments) == 0 {
		return nil
	}
	byName := make(map[string]int, len(t.Equipment)+len(t.Instruments))
	for _, d := range t.Equipment {
		byName[d.Name] += d.Qty
	}
	for _, d := range t.Instruments {
		byName[d.Name] += d.Qty
	}
	out := make([]Demand, 0, len(byName))
	for name, qty := range byName {
		out = append(out, Demand{Name: name, Qty: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ResourceCount returns |equipment ∪ instruments| by distinct name.
func (t *TestItem) ResourceCount() int {
	return len(t.Demands())
}

// Capacities maps resource name to maximum concurrent units.
// A name without an entry is unconstrained.
type Capacities map[string]int

// Names returns the constrained resource names in sorted order.
func (c Capacities) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PhaseOrder is the strict total order of phases, earliest first.
type PhaseOrder []string

// Index returns the position of phase in the order, or -1 if absent.
func (p PhaseOrder) Index(phase string) int {
	for i, name := range p {
		if name == phase {
			return i
		}
	}
	return -1
}

// Before reports whether phase a strictly precedes phase b.
func (p PhaseOrder) Before(a, b string) bool {
	ia, ib := p.Index(a), p.Index(b)
	return ia >= 0 && ib >= 0 && ia < ib
}

// String joins the phases for diagnostics.
func (p PhaseOrder) String() string {
	return strings.Join(p, " → ")
}

// Dataset is the complete input of one planning run.
// Dependencies are keyed by item name, as supplied by input files.
type Dataset struct {
	Phases       PhaseOrder          `json:"phases,omitempty"`
	Items        []TestItem          `json:"test_items"`
	Capacities   Capacities          `json:"instruments"`
	Dependencies map[string][]string `json:"dependencies"`
}

// ItemsByID returns pointers to the dataset's items sorted by ascending id.
func (d *Dataset) ItemsByID() []*TestItem {
	out := make([]*TestItem, len(d.Items))
	for i := range d.Items {
		out[i] = &d.Items[i]
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
