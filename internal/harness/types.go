package harness

import (
	"github.com/roach88/testsched/internal/engine"
	"github.com/roach88/testsched/internal/graph"
	"github.com/roach88/testsched/internal/ir"
)

// Placement is the mode-independent view of one placed item.
type Placement struct {
	ID    int    `json:"id"`
	Item  string `json:"item"`
	Phase string `json:"phase"`
	// Start and End are hours in time mode. In sequence mode Start is the
	// sequence number and End is Start+1.
	Start int `json:"start"`
	End   int `json:"end"`
	// Group is the parallel group in sequence mode, 0 in time mode.
	Group int `json:"group,omitempty"`
}

// Result is the outcome of one scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	Mode       string      `json:"mode"`
	Success    bool        `json:"success"`
	Hash       string      `json:"hash"`
	Placements []Placement `json:"placements"`
	Conflicts  []string    `json:"conflicts"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Schedule *engine.SchedulingResult `json:"-"`
	Sequence *engine.SequenceResult   `json:"-"`
}

// NewResult creates a new passing result.
func NewResult(mode string) *Result {
	return &Result{
		Pass:       true,
		Mode:       mode,
		Placements: []Placement{},
		Conflicts:  []string{},
		Errors:     []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Placement returns the placement of the named item.
func (r *Result) Placement(name string) (Placement, bool) {
	for _, p := range r.Placements {
		if p.Item == name {
			return p, true
		}
	}
	return Placement{}, false
}

// Conflicted reports whether the named item ended in conflict.
func (r *Result) Conflicted(name string) bool {
	for _, c := range r.Conflicts {
		if c == name {
			return true
		}
	}
	return false
}

// AssertionContext carries the loaded inputs that assertions check against.
type AssertionContext struct {
	Graph      *graph.Graph
	Capacities ir.Capacities
	Phases     ir.PhaseOrder
	// Rerun executes the scenario again and returns the result hash.
	Rerun func() (string, error)
}
