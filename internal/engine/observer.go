package engine

import (
	"github.com/roach88/testsched/internal/constraint"
	"github.com/roach88/testsched/internal/ir"
)

// Observer receives placement events. Implementations must not mutate the
// items they are handed. Calls arrive from the placement goroutine only.
type Observer interface {
	ItemPlaced(mode constraint.Mode, item *ir.TestItem, probes int)
	ItemConflicted(mode constraint.Mode, item *ir.TestItem, reason constraint.Reason)
	RunFinished(mode constraint.Mode, success bool, items int)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) ItemPlaced(constraint.Mode, *ir.TestItem, int)                 {}
func (NopObserver) ItemConflicted(constraint.Mode, *ir.TestItem, constraint.Reason) {}
func (NopObserver) RunFinished(constraint.Mode, bool, int)                        {}
