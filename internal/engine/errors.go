package engine

import (
	"github.com/roach88/testsched/internal/constraint"
	"github.com/roach88/testsched/internal/ir"
)

// Conflict records one item the engine could not place.
type Conflict struct {
	ItemID int               `json:"item_id"`
	Item   string            `json:"item"`
	Code   ir.ErrorCode      `json:"code"`
	Reason constraint.Reason `json:"reason"`
	// LastRejection is the final checker verdict seen while probing, if any.
	LastRejection constraint.Reason `json:"last_rejection,omitempty"`
	Detail        string            `json:"detail,omitempty"`
}

// Err converts the conflict to an UnsatisfiableConstraintError.
func (c Conflict) Err() error {
	return &ir.UnsatisfiableConstraintError{ItemID: c.ItemID, Reason: string(c.Reason), Detail: c.Detail}
}

// conflictCode maps rejection reasons onto the error taxonomy.
func conflictCode(reason, last constraint.Reason) ir.ErrorCode {
	if reason == constraint.ReasonResourceCapacity || last == constraint.ReasonResourceCapacity {
		return ir.ErrCodeResourceConflict
	}
	return ir.ErrCodeUnsatisfiable
}

func newConflict(item *ir.TestItem, reason, last constraint.Reason, detail string) Conflict {
	return Conflict{
		ItemID:        item.ID,
		Item:          item.Name,
		Code:          conflictCode(reason, last),
		Reason:        reason,
		LastRejection: last,
		Detail:        detail,
	}
}
