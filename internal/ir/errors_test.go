package ir

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCircularDependencyErrorMessage tests that the cycle is closed in the message.
func TestCircularDependencyErrorMessage(t *testing.T) {
	err := &CircularDependencyError{Path: []string{"A", "B", "C"}, IDs: []int{1, 2, 3}}
	assert.Equal(t, "CIRCULAR_DEPENDENCY: A → B → C → A", err.Error())
}

// TestErrorHelpersUnwrap tests the Is* helpers through wrapping.
func TestErrorHelpersUnwrap(t *testing.T) {
	cyc := fmt.Errorf("solve: %w", &CircularDependencyError{Path: []string{"A"}})
	val := fmt.Errorf("load: %w", NewValidationError("phase_order", "must not be empty"))
	res := &ResourceConflictError{ItemID: 1, Resource: "r", Demand: 1, Peak: 1, Capacity: 1}

	assert.True(t, IsCircularDependencyError(cyc))
	assert.True(t, IsFatal(cyc))
	assert.True(t, IsValidationError(val))
	assert.True(t, IsFatal(val))
	assert.True(t, IsResourceConflictError(res))
	assert.False(t, IsFatal(res))

	assert.Equal(t, ErrCodeCircularDependency, CodeOf(cyc))
	assert.Equal(t, ErrCodeResourceConflict, CodeOf(res))
	assert.Equal(t, ErrorCode(""), CodeOf(fmt.Errorf("plain")))
}

// TestValidationErrorMessage tests item and non-item messages.
func TestValidationErrorMessage(t *testing.T) {
	assert.Equal(t, "VALIDATION: item 3: duration: must be positive",
		NewItemValidationError(3, "duration", "must be positive").Error())
	assert.Equal(t, "VALIDATION: phase_order: must not be empty",
		NewValidationError("phase_order", "must not be empty").Error())
}
