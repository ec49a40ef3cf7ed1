package ir

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes planning errors.
type ErrorCode string

const (
	// ErrCodeValidation indicates malformed input or an unresolved reference.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeCircularDependency indicates the dependency graph has a cycle.
	ErrCodeCircularDependency ErrorCode = "CIRCULAR_DEPENDENCY"

	// ErrCodeResourceConflict indicates a reservation would exceed capacity.
	ErrCodeResourceConflict ErrorCode = "RESOURCE_CONFLICT"

	// ErrCodeUnsatisfiable indicates an item cannot be placed at all.
	ErrCodeUnsatisfiable ErrorCode = "UNSATISFIABLE"

	// ErrCodeScheduling indicates an internal engine fault.
	ErrCodeScheduling ErrorCode = "SCHEDULING"
)

// ValidationError reports malformed input. Fatal, raised before any placement.
type ValidationError struct {
	Field   string
	ItemID  *int
	Message string
}

// NewValidationError creates a ValidationError not tied to one item.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NewItemValidationError creates a ValidationError for one item.
func NewItemValidationError(id int, field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, ItemID: &id, Message: fmt.Sprintf(format, args...)}
}

// Code returns ErrCodeValidation.
func (e *ValidationError) Code() ErrorCode { return ErrCodeValidation }

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.ItemID != nil {
		return fmt.Sprintf("%s: item %d: %s: %s", e.Code(), *e.ItemID, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code(), e.Field, e.Message)
}

// CircularDependencyError reports a dependency cycle. Path lists item names
// in traversal order; the first element closes the cycle.
type CircularDependencyError struct {
	Path []string
	IDs  []int
}

// Code returns ErrCodeCircularDependency.
func (e *CircularDependencyError) Code() ErrorCode { return ErrCodeCircularDependency }

// Error implements the error interface.
func (e *CircularDependencyError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("%s: cycle detected", e.Code())
	}
	return fmt.Sprintf("%s: %s → %s", e.Code(), strings.Join(e.Path, " → "), e.Path[0])
}

// ResourceConflictError reports that reserving a resource would exceed its capacity.
type ResourceConflictError struct {
	ItemID   int
	Resource string
	Demand   int
	Peak     int
	Capacity int
	Start    int
	End      int
}

// Code returns ErrCodeResourceConflict.
func (e *ResourceConflictError) Code() ErrorCode { return ErrCodeResourceConflict }

// Error implements the error interface.
func (e *ResourceConflictError) Error() string {
	return fmt.Sprintf("%s: item %d needs %d of %q over [%d,%d) but peak usage is %d of %d",
		e.Code(), e.ItemID, e.Demand, e.Resource, e.Start, e.End, e.Peak, e.Capacity)
}

// UnsatisfiableConstraintError reports an item that could not be placed.
// Recorded per item; the run continues.
type UnsatisfiableConstraintError struct {
	ItemID int
	Reason string
	Detail string
}

// Code returns ErrCodeUnsatisfiable.
func (e *UnsatisfiableConstraintError) Code() ErrorCode { return ErrCodeUnsatisfiable }

// Error implements the error interface.
func (e *UnsatisfiableConstraintError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: item %d: %s", e.Code(), e.ItemID, e.Reason)
	}
	return fmt.Sprintf("%s: item %d: %s (%s)", e.Code(), e.ItemID, e.Reason, e.Detail)
}

// SchedulingError reports a generic engine fault.
type SchedulingError struct {
	Message string
	Err     error
}

// NewSchedulingError wraps err as a SchedulingError.
func NewSchedulingError(message string, err error) *SchedulingError {
	return &SchedulingError{Message: message, Err: err}
}

// Code returns ErrCodeScheduling.
func (e *SchedulingError) Code() ErrorCode { return ErrCodeScheduling }

// Error implements the error interface.
func (e *SchedulingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code(), e.Message)
}

// Unwrap returns the underlying error.
func (e *SchedulingError) Unwrap() error { return e.Err }

// coded is implemented by every error in the taxonomy.
type coded interface {
	Code() ErrorCode
}

// CodeOf returns the taxonomy code of err, or "" if err is not a planning error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var c coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// IsValidationError returns true if err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsCircularDependencyError returns true if err is or wraps a CircularDependencyError.
func IsCircularDependencyError(err error) bool {
	var ce *CircularDependencyError
	return errors.As(err, &ce)
}

// IsResourceConflictError returns true if err is or wraps a ResourceConflictError.
func IsResourceConflictError(err error) bool {
	var re *ResourceConflictError
	return errors.As(err, &re)
}

// IsFatal reports whether err must abort a run before any placement.
func IsFatal(err error) bool {
	return IsValidationError(err) || IsCircularDependencyError(err)
}
