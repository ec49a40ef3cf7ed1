package engine

import (
	"errors"
	"fmt"
)

// ProbeQuota bounds the number of candidate placements tried for one item.
//
// The calendar horizon limits how far ahead probing may look; the quota
// limits how many probes may be spent getting there. Together they
// guarantee every placement attempt terminates.
type ProbeQuota struct {
	maxProbes int
	current   int
}

// NewProbeQuota creates a quota allowing maxProbes probes.
func NewProbeQuota(maxProbes int) *ProbeQuota {
	return &ProbeQuota{maxProbes: maxProbes}
}

// Check counts one probe and fails once the quota is exceeded.
func (q *ProbeQuota) Check(itemID int) error {
	q.current++
	if q.current > q.maxProbes {
		return &ProbesExceededError{
			ItemID: itemID,
			Probes: q.current,
			Limit:  q.maxProbes,
		}
	}
	return nil
}

// Current returns the number of probes counted so far.
func (q *ProbeQuota) Current() int {
	return q.current
}

// MaxProbes returns the limit.
func (q *ProbeQuota) MaxProbes() int {
	return q.maxProbes
}

// ProbesExceededError is returned when placing one item needs too many probes.
type ProbesExceededError struct {
	ItemID int
	Probes int
	Limit  int
}

// Error implements the error interface.
func (e *ProbesExceededError) Error() string {
	return fmt.Sprintf("item %d exceeded probe quota: %d probes > %d limit",
		e.ItemID, e.Probes, e.Limit)
}

// IsProbesExceededError returns true if the error is a ProbesExceededError.
// Uses errors.As to handle wrapped errors.
func IsProbesExceededError(err error) bool {
	var pe *ProbesExceededError
	return errors.As(err, &pe)
}
