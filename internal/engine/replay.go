package engine

// Replay and determinism
//
// A run is a pure function of (dataset, config). Nothing in the placement
// loop reads a wall clock or iterates a map without sorting first:
//
//   - candidates are scanned in ascending id order and ties break by id
//   - probes walk calendar instants forward from a fixed origin
//   - decisions are stamped by a logical Clock, never by time.Now
//   - results hash through canonical JSON (ir.ResultHash)
//
// Replay re-solves stored inputs and compares the hash of the new result
// with the recorded one. A mismatch means an engine change altered output.

import (
	"context"
	"fmt"

	"github.com/roach88/testsched/internal/constraint"
	"github.com/roach88/testsched/internal/graph"
	"github.com/roach88/testsched/internal/ir"
)

// ReplayReport is the outcome of one replay.
type ReplayReport struct {
	Mode         string `json:"mode"`
	ExpectedHash string `json:"expected_hash"`
	ActualHash   string `json:"actual_hash"`
	Match        bool   `json:"match"`
	// Result is the freshly computed *SchedulingResult or *SequenceResult.
	Result any `json:"-"`
}

// Run solves one mode and returns its result and result hash.
func Run(ctx context.Context, mode constraint.Mode, cfg Config, g *graph.Graph, capacities ir.Capacities, opts ...Option) (any, string, error) {
	var result any
	switch mode {
	case constraint.ModeTime:
		s, err := NewScheduler(cfg, g, capacities, opts...)
		if err != nil {
			return nil, "", err
		}
		r, err := s.Solve(ctx)
		if err != nil {
			return nil, "", err
		}
		result = r
	case constraint.ModeSequence:
		s, err := NewSequencer(cfg, g, capacities, opts...)
		if err != nil {
			return nil, "", err
		}
		r, err := s.Generate(ctx)
		if err != nil {
			return nil, "", err
		}
		result = r
	default:
		return nil, "", fmt.Errorf("unknown mode %d", mode)
	}

	hash, err := ir.ResultHash(result)
	if err != nil {
		return nil, "", ir.NewSchedulingError("hash result", err)
	}
	return result, hash, nil
}

// Replay re-runs mode over the given inputs and compares the result hash
// against expected.
func Replay(ctx context.Context, mode constraint.Mode, cfg Config, g *graph.Graph, capacities ir.Capacities, expected string, opts ...Option) (*ReplayReport, error) {
	result, hash, err := Run(ctx, mode, cfg, g, capacities, opts...)
	if err != nil {
		return nil, err
	}
	return &ReplayReport{
		Mode:         mode.String(),
		ExpectedHash: expected,
		ActualHash:   hash,
		Match:        hash == expected,
		Result:       result,
	}, nil
}
