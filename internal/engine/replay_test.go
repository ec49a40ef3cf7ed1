package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/testsched/internal/constraint"
	"github.com/roach88/testsched/internal/ir"
	"github.com/roach88/testsched/internal/testutil"
)

// TestReplayMatches tests that replaying the same inputs reproduces the hash.
func TestReplayMatches(t *testing.T) {
	ctx := context.Background()
	for _, mode := range []constraint.Mode{constraint.ModeTime, constraint.ModeSequence} {
		t.Run(mode.String(), func(t *testing.T) {
			ds := testutil.SampleDataset()
			g := buildGraph(t, ds)

			result, hash, err := Run(ctx, mode, sampleConfig(), g, ds.Capacities, WithLogger(quietLogger()))
			require.NoError(t, err)
			require.NotNil(t, result)

			report, err := Replay(ctx, mode, sampleConfig(), g, ds.Capacities, hash, WithLogger(quietLogger()))
			require.NoError(t, err)
			assert.True(t, report.Match)
			assert.Equal(t, hash, report.ActualHash)
			assert.Equal(t, mode.String(), report.Mode)
		})
	}
}

// TestReplayDetectsDrift tests that changed inputs produce a mismatch.
func TestReplayDetectsDrift(t *testing.T) {
	ctx := context.Background()
	ds := testutil.SampleDataset()
	g := buildGraph(t, ds)

	_, hash, err := Run(ctx, constraint.ModeTime, sampleConfig(), g, ds.Capacities, WithLogger(quietLogger()))
	require.NoError(t, err)

	report, err := Replay(ctx, constraint.ModeTime, sampleConfig().WithMaxParallel(1), g, ds.Capacities, hash,
		WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.False(t, report.Match)

	sched, ok := report.Result.(*SchedulingResult)
	require.True(t, ok)
	assert.Equal(t, 1, sched.MaxParallel)
}

// TestReplayPropagatesFatalErrors tests that input errors surface from Run.
func TestReplayPropagatesFatalErrors(t *testing.T) {
	ds := &ir.Dataset{
		Items: []ir.TestItem{
			testutil.NewItem(1, "A", "P", 1),
			testutil.NewItem(2, "B", "P", 1),
		},
		Dependencies: map[string][]string{"A": {"B"}, "B": {"A"}},
	}
	_, err := Replay(context.Background(), constraint.ModeSequence, DefaultConfig(ir.PhaseOrder{"P"}),
		buildGraph(t, ds), nil, "x", WithLogger(quietLogger()))
	assert.True(t, ir.IsCircularDependencyError(err))
}
