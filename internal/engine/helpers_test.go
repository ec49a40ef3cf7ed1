package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/testsched/internal/constraint"
	"github.com/roach88/testsched/internal/graph"
	"github.com/roach88/testsched/internal/ir"
	"github.com/roach88/testsched/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func buildGraph(t *testing.T, ds *ir.Dataset) *graph.Graph {
	t.Helper()
	g, err := graph.Build(ds.ItemsByID(), ds.Dependencies)
	require.NoError(t, err)
	return g
}

func solveDataset(t *testing.T, ds *ir.Dataset, cfg Config, opts ...Option) *SchedulingResult {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	s, err := NewScheduler(cfg, buildGraph(t, ds), ds.Capacities, opts...)
	require.NoError(t, err)
	result, err := s.Solve(context.Background())
	require.NoError(t, err)
	return result
}

func sequenceDataset(t *testing.T, ds *ir.Dataset, cfg Config, opts ...Option) *SequenceResult {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	s, err := NewSequencer(cfg, buildGraph(t, ds), ds.Capacities, opts...)
	require.NoError(t, err)
	result, err := s.Generate(context.Background())
	require.NoError(t, err)
	return result
}

func sampleConfig() Config {
	return DefaultConfig(testutil.SamplePhases())
}

// recordingObserver captures engine events in order.
type recordingObserver struct {
	placed     []string
	conflicted map[string]constraint.Reason
	finished   []bool
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{conflicted: make(map[string]constraint.Reason)}
}

func (o *recordingObserver) ItemPlaced(_ constraint.Mode, item *ir.TestItem, _ int) {
	o.placed = append(o.placed, item.Name)
}

func (o *recordingObserver) ItemConflicted(_ constraint.Mode, item *ir.TestItem, reason constraint.Reason) {
	o.conflicted[item.Name] = reason
}

func (o *recordingObserver) RunFinished(_ constraint.Mode, success bool, _ int) {
	o.finished = append(o.finished, success)
}
