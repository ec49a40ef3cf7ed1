package metrics

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/testsched/internal/config"
	"github.com/roach88/testsched/internal/constraint"
	"github.com/roach88/testsched/internal/ir"
	"github.com/roach88/testsched/internal/planner"
	"github.com/roach88/testsched/internal/testutil"
)

func observedPlanner(t *testing.T, ds *ir.Dataset, cfg config.Config) (*planner.Planner, *Observer) {
	t.Helper()
	obs := New()
	p := planner.New(cfg,
		planner.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		planner.WithObserver(obs))
	require.Empty(t, p.LoadDataset(ds))
	return p, obs
}

// TestObserver_Schedule tests the counters after a successful time-mode run.
func TestObserver_Schedule(t *testing.T) {
	p, obs := observedPlanner(t, testutil.SampleDataset(), config.Default())

	_, err := p.SolveSchedule(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 8.0, promtest.ToFloat64(obs.placements.WithLabelValues("schedule")))
	assert.Equal(t, 1.0, promtest.ToFloat64(obs.runs.WithLabelValues("schedule", OutcomeSuccess)))
	assert.Equal(t, 8.0, promtest.ToFloat64(obs.items.WithLabelValues("schedule")))
	assert.Equal(t, 0, promtest.CollectAndCount(obs.conflicts))
	assert.Equal(t, 1, promtest.CollectAndCount(obs.probes))
}

// TestObserver_Sequence tests that sequence runs skip the probe histogram.
func TestObserver_Sequence(t *testing.T) {
	p, obs := observedPlanner(t, testutil.SampleDataset(), config.Default())

	_, err := p.GenerateSequence(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 8.0, promtest.ToFloat64(obs.placements.WithLabelValues("sequence")))
	assert.Equal(t, 1.0, promtest.ToFloat64(obs.runs.WithLabelValues("sequence", OutcomeSuccess)))

	expected := `
# HELP testsched_probes_per_placement Candidate starts examined before an item was placed
# TYPE testsched_probes_per_placement histogram
testsched_probes_per_placement_bucket{le="1"} 0
testsched_probes_per_placement_bucket{le="2"} 0
testsched_probes_per_placement_bucket{le="5"} 0
testsched_probes_per_placement_bucket{le="10"} 0
testsched_probes_per_placement_bucket{le="50"} 0
testsched_probes_per_placement_bucket{le="100"} 0
testsched_probes_per_placement_bucket{le="1000"} 0
testsched_probes_per_placement_bucket{le="10000"} 0
testsched_probes_per_placement_bucket{le="+Inf"} 0
testsched_probes_per_placement_sum 0
testsched_probes_per_placement_count 0
`
	require.NoError(t, promtest.CollectAndCompare(obs.probes, strings.NewReader(expected)))
}

// TestObserver_Conflicts tests reason labels for a partial run.
func TestObserver_Conflicts(t *testing.T) {
	ds := &ir.Dataset{
		Phases: ir.PhaseOrder{"P"},
		Items: []ir.TestItem{
			testutil.NewItem(1, "Long", "P", 6),
			testutil.NewItem(2, "After", "P", 2),
		},
		Capacities:   ir.Capacities{},
		Dependencies: map[string][]string{"After": {"Long"}},
	}
	cfg := config.Default()
	cfg.WorkingTime.HoursPerDay = 4
	p, obs := observedPlanner(t, ds, cfg)

	res, err := p.SolveSchedule(context.Background(), nil)
	require.NoError(t, err)
	require.False(t, res.Success)

	assert.Equal(t, 1.0, promtest.ToFloat64(
		obs.conflicts.WithLabelValues("schedule", string(constraint.ReasonCalendarSpan))))
	assert.Equal(t, 1.0, promtest.ToFloat64(
		obs.conflicts.WithLabelValues("schedule", string(constraint.ReasonDependencyConflict))))
	assert.Equal(t, 1.0, promtest.ToFloat64(obs.runs.WithLabelValues("schedule", OutcomePartial)))
}

// TestObserver_SeparateRegistries tests that observers do not share state.
func TestObserver_SeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.RunFinished(constraint.ModeTime, true, 3)

	assert.Equal(t, 1.0, promtest.ToFloat64(a.runs.WithLabelValues("schedule", OutcomeSuccess)))
	assert.Equal(t, 0, promtest.CollectAndCount(b.runs))
}

// TestWriteToTextfile tests the exported text format.
func TestWriteToTextfile(t *testing.T) {
	obs := New()
	obs.ItemPlaced(constraint.ModeTime, nil, 4)
	obs.RunFinished(constraint.ModeTime, true, 1)

	path := filepath.Join(t.TempDir(), "testsched.prom")
	require.NoError(t, obs.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `testsched_placements_total{mode="schedule"} 1`)
	assert.Contains(t, text, `testsched_runs_total{mode="schedule",outcome="success"} 1`)
	assert.Contains(t, text, "testsched_probes_per_placement_count 1")
}

// TestWriteToTextfile_BadPath tests error wrapping for unwritable paths.
func TestWriteToTextfile_BadPath(t *testing.T) {
	err := New().WriteToTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write metrics")
}
