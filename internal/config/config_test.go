package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/testsched/internal/engine"
	"github.com/roach88/testsched/internal/ir"
)

// TestParseEmptyUsesDefaults tests that schema defaults match Default.
func TestParseEmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse("empty.yaml", []byte(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

// TestParseYAMLOverrides tests partial YAML documents.
func TestParseYAMLOverrides(t *testing.T) {
	doc := `
scheduling:
  max_parallel: 2
  group_exclusive: false
working_time:
  rest_day_cycle: 0
priority_weights:
  continuity: 0
phase_order: [集成测试, 系统测试, 验收测试]
`
	cfg, err := Parse("cfg.yaml", []byte(doc))
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Scheduling.MaxParallel)
	assert.Equal(t, 3, cfg.Scheduling.MaxParallelPerPhase)
	assert.False(t, cfg.Scheduling.GroupExclusive)
	assert.Equal(t, 0, cfg.WorkingTime.RestDayCycle)
	assert.Equal(t, 8, cfg.WorkingTime.HoursPerDay)
	assert.Equal(t, 0.0, cfg.PriorityWeights.Continuity)
	assert.Equal(t, 20.0, cfg.PriorityWeights.Phase)
	assert.Equal(t, []string{"集成测试", "系统测试", "验收测试"}, cfg.PhaseOrder)
}

// TestParseJSON tests that JSON documents go through the same path.
func TestParseJSON(t *testing.T) {
	cfg, err := Parse("cfg.json", []byte(`{"scheduling": {"max_daily_starts": 0}}`))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Scheduling.MaxDailyStarts)
}

// TestParseCUE tests CUE documents.
func TestParseCUE(t *testing.T) {
	doc := `
working_time: hours_per_day: 10
scheduling: max_parallel: 4
`
	cfg, err := Parse("cfg.cue", []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.WorkingTime.HoursPerDay)
	assert.Equal(t, 4, cfg.Scheduling.MaxParallel)
	assert.Equal(t, 7, cfg.WorkingTime.RestDayCycle)
}

// TestParseRejects tests schema bounds and closedness.
func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"zero parallel", "scheduling: {max_parallel: 0}"},
		{"hours over 24", "working_time: {hours_per_day: 25}"},
		{"rest cycle one", "working_time: {rest_day_cycle: 1}"},
		{"negative weight", "priority_weights: {phase: -1}"},
		{"duplicate phase", "phase_order: [a, b, a]"},
		{"unknown key", "scheduling: {max_paralel: 2}"},
		{"unknown section", "extra: true"},
		{"wrong type", "scheduling: {group_exclusive: yes please}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.yaml", []byte(tt.doc))
			require.Error(t, err)
			var cfgErr *Error
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

// TestLoadFile tests reading from disk.
func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheduling: {max_parallel: 5}\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Scheduling.MaxParallel)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// TestValidate tests the Go-side checks for configs built in code.
func TestValidate(t *testing.T) {
	assert.NoError(t, Default().Validate())

	cfg := Default()
	cfg.Scheduling.MaxParallel = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, ir.IsValidationError(err))

	cfg = Default()
	cfg.PhaseOrder = []string{"a", "a"}
	assert.Error(t, cfg.Validate())
}

// TestEngine tests the derived engine configuration.
func TestEngine(t *testing.T) {
	cfg := Default()
	cfg.PhaseOrder = []string{"x", "y"}

	ec := cfg.Engine(nil)
	assert.Equal(t, ir.PhaseOrder{"x", "y"}, ec.Phases)
	assert.Equal(t, engine.DefaultConfig(ec.Phases), ec)

	ec = cfg.Engine(ir.PhaseOrder{"z"})
	assert.Equal(t, ir.PhaseOrder{"z"}, ec.Phases)
}

// TestHashStable tests that equal configs hash equally.
func TestHashStable(t *testing.T) {
	a, err := Default().Hash()
	require.NoError(t, err)
	b, err := Default().Hash()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	changed := Default()
	changed.Scheduling.MaxParallel = 9
	c, err := changed.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
