package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGolden_Schedule tests the time-mode snapshot of the reference dataset.
func TestGolden_Schedule(t *testing.T) {
	result := runFixture(t, "sample_schedule")
	require.NoError(t, AssertGolden(t, "sample_schedule", result))
}

// TestGolden_Sequence tests the sequence-mode snapshot of the reference dataset.
func TestGolden_Sequence(t *testing.T) {
	result := runFixture(t, "sample_sequence")
	require.NoError(t, AssertGolden(t, "sample_sequence", result))
}

// TestSnapshotJSON_Stable tests that snapshots are byte-identical across runs.
func TestSnapshotJSON_Stable(t *testing.T) {
	a, err := SnapshotJSON("x", runFixture(t, "sample_sequence"))
	require.NoError(t, err)
	b, err := SnapshotJSON("x", runFixture(t, "sample_sequence"))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Contains(t, string(a), `"scenario_name":"x"`)
}
