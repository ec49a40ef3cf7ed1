package cli

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordRuns records one schedule run and one sequence run and returns
// the database path with both run ids.
func recordRuns(t *testing.T) (db, scheduleID, sequenceID string) {
	t.Helper()
	db = filepath.Join(t.TempDir(), "runs.db")

	out, _, err := execute(t, "--format", "json", "schedule", sampleDataset, "--db", db)
	require.NoError(t, err)
	sched := decode[ScheduleOutput](t, out)
	require.NotEmpty(t, sched.Data.RunID)

	out, _, err = execute(t, "--format", "json", "sequence", sampleDataset, "--db", db)
	require.NoError(t, err)
	seq := decode[SequenceOutput](t, out)
	require.NotEmpty(t, seq.Data.RunID)

	return db, sched.Data.RunID, seq.Data.RunID
}

func TestScheduleRecordsRunText(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	out, _, err := execute(t, "schedule", sampleDataset, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded run ")
}

func TestHistory(t *testing.T) {
	db, scheduleID, sequenceID := recordRuns(t)

	out, _, err := execute(t, "--format", "json", "history", "--db", db)
	require.NoError(t, err)
	env := decode[HistoryResult](t, out)
	require.Equal(t, 2, env.Data.Total)
	assert.Equal(t, sequenceID, env.Data.Runs[0].ID, "newest first")
	assert.Equal(t, scheduleID, env.Data.Runs[1].ID)

	out, _, err = execute(t, "--format", "json", "history", "--db", db, "--mode", "schedule")
	require.NoError(t, err)
	env = decode[HistoryResult](t, out)
	require.Equal(t, 1, env.Data.Total)
	assert.Equal(t, "schedule", env.Data.Runs[0].Mode)

	out, _, err = execute(t, "--format", "json", "history", "--db", db, "--limit", "1")
	require.NoError(t, err)
	env = decode[HistoryResult](t, out)
	assert.Equal(t, 1, env.Data.Total)
}

func TestHistoryText(t *testing.T) {
	db, scheduleID, _ := recordRuns(t)

	out, _, err := execute(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, scheduleID)
	assert.Contains(t, out, "CONFLICTS")
}

func TestHistoryErrors(t *testing.T) {
	_, _, err := execute(t, "history", "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, "history", "--db", "x.db", "--mode", "weekly")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db")
}

func TestShow(t *testing.T) {
	db, scheduleID, sequenceID := recordRuns(t)

	out, _, err := execute(t, "show", scheduleID, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, scheduleID)
	assert.Contains(t, out, "mode:    schedule")
	assert.Contains(t, out, "Makespan:")

	out, _, err = execute(t, "show", sequenceID, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "mode:    sequence")
	assert.Contains(t, out, "parallel group(s)")
}

func TestShowPrefixAndMissing(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	out, _, err := execute(t, "--format", "json", "schedule", sampleDataset, "--db", db)
	require.NoError(t, err)
	id := decode[ScheduleOutput](t, out).Data.RunID

	out, _, err = execute(t, "--format", "json", "show", id[:8], "--db", db)
	require.NoError(t, err)
	env := decode[map[string]any](t, out)
	assert.Equal(t, id, env.Data["id"])

	out, _, err = execute(t, "show", "ffffffff", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeRunNotFound)
}

func TestReplayDeterministic(t *testing.T) {
	db, scheduleID, sequenceID := recordRuns(t)

	out, _, err := execute(t, "--format", "json", "replay", "--db", db)
	require.NoError(t, err)
	env := decode[ReplayResult](t, out)
	assert.True(t, env.Data.AllDeterministic)
	require.Equal(t, 2, env.Data.TotalRuns)
	assert.Equal(t, scheduleID, env.Data.Runs[0].RunID, "oldest first")
	assert.Equal(t, sequenceID, env.Data.Runs[1].RunID)
	for _, rr := range env.Data.Runs {
		assert.Equal(t, rr.RecordedHash, rr.ReplayedHash)
	}

	out, _, err = execute(t, "replay", sequenceID, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Replayed 1 run(s)")
}

func TestReplayDetectsMismatch(t *testing.T) {
	db, scheduleID, _ := recordRuns(t)

	conn, err := sql.Open("sqlite3", db)
	require.NoError(t, err)
	_, err = conn.Exec(`UPDATE runs SET result_hash = ? WHERE id = ?`,
		"0000000000000000000000000000000000000000000000000000000000000000", scheduleID)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	out, _, err := execute(t, "--format", "json", "replay", "--db", db, "--mode", "schedule")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	env := decode[ReplayResult](t, out)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeDeterminism, env.Error.Code)
	require.Len(t, env.Data.Runs, 1)
	assert.False(t, env.Data.Runs[0].Deterministic)
}

func TestReplayEmptyDatabase(t *testing.T) {
	db, _, _ := recordRuns(t)

	out, _, err := execute(t, "replay", "--db", db, "--mode", "none")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}
