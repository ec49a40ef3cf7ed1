package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/testsched/internal/ir"
)

// Snapshot is the golden-file form of a scenario result.
type Snapshot struct {
	ScenarioName string      `json:"scenario_name"`
	Mode         string      `json:"mode"`
	Success      bool        `json:"success"`
	Placements   []Placement `json:"placements"`
	Conflicts    []string    `json:"conflicts"`
}

// SnapshotJSON renders the canonical JSON snapshot of a result.
func SnapshotJSON(name string, result *Result) ([]byte, error) {
	return ir.MarshalCanonical(Snapshot{
		ScenarioName: name,
		Mode:         result.Mode,
		Success:      result.Success,
		Placements:   result.Placements,
		Conflicts:    result.Conflicts,
	})
}

// AssertGolden compares a result's snapshot against
// testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := SnapshotJSON(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
