package store

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/testsched/internal/config"
	"github.com/roach88/testsched/internal/engine"
	"github.com/roach88/testsched/internal/ir"
)

// Mode names stored in runs.mode.
const (
	ModeSchedule = "schedule"
	ModeSequence = "sequence"
)

// RunConflict is one unplaced item of a stored run.
type RunConflict struct {
	ItemID int    `json:"item_id"`
	Item   string `json:"item"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// Run is one recorded planning run. The JSON fields hold canonical JSON.
type Run struct {
	Seq           int64           `json:"seq"`
	ID            string          `json:"id"`
	Mode          string          `json:"mode"`
	EngineVersion string          `json:"engine_version"`
	ResultVersion string          `json:"result_version"`
	DatasetHash   string          `json:"dataset_hash"`
	ConfigHash    string          `json:"config_hash"`
	ResultHash    string          `json:"result_hash"`
	Success       bool            `json:"success"`
	ItemCount     int             `json:"item_count"`
	ConflictCount int             `json:"conflict_count"`
	MaxParallel   *int            `json:"max_parallel,omitempty"`
	Dataset       json.RawMessage `json:"dataset,omitempty"`
	Config        json.RawMessage `json:"config,omitempty"`
	Result        json.RawMessage `json:"result,omitempty"`
	Conflicts     []RunConflict   `json:"conflicts"`
}

// NewRun builds a Run record for a finished engine run. result must be an
// *engine.SchedulingResult or an *engine.SequenceResult.
func NewRun(ds *ir.Dataset, cfg config.Config, maxParallel *int, result any) (Run, error) {
	run := Run{
		EngineVersion: ir.EngineVersion,
		ResultVersion: ir.ResultVersion,
		MaxParallel:   maxParallel,
	}

	var conflicts []engine.Conflict
	switch r := result.(type) {
	case *engine.SchedulingResult:
		run.Mode = ModeSchedule
		run.Success = r.Success
		run.ItemCount = len(r.Items)
		conflicts = r.Conflicts
	case *engine.SequenceResult:
		run.Mode = ModeSequence
		run.Success = r.Success
		run.ItemCount = len(r.Items)
		conflicts = r.Conflicts
	default:
		return Run{}, fmt.Errorf("new run: unsupported result type %T", result)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Run{}, fmt.Errorf("new run: generate id: %w", err)
	}
	run.ID = id.String()

	run.ConflictCount = len(conflicts)
	run.Conflicts = make([]RunConflict, len(conflicts))
	for i, c := range conflicts {
		run.Conflicts[i] = RunConflict{
			ItemID: c.ItemID,
			Item:   c.Item,
			Code:   string(c.Code),
			Reason: string(c.Reason),
			Detail: c.Detail,
		}
	}

	if run.Dataset, err = ir.MarshalCanonical(ds); err != nil {
		return Run{}, fmt.Errorf("new run: dataset: %w", err)
	}
	if run.Config, err = ir.MarshalCanonical(cfg); err != nil {
		return Run{}, fmt.Errorf("new run: config: %w", err)
	}
	if run.Result, err = ir.MarshalCanonical(result); err != nil {
		return Run{}, fmt.Errorf("new run: result: %w", err)
	}
	if run.DatasetHash, err = ir.DatasetHash(ds); err != nil {
		return Run{}, fmt.Errorf("new run: %w", err)
	}
	if run.ConfigHash, err = cfg.Hash(); err != nil {
		return Run{}, fmt.Errorf("new run: %w", err)
	}
	if run.ResultHash, err = ir.ResultHash(result); err != nil {
		return Run{}, fmt.Errorf("new run: %w", err)
	}
	return run, nil
}

// Inputs decodes the stored dataset and configuration.
func (r Run) Inputs() (*ir.Dataset, config.Config, error) {
	var ds ir.Dataset
	if err := json.Unmarshal(r.Dataset, &ds); err != nil {
		return nil, config.Config{}, fmt.Errorf("decode dataset of run %s: %w", r.ID, err)
	}
	var cfg config.Config
	if err := json.Unmarshal(r.Config, &cfg); err != nil {
		return nil, config.Config{}, fmt.Errorf("decode config of run %s: %w", r.ID, err)
	}
	return &ds, cfg, nil
}
