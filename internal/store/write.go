package store

import (
	"context"
	"fmt"
	"log/slog"
)

// WriteRun inserts a run and its conflicts in one transaction. The assigned
// seq is stored back into run.
func (s *Store) WriteRun(ctx context.Context, run *Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	var maxParallel any
	if run.MaxParallel != nil {
		maxParallel = *run.MaxParallel
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, mode, engine_version, result_version, dataset_hash, config_hash, result_hash,
		 success, item_count, conflict_count, max_parallel, dataset_json, config_json, result_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Mode,
		run.EngineVersion,
		run.ResultVersion,
		run.DatasetHash,
		run.ConfigHash,
		run.ResultHash,
		boolToInt(run.Success),
		run.ItemCount,
		run.ConflictCount,
		maxParallel,
		string(run.Dataset),
		string(run.Config),
		string(run.Result),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	for _, c := range run.Conflicts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_conflicts (run_id, item_id, item, code, reason, detail)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, c.ItemID, c.Item, c.Code, c.Reason, c.Detail)
		if err != nil {
			return fmt.Errorf("write run conflict %d: %w", c.ItemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("write run: seq: %w", err)
	}
	run.Seq = seq

	s.logger.Debug("run recorded",
		slog.String("run_id", run.ID),
		slog.Int64("seq", seq),
		slog.String("mode", run.Mode),
		slog.Bool("success", run.Success))
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
