package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned when no run matches an id.
var ErrRunNotFound = errors.New("run not found")

// ReadRun returns one run with its JSON blobs and conflicts. A unique id
// prefix is accepted in place of the full id.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, mode, engine_version, result_version, dataset_hash, config_hash, result_hash,
		       success, item_count, conflict_count, max_parallel, dataset_json, config_json, result_json
		FROM runs
		WHERE id = ? OR id LIKE ? || '%'
		ORDER BY seq ASC, id COLLATE BINARY ASC
		LIMIT 2
	`, id, id)
	if err != nil {
		return Run{}, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run         Run
			success     int
			maxParallel sql.NullInt64
			ds, cfg, rs string
		)
		if err := rows.Scan(&run.Seq, &run.ID, &run.Mode, &run.EngineVersion, &run.ResultVersion,
			&run.DatasetHash, &run.ConfigHash, &run.ResultHash, &success, &run.ItemCount,
			&run.ConflictCount, &maxParallel, &ds, &cfg, &rs); err != nil {
			return Run{}, fmt.Errorf("scan run: %w", err)
		}
		run.Success = success == 1
		if maxParallel.Valid {
			n := int(maxParallel.Int64)
			run.MaxParallel = &n
		}
		run.Dataset, run.Config, run.Result = []byte(ds), []byte(cfg), []byte(rs)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("iterate runs: %w", err)
	}

	switch {
	case len(runs) == 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case len(runs) > 1 && runs[0].ID != id:
		return Run{}, fmt.Errorf("run id prefix %q is ambiguous", id)
	}

	run := runs[0]
	run.Conflicts, err = s.readConflicts(ctx, run.ID)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

func (s *Store) readConflicts(ctx context.Context, runID string) ([]RunConflict, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, item, code, reason, detail
		FROM run_conflicts
		WHERE run_id = ?
		ORDER BY item_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query conflicts: %w", err)
	}
	defer rows.Close()

	conflicts := []RunConflict{}
	for rows.Next() {
		var c RunConflict
		if err := rows.Scan(&c.ItemID, &c.Item, &c.Code, &c.Reason, &c.Detail); err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		conflicts = append(conflicts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conflicts: %w", err)
	}
	return conflicts, nil
}

// ListRuns returns run summaries, newest first, without JSON blobs or
// conflicts. A non-empty mode filters by mode; limit ≤ 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, mode string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, mode, engine_version, result_version, dataset_hash, config_hash, result_hash,
		       success, item_count, conflict_count
		FROM runs
		WHERE ? = '' OR mode = ?
		ORDER BY seq DESC, id COLLATE BINARY ASC
		LIMIT ?
	`, mode, mode, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		var success int
		if err := rows.Scan(&run.Seq, &run.ID, &run.Mode, &run.EngineVersion, &run.ResultVersion,
			&run.DatasetHash, &run.ConfigHash, &run.ResultHash, &success, &run.ItemCount,
			&run.ConflictCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Success = success == 1
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
