package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/testsched/internal/constraint"
	"github.com/roach88/testsched/internal/planner"
	"github.com/roach88/testsched/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Mode     string
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string `json:"run_id"`
	Mode          string `json:"mode"`
	RecordedHash  string `json:"recorded_hash"`
	ReplayedHash  string `json:"replayed_hash"`
	Deterministic bool   `json:"deterministic"`
	Error         string `json:"error,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [run-id]",
		Short: "Re-run recorded runs and verify determinism",
		Long: `Re-run recorded runs from their stored dataset and configuration and
compare the result hash with the recorded one.

With a run id (or a unique prefix of one) only that run is replayed;
otherwise every recorded run is.

Exit codes:
  0 - Every replayed run reproduced its result
  1 - Determinism verification failed (hash mismatch)
  2 - Command error (database not found, etc.)

Examples:
  testsched replay --db runs.db
  testsched replay 01923f --db runs.db
  testsched replay --db runs.db --mode sequence --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runReplay(opts, id, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "replay only runs of this mode (schedule|sequence)")

	return cmd
}

func runReplay(opts *ReplayOptions, id string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	st, err := openStore(f, logger, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var ids []string
	if id != "" {
		ids = []string{id}
	} else {
		runs, err := st.ListRuns(ctx, opts.Mode, 0)
		if err != nil {
			return f.CommandError(ErrCodeStore, "failed to list runs", err)
		}
		// Oldest first.
		for i := len(runs) - 1; i >= 0; i-- {
			ids = append(ids, runs[i].ID)
		}
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(ids)),
		TotalRuns:        len(ids),
		AllDeterministic: true,
	}
	if len(ids) == 0 {
		return f.Emit(result, func(w io.Writer) {
			fmt.Fprintln(w, "No runs recorded.")
		})
	}

	for _, runID := range ids {
		run, err := readRun(ctx, f, st, runID)
		if err != nil {
			return err
		}
		rr := replayRun(ctx, logger, run)
		f.VerboseLog("replayed %s: %s", rr.RunID, rr.ReplayedHash)
		if !rr.Deterministic {
			result.AllDeterministic = false
		}
		result.Runs = append(result.Runs, rr)
	}

	text := func(w io.Writer) {
		for _, rr := range result.Runs {
			if rr.Deterministic {
				fmt.Fprintf(w, "%s %s (%s) %s\n", styles.StatusOK, rr.RunID, rr.Mode, rr.RecordedHash[:12])
				continue
			}
			fmt.Fprintf(w, "%s %s (%s)\n", styles.StatusError, rr.RunID, rr.Mode)
			if rr.Error != "" {
				fmt.Fprintf(w, "  replay failed: %s\n", rr.Error)
			} else {
				fmt.Fprintf(w, "  recorded %s\n  replayed %s\n", rr.RecordedHash, rr.ReplayedHash)
			}
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Replayed %d run(s)\n", result.TotalRuns)
	}

	if !result.AllDeterministic {
		msg := "determinism verification failed"
		if err := f.Fail(result, ErrCodeDeterminism, msg, text); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return f.Emit(result, text)
}

// replayRun re-solves a stored run from its recorded inputs.
func replayRun(ctx context.Context, logger *slog.Logger, run store.Run) ReplayRunResult {
	rr := ReplayRunResult{RunID: run.ID, Mode: run.Mode, RecordedHash: run.ResultHash}

	hash, err := replayHash(ctx, logger, run)
	if err != nil {
		rr.Error = err.Error()
		return rr
	}
	rr.ReplayedHash = hash
	rr.Deterministic = hash == run.ResultHash
	return rr
}

func replayHash(ctx context.Context, logger *slog.Logger, run store.Run) (string, error) {
	ds, cfg, err := run.Inputs()
	if err != nil {
		return "", err
	}

	var mode constraint.Mode
	switch run.Mode {
	case store.ModeSchedule:
		mode = constraint.ModeTime
	case store.ModeSequence:
		mode = constraint.ModeSequence
	default:
		return "", fmt.Errorf("unknown run mode %q", run.Mode)
	}

	p := planner.New(cfg, planner.WithLogger(logger))
	if errs := p.LoadDataset(ds); len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	report, err := p.Replay(ctx, mode, run.MaxParallel, run.ResultHash)
	if err != nil {
		return "", err
	}
	return report.ActualHash, nil
}
