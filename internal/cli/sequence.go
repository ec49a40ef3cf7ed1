package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/testsched/internal/engine"
	"github.com/roach88/testsched/internal/planner"
)

// SequenceOptions holds flags for the sequence command.
type SequenceOptions struct {
	*RootOptions
	recordOptions
	Config string
}

// SequenceOutput is the JSON payload of the sequence command.
type SequenceOutput struct {
	RunID  string                 `json:"run_id,omitempty"`
	Result *engine.SequenceResult `json:"result"`
}

// NewSequenceCommand creates the sequence command.
func NewSequenceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SequenceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sequence <dataset>",
		Short: "Emit an ordered execution list with parallel groups",
		Long: `Run the sequence-mode engine: a total order of items that respects
dependencies and phase order, with suggested groups of items that can run
together without sharing a constrained resource or a test group.

Exit codes:
  0 - Every item sequenced
  1 - Some items could not be sequenced
  2 - Command error (invalid input, cycle, database error)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSequence(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "configuration file (YAML, JSON or CUE)")
	opts.recordOptions.bind(cmd)

	return cmd
}

func runSequence(opts *SequenceOptions, datasetPath string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	obs := opts.observer()
	var plannerOpts []planner.Option
	if obs != nil {
		plannerOpts = append(plannerOpts, planner.WithObserver(obs))
	}
	in, err := loadInputs(f, logger, datasetPath, opts.Config, plannerOpts...)
	if err != nil {
		return err
	}

	result, err := in.Planner.GenerateSequence(ctx)
	if err != nil {
		return engineError(f, err)
	}
	logger.Debug("sequence finished",
		slog.Bool("success", result.Success),
		slog.Int("groups", result.Statistics.ParallelGroups))

	runID, err := opts.finish(ctx, f, logger, in, nil, result, obs)
	if err != nil {
		return err
	}

	out := SequenceOutput{RunID: runID, Result: result}
	text := func(w io.Writer) {
		renderSequence(w, result)
		if runID != "" {
			fmt.Fprintf(w, "\nRecorded run %s\n", runID)
		}
	}
	if !result.Success {
		msg := fmt.Sprintf("%d item(s) could not be sequenced", len(result.Conflicts))
		if err := f.Fail(out, ErrCodeConflicts, msg, text); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return f.Emit(out, text)
}
