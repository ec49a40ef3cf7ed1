package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/testsched/internal/engine"
	"github.com/roach88/testsched/internal/planner"
)

// ScheduleOptions holds flags for the schedule command.
type ScheduleOptions struct {
	*RootOptions
	recordOptions
	Config      string
	MaxParallel int
}

// ScheduleOutput is the JSON payload of the schedule command.
type ScheduleOutput struct {
	RunID  string                   `json:"run_id,omitempty"`
	Result *engine.SchedulingResult `json:"result"`
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScheduleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schedule <dataset>",
		Short: "Place items on working-calendar intervals",
		Long: `Run the time-mode engine: every item gets a start and end on the working
calendar such that dependencies, phase order, resource capacities, group
exclusivity and the parallel bounds all hold.

Exit codes:
  0 - Every item placed
  1 - Some items could not be placed (see conflicts)
  2 - Command error (invalid input, cycle, database error)

Examples:
  testsched schedule testdata/datasets/sample.yaml
  testsched schedule data.yaml --config plan.cue --max-parallel 2
  testsched schedule data.yaml --db runs.db --metrics-file testsched.prom`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "configuration file (YAML, JSON or CUE)")
	cmd.Flags().IntVar(&opts.MaxParallel, "max-parallel", 0, "override the global parallel bound")
	opts.recordOptions.bind(cmd)

	return cmd
}

func runSchedule(opts *ScheduleOptions, datasetPath string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	var maxParallel *int
	if cmd.Flags().Changed("max-parallel") {
		if opts.MaxParallel < 1 {
			return f.CommandError(ErrCodeConfig, "--max-parallel must be at least 1", nil)
		}
		maxParallel = &opts.MaxParallel
	}

	obs := opts.observer()
	var plannerOpts []planner.Option
	if obs != nil {
		plannerOpts = append(plannerOpts, planner.WithObserver(obs))
	}
	in, err := loadInputs(f, logger, datasetPath, opts.Config, plannerOpts...)
	if err != nil {
		return err
	}

	result, err := in.Planner.SolveSchedule(ctx, maxParallel)
	if err != nil {
		return engineError(f, err)
	}
	logger.Debug("schedule finished",
		slog.Bool("success", result.Success),
		slog.Int("makespan_hours", result.MakespanHours))

	runID, err := opts.finish(ctx, f, logger, in, maxParallel, result, obs)
	if err != nil {
		return err
	}

	out := ScheduleOutput{RunID: runID, Result: result}
	text := func(w io.Writer) {
		renderSchedule(w, result)
		if runID != "" {
			fmt.Fprintf(w, "\nRecorded run %s\n", runID)
		}
	}
	if !result.Success {
		msg := fmt.Sprintf("%d item(s) could not be placed", len(result.Conflicts))
		if err := f.Fail(out, ErrCodeConflicts, msg, text); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return f.Emit(out, text)
}
