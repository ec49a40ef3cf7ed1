package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/testsched/internal/engine"
	"github.com/roach88/testsched/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "show <run-id>",
		Short:         "Print a recorded run",
		Long:          "Print the metadata and stored result of one run. A unique prefix of the run id is accepted.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runShow(opts *ShowOptions, id string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	st, err := openStore(f, logger, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := readRun(cmd.Context(), f, st, id)
	if err != nil {
		return err
	}

	var render func(io.Writer)
	switch run.Mode {
	case store.ModeSchedule:
		var result engine.SchedulingResult
		if err := json.Unmarshal(run.Result, &result); err != nil {
			return f.CommandError(ErrCodeStore, "stored result is corrupt", err)
		}
		render = func(w io.Writer) { renderSchedule(w, &result) }
	case store.ModeSequence:
		var result engine.SequenceResult
		if err := json.Unmarshal(run.Result, &result); err != nil {
			return f.CommandError(ErrCodeStore, "stored result is corrupt", err)
		}
		render = func(w io.Writer) { renderSequence(w, &result) }
	default:
		return f.CommandError(ErrCodeStore, fmt.Sprintf("unknown run mode %q", run.Mode), nil)
	}

	return f.Emit(run, func(w io.Writer) {
		renderRunHeader(w, run)
		render(w)
	})
}
