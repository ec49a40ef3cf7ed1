package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/testsched/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Mode     string
	Limit    int
}

// HistoryResult is the JSON payload of the history command.
type HistoryResult struct {
	Runs  []store.Run `json:"runs"`
	Total int         `json:"total"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		Example: `  testsched history --db runs.db
  testsched history --db runs.db --mode schedule --limit 5`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "only runs of this mode (schedule|sequence)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs (0 for all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	switch opts.Mode {
	case "", store.ModeSchedule, store.ModeSequence:
	default:
		return f.CommandError(ErrCodeGeneric, fmt.Sprintf("invalid mode %q", opts.Mode), nil)
	}

	st, err := openStore(f, logger, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context(), opts.Mode, opts.Limit)
	if err != nil {
		return f.CommandError(ErrCodeStore, "failed to list runs", err)
	}
	if runs == nil {
		runs = []store.Run{}
	}

	return f.Emit(HistoryResult{Runs: runs, Total: len(runs)}, func(w io.Writer) {
		renderRuns(w, runs)
	})
}
