package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/testsched/internal/config"
	"github.com/roach88/testsched/internal/dataset"
	"github.com/roach88/testsched/internal/ir"
	"github.com/roach88/testsched/internal/metrics"
	"github.com/roach88/testsched/internal/planner"
	"github.com/roach88/testsched/internal/store"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeWriteFailed = "E007" // File write error

	ErrCodeDataset    = "E101" // Dataset unreadable or malformed
	ErrCodeConfig     = "E102" // Configuration rejected by the schema
	ErrCodeValidation = "E103" // Items, capacities or phases invalid
	ErrCodeCycle      = "E104" // Dependency cycle

	ErrCodeConflicts   = "E201" // Some items could not be placed
	ErrCodeStore       = "E301" // Run history unavailable
	ErrCodeRunNotFound = "E302" // No run with the given id
	ErrCodeDeterminism = "E303" // Replay hash mismatch
	ErrCodeTestFailed  = "E401" // Scenario failures
)

// newFormatter builds the formatter for a command.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// inputs is a loaded dataset with its configuration.
type inputs struct {
	Dataset *ir.Dataset
	Config  config.Config
	Planner *planner.Planner
}

// loadInputs reads a dataset and optional configuration and loads them into
// a planner. Failures are reported through f and returned as exit code 2.
func loadInputs(f *OutputFormatter, logger *slog.Logger, datasetPath, configPath string, opts ...planner.Option) (*inputs, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, f.CommandError(ErrCodeNotFound, fmt.Sprintf("config not found: %s", configPath), err)
			}
			return nil, f.CommandError(ErrCodeConfig, "invalid configuration", err)
		}
		cfg = loaded
	}

	ds, err := dataset.Load(datasetPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, f.CommandError(ErrCodeNotFound, fmt.Sprintf("dataset not found: %s", datasetPath), err)
		}
		return nil, f.CommandError(ErrCodeDataset, "invalid dataset", err)
	}

	p := planner.New(cfg, append([]planner.Option{planner.WithLogger(logger)}, opts...)...)
	if errs := p.LoadDataset(ds); len(errs) > 0 {
		return nil, reportLoadErrors(f, errs)
	}
	return &inputs{Dataset: ds, Config: cfg, Planner: p}, nil
}

// reportLoadErrors prints every input problem and returns exit code 2.
func reportLoadErrors(f *OutputFormatter, errs []error) error {
	messages := make([]string, len(errs))
	for i, err := range errs {
		messages[i] = err.Error()
	}
	msg := fmt.Sprintf("dataset rejected with %d error(s)", len(errs))
	if f.Format == "json" {
		_ = f.Error(ErrCodeValidation, msg, messages)
	} else {
		fmt.Fprintf(f.Writer, "%s %s\n", styles.StatusError, msg)
		for _, m := range messages {
			fmt.Fprintf(f.Writer, "  %s\n", m)
		}
	}
	return WrapExitError(ExitCommandError, msg, errors.Join(errs...))
}

// engineError maps an error returned by a solve call onto the CLI taxonomy.
func engineError(f *OutputFormatter, err error) error {
	if ir.IsCircularDependencyError(err) {
		return f.CommandError(ErrCodeCycle, err.Error(), err)
	}
	if ir.IsValidationError(err) {
		return f.CommandError(ErrCodeValidation, err.Error(), err)
	}
	return f.CommandError(ErrCodeGeneric, "planning failed", err)
}

// recordOptions are the persistence flags shared by schedule and sequence.
type recordOptions struct {
	Database    string
	MetricsFile string
}

func (r *recordOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().StringVar(&r.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file")
}

// observer returns a metrics observer when a metrics file was requested.
func (r *recordOptions) observer() *metrics.Observer {
	if r.MetricsFile == "" {
		return nil
	}
	return metrics.New()
}

// finish records the run and writes metrics. It returns the stored run id,
// or "" when no database was given.
func (r *recordOptions) finish(ctx context.Context, f *OutputFormatter, logger *slog.Logger,
	in *inputs, maxParallel *int, result any, obs *metrics.Observer) (string, error) {
	if obs != nil {
		if err := obs.WriteToTextfile(r.MetricsFile); err != nil {
			return "", f.CommandError(ErrCodeWriteFailed, "failed to write metrics", err)
		}
	}
	if r.Database == "" {
		return "", nil
	}

	run, err := store.NewRun(in.Dataset, in.Config, maxParallel, result)
	if err != nil {
		return "", f.CommandError(ErrCodeStore, "failed to build run record", err)
	}
	st, err := store.Open(r.Database, logger)
	if err != nil {
		return "", f.CommandError(ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()
	if err := st.WriteRun(ctx, &run); err != nil {
		return "", f.CommandError(ErrCodeStore, "failed to record run", err)
	}
	return run.ID, nil
}

// openStore opens an existing history database.
func openStore(f *OutputFormatter, logger *slog.Logger, path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, f.CommandError(ErrCodeNotFound, fmt.Sprintf("database not found: %s", path), err)
	}
	st, err := store.Open(path, logger)
	if err != nil {
		return nil, f.CommandError(ErrCodeStore, "failed to open database", err)
	}
	return st, nil
}

// readRun loads one run, mapping a missing id onto its own error code.
func readRun(ctx context.Context, f *OutputFormatter, st *store.Store, id string) (store.Run, error) {
	run, err := st.ReadRun(ctx, id)
	if errors.Is(err, store.ErrRunNotFound) {
		return store.Run{}, f.CommandError(ErrCodeRunNotFound, fmt.Sprintf("run %s not found", id), err)
	}
	if err != nil {
		return store.Run{}, f.CommandError(ErrCodeStore, "failed to read run", err)
	}
	return run, nil
}
