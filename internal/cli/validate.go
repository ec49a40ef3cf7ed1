package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Config string
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid        bool     `json:"valid"`
	Items        int      `json:"items"`
	Dependencies int      `json:"dependencies"`
	Resources    int      `json:"resources"`
	Phases       []string `json:"phases"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <dataset>",
		Short: "Validate a dataset without planning",
		Long: `Validate a dataset and optional configuration without running either engine.

Checks item fields, capacities, dependency references and phase membership,
reports every problem found, then checks the dependency graph for cycles.

Exit codes:
  0 - Dataset valid
  2 - Dataset, configuration or path invalid, or a dependency cycle`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "configuration file (YAML, JSON or CUE)")

	return cmd
}

func runValidate(opts *ValidateOptions, datasetPath string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	in, err := loadInputs(f, logger, datasetPath, opts.Config)
	if err != nil {
		return err
	}

	g := in.Planner.Graph()
	if err := g.Validate(); err != nil {
		return engineError(f, err)
	}
	result := ValidationResult{
		Valid:        true,
		Items:        g.Len(),
		Dependencies: len(g.Edges()),
		Resources:    len(in.Planner.Capacities()),
		Phases:       in.Planner.Phases(),
	}
	f.VerboseLog("phase order: %s", in.Planner.Phases())

	return f.Emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "%s Dataset valid: %d item(s), %d dependency edge(s), %d constrained resource(s)\n",
			styles.StatusOK, result.Items, result.Dependencies, result.Resources)
	})
}
