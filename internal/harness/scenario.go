package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one planning scenario and what its plan must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Dataset is the path of the dataset file, relative to the scenario.
	Dataset string `yaml:"dataset"`

	// Config is an optional configuration file, relative to the scenario.
	Config string `yaml:"config,omitempty"`

	// Mode is "schedule" (time mode) or "sequence".
	Mode string `yaml:"mode"`

	// MaxParallel overrides the configured bound in time mode.
	MaxParallel *int `yaml:"max_parallel,omitempty"`

	// Expect checks the overall outcome.
	Expect ExpectClause `yaml:"expect"`

	// Assertions validate the produced plan.
	Assertions []Assertion `yaml:"assertions"`
}

// ExpectClause specifies the expected outcome.
type ExpectClause struct {
	// Success is the expected success flag; nil skips the check.
	Success *bool `yaml:"success,omitempty"`

	// Conflicts lists the exact set of conflicted item names; nil skips the check.
	Conflicts []string `yaml:"conflicts,omitempty"`
}

// Assertion validates a property of the plan.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Before and After name items (precedes).
	Before string `yaml:"before,omitempty"`
	After  string `yaml:"after,omitempty"`

	// Items lists item names (no_overlap).
	Items []string `yaml:"items,omitempty"`

	// Item names one item (conflict).
	Item string `yaml:"item,omitempty"`
}

// Assertion type constants.
const (
	AssertPrecedes      = "precedes"
	AssertNoOverlap     = "no_overlap"
	AssertPhaseOrder    = "phase_order"
	AssertCapacity      = "capacity"
	AssertDependencies  = "dependencies"
	AssertConflict      = "conflict"
	AssertDeterministic = "deterministic"
)

// Scenario modes.
const (
	ModeSchedule = "schedule"
	ModeSequence = "sequence"
)

// LoadScenario reads and parses a scenario YAML file.
// Dataset and config paths are resolved relative to the file. Unknown
// fields and missing required fields are errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	scenario.Dataset = resolve(base, scenario.Dataset)
	scenario.Config = resolve(base, scenario.Config)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Dataset == "" {
		return fmt.Errorf("dataset is required")
	}
	if _, err := os.Stat(s.Dataset); os.IsNotExist(err) {
		return fmt.Errorf("dataset file not found: %s", s.Dataset)
	}
	if s.Config != "" {
		if _, err := os.Stat(s.Config); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", s.Config)
		}
	}

	switch s.Mode {
	case ModeSchedule:
	case ModeSequence:
		if s.MaxParallel != nil {
			return fmt.Errorf("max_parallel applies to schedule mode only")
		}
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeSchedule, ModeSequence, s.Mode)
	}
	if s.MaxParallel != nil && *s.MaxParallel < 1 {
		return fmt.Errorf("max_parallel must be at least 1")
	}

	if len(s.Assertions) == 0 && s.Expect.Success == nil && s.Expect.Conflicts == nil {
		return fmt.Errorf("at least one expectation or assertion is required")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertPrecedes:
		if a.Before == "" || a.After == "" {
			return fmt.Errorf("assertions[%d]: before and after are required for precedes", index)
		}
	case AssertNoOverlap:
		if len(a.Items) < 2 {
			return fmt.Errorf("assertions[%d]: at least two items are required for no_overlap", index)
		}
	case AssertConflict:
		if a.Item == "" {
			return fmt.Errorf("assertions[%d]: item is required for conflict", index)
		}
	case AssertPhaseOrder, AssertCapacity, AssertDependencies, AssertDeterministic:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
