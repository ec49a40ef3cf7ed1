// Package config loads and validates testsched configuration.
//
// Every document, whether YAML, JSON or CUE, is unified with the embedded
// #Config schema. The schema supplies defaults, rejects unknown keys and
// enforces bounds before the result is decoded into Go values.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/testsched/internal/calendar"
	"github.com/roach88/testsched/internal/constraint"
	"github.com/roach88/testsched/internal/engine"
	"github.com/roach88/testsched/internal/ir"
	"github.com/roach88/testsched/internal/priority"
)

//go:embed schema.cue
var schemaSource string

// Scheduling bounds concurrency and search.
type Scheduling struct {
	MaxParallel         int  `json:"max_parallel" yaml:"max_parallel"`
	MaxParallelPerPhase int  `json:"max_parallel_per_phase" yaml:"max_parallel_per_phase"`
	MaxLookaheadDays    int  `json:"max_lookahead_days" yaml:"max_lookahead_days"`
	MaxDailyStarts      int  `json:"max_daily_starts" yaml:"max_daily_starts"`
	MaxProbes           int  `json:"max_probes" yaml:"max_probes"`
	GroupExclusive      bool `json:"group_exclusive" yaml:"group_exclusive"`
}

// WorkingTime configures the calendar.
type WorkingTime struct {
	HoursPerDay        int  `json:"hours_per_day" yaml:"hours_per_day"`
	RestDayCycle       int  `json:"rest_day_cycle" yaml:"rest_day_cycle"`
	ShortTestThreshold int  `json:"short_test_threshold" yaml:"short_test_threshold"`
	ForbidRestDaySpan  bool `json:"forbid_rest_day_span" yaml:"forbid_rest_day_span"`
	DayStartHour       int  `json:"day_start_hour" yaml:"day_start_hour"`
}

// Config is the complete configuration of one run. Treat it as immutable
// once loaded.
type Config struct {
	Scheduling      Scheduling       `json:"scheduling" yaml:"scheduling"`
	WorkingTime     WorkingTime      `json:"working_time" yaml:"working_time"`
	PriorityWeights priority.Weights `json:"priority_weights" yaml:"priority_weights"`
	PhaseOrder      []string         `json:"phase_order" yaml:"phase_order"`
}

// Default returns the stock configuration with no explicit phase order.
func Default() Config {
	cal := calendar.DefaultConfig()
	return Config{
		Scheduling: Scheduling{
			MaxParallel:         3,
			MaxParallelPerPhase: 3,
			MaxLookaheadDays:    engine.DefaultMaxLookaheadDays,
			MaxDailyStarts:      5,
			MaxProbes:           engine.DefaultMaxProbes,
			GroupExclusive:      true,
		},
		WorkingTime: WorkingTime{
			HoursPerDay:        cal.HoursPerDay,
			RestDayCycle:       cal.RestDayCycle,
			ShortTestThreshold: cal.ShortTestThreshold,
			ForbidRestDaySpan:  cal.ForbidRestDaySpan,
			DayStartHour:       cal.DayStartHour,
		},
		PriorityWeights: priority.DefaultWeights(),
		PhaseOrder:      []string{},
	}
}

// Error reports a configuration document that failed schema validation.
type Error struct {
	Path    string
	Details []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %s", e.Path, strings.Join(e.Details, "; "))
}

// Load reads a configuration file. The format is chosen by extension:
// .cue is compiled as CUE, anything else is parsed as YAML (JSON included).
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, data)
}

// Parse decodes a configuration document named path.
func Parse(path string, data []byte) (Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue")).
		LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}

	var doc cue.Value
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		doc = ctx.CompileBytes(data, cue.Filename(path))
	} else {
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, &Error{Path: path, Details: []string{err.Error()}}
		}
		if raw == nil {
			raw = map[string]any{}
		}
		doc = ctx.Encode(raw)
	}
	if err := doc.Err(); err != nil {
		return Config{}, &Error{Path: path, Details: details(err)}
	}

	unified := schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, &Error{Path: path, Details: details(err)}
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return Config{}, &Error{Path: path, Details: details(err)}
	}
	if cfg.PhaseOrder == nil {
		cfg.PhaseOrder = []string{}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// details flattens a CUE error list into messages with positions.
func details(err error) []string {
	var out []string
	for _, e := range cueerrors.Errors(err) {
		msg := e.Error()
		if pos := e.Position(); pos.IsValid() {
			msg = fmt.Sprintf("%s:%d:%d: %s", pos.Filename(), pos.Line(), pos.Column(), msg)
		}
		out = append(out, msg)
	}
	if len(out) == 0 {
		out = append(out, err.Error())
	}
	return out
}

// Validate re-checks the schema bounds for configurations built in code.
func (c Config) Validate() error {
	phases := ir.PhaseOrder(c.PhaseOrder)
	if len(phases) == 0 {
		// The dataset may supply the phase order instead.
		phases = ir.PhaseOrder{"-"}
	}
	if err := c.Engine(phases).Validate(); err != nil {
		return ir.NewValidationError("config", "%v", err)
	}
	return nil
}

// Engine derives the engine configuration. A non-empty phases argument
// overrides the configured phase order.
func (c Config) Engine(phases ir.PhaseOrder) engine.Config {
	if len(phases) == 0 {
		phases = ir.PhaseOrder(c.PhaseOrder)
	}
	return engine.Config{
		Phases: phases,
		Limits: constraint.Limits{
			MaxParallel:         c.Scheduling.MaxParallel,
			MaxParallelPerPhase: c.Scheduling.MaxParallelPerPhase,
			MaxDailyStarts:      c.Scheduling.MaxDailyStarts,
			GroupExclusive:      c.Scheduling.GroupExclusive,
		},
		Calendar: calendar.Config{
			HoursPerDay:        c.WorkingTime.HoursPerDay,
			RestDayCycle:       c.WorkingTime.RestDayCycle,
			ShortTestThreshold: c.WorkingTime.ShortTestThreshold,
			ForbidRestDaySpan:  c.WorkingTime.ForbidRestDaySpan,
			DayStartHour:       c.WorkingTime.DayStartHour,
		},
		Weights:          c.PriorityWeights,
		MaxLookaheadDays: c.Scheduling.MaxLookaheadDays,
		MaxProbes:        c.Scheduling.MaxProbes,
	}
}

// Hash identifies the configuration by content.
func (c Config) Hash() (string, error) {
	return ir.HashCanonical(ir.DomainConfig, c)
}
