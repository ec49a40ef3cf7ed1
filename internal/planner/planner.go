// Package planner exposes the three operations of the scheduling core:
// LoadData, SolveSchedule and GenerateSequence.
//
// A Planner holds one validated dataset at a time. LoadData only checks and
// indexes its input; the algorithms run in SolveSchedule and
// GenerateSequence, each on fresh engine state.
package planner

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/testsched/internal/config"
	"github.com/roach88/testsched/internal/constraint"
	"github.com/roach88/testsched/internal/engine"
	"github.com/roach88/testsched/internal/graph"
	"github.com/roach88/testsched/internal/ir"
)

// itemValidate checks TestItem struct tags. Field names in its errors are
// the json names used by input files.
var itemValidate *validator.Validate

func init() {
	itemValidate = validator.New(validator.WithRequiredStructEnabled())
	itemValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// ErrNotLoaded is returned by the engine entry points before a successful LoadData.
var ErrNotLoaded = errors.New("no dataset loaded")

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) { p.logger = l }
}

// WithObserver forwards engine events to obs.
func WithObserver(obs engine.Observer) Option {
	return func(p *Planner) { p.observer = obs }
}

// WithEngineOptions appends raw engine options, such as an injected scorer.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(p *Planner) { p.engineOpts = append(p.engineOpts, opts...) }
}

// Planner validates input and runs the engines.
type Planner struct {
	cfg        config.Config
	logger     *slog.Logger
	observer   engine.Observer
	engineOpts []engine.Option

	phases     ir.PhaseOrder
	graph      *graph.Graph
	capacities ir.Capacities
}

// New creates a Planner with an immutable configuration.
func New(cfg config.Config, opts ...Option) *Planner {
	p := &Planner{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Config returns the planner configuration.
func (p *Planner) Config() config.Config {
	return p.cfg
}

// Phases returns the phase order in effect for the loaded data.
func (p *Planner) Phases() ir.PhaseOrder {
	return p.phases
}

// Graph returns the dependency graph of the loaded data, or nil.
func (p *Planner) Graph() *graph.Graph {
	return p.graph
}

// Capacities returns the resource capacities of the loaded data.
func (p *Planner) Capacities() ir.Capacities {
	return p.capacities
}

// LoadDataset loads a complete dataset. The configured phase order takes
// precedence over the dataset's own.
func (p *Planner) LoadDataset(ds *ir.Dataset) []error {
	phases := ir.PhaseOrder(p.cfg.PhaseOrder)
	if len(phases) == 0 {
		phases = ds.Phases
	}
	return p.load(ds.ItemsByID(), ds.Dependencies, ds.Capacities, phases)
}

// LoadData validates and indexes items, their dependencies (keyed by item
// name) and resource capacities using the configured phase order. It
// returns every problem found; on any error the previous data is kept.
func (p *Planner) LoadData(items []ir.TestItem, dependencies map[string][]string, capacities ir.Capacities) []error {
	ptrs := make([]*ir.TestItem, len(items))
	for i := range items {
		ptrs[i] = &items[i]
	}
	return p.load(ptrs, dependencies, capacities, ir.PhaseOrder(p.cfg.PhaseOrder))
}

func (p *Planner) load(items []*ir.TestItem, dependencies map[string][]string, capacities ir.Capacities, phases ir.PhaseOrder) []error {
	var errs []error
	for _, item := range items {
		errs = append(errs, validateItem(item)...)
	}
	for _, name := range capacities.Names() {
		if capacities[name] < 1 {
			errs = append(errs, ir.NewValidationError("instruments",
				"capacity of %q must be at least 1, got %d", name, capacities[name]))
		}
	}

	g, err := graph.Build(items, dependencies)
	if err != nil {
		errs = append(errs, unjoin(err)...)
	} else {
		errs = append(errs, engine.ValidatePhases(g, phases)...)
	}

	if len(errs) > 0 {
		p.logger.Warn("dataset rejected", slog.Int("errors", len(errs)))
		return errs
	}

	caps := make(ir.Capacities, len(capacities))
	for name, c := range capacities {
		caps[name] = c
	}
	p.graph, p.capacities, p.phases = g, caps, phases
	p.logger.Info("dataset loaded",
		slog.Int("items", g.Len()),
		slog.Int("dependencies", len(g.Edges())),
		slog.Int("resources", len(caps)),
		slog.String("phases", phases.String()))
	return nil
}

// validateItem runs struct-tag validation on one item.
func validateItem(item *ir.TestItem) []error {
	err := itemValidate.Struct(item)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []error{ir.NewItemValidationError(item.ID, "item", "%v", err)}
	}
	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ir.NewItemValidationError(item.ID, fieldPath(fe), "%s", describe(fe)))
	}
	return out
}

// fieldPath drops the struct name from a namespace such as TestItem.required_instruments[0].qty.
func fieldPath(fe validator.FieldError) string {
	_, rest, found := strings.Cut(fe.Namespace(), ".")
	if !found {
		return fe.Field()
	}
	return rest
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// unjoin flattens an errors.Join result.
func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

// SolveSchedule runs the time-mode engine. A non-nil maxParallel overrides
// the configured global parallel bound.
func (p *Planner) SolveSchedule(ctx context.Context, maxParallel *int) (*engine.SchedulingResult, error) {
	if p.graph == nil {
		return nil, ErrNotLoaded
	}
	cfg := p.cfg.Engine(p.phases)
	if maxParallel != nil {
		cfg = cfg.WithMaxParallel(*maxParallel)
	}
	s, err := engine.NewScheduler(cfg, p.graph, p.capacities, p.options()...)
	if err != nil {
		return nil, err
	}
	return s.Solve(ctx)
}

// GenerateSequence runs the sequence-mode engine.
func (p *Planner) GenerateSequence(ctx context.Context) (*engine.SequenceResult, error) {
	if p.graph == nil {
		return nil, ErrNotLoaded
	}
	s, err := engine.NewSequencer(p.cfg.Engine(p.phases), p.graph, p.capacities, p.options()...)
	if err != nil {
		return nil, err
	}
	return s.Generate(ctx)
}

// Replay re-runs mode over the loaded dataset and compares the result hash
// with expected. maxParallel applies to time mode only.
func (p *Planner) Replay(ctx context.Context, mode constraint.Mode, maxParallel *int, expected string) (*engine.ReplayReport, error) {
	if p.graph == nil {
		return nil, ErrNotLoaded
	}
	cfg := p.cfg.Engine(p.phases)
	if maxParallel != nil && mode == constraint.ModeTime {
		cfg = cfg.WithMaxParallel(*maxParallel)
	}
	return engine.Replay(ctx, mode, cfg, p.graph, p.capacities, expected, p.options()...)
}

func (p *Planner) options() []engine.Option {
	opts := []engine.Option{engine.WithLogger(p.logger)}
	if p.observer != nil {
		opts = append(opts, engine.WithObserver(p.observer))
	}
	return append(opts, p.engineOpts...)
}
