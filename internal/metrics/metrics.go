// Package metrics exports engine activity as Prometheus collectors.
//
// Collectors live on a private registry so several planners can run in one
// process without clashing on the default registerer.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/testsched/internal/constraint"
	"github.com/roach88/testsched/internal/engine"
	"github.com/roach88/testsched/internal/ir"
)

const namespace = "testsched"

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
)

// Observer implements engine.Observer on top of Prometheus collectors.
type Observer struct {
	registry *prometheus.Registry

	placements *prometheus.CounterVec
	conflicts  *prometheus.CounterVec
	runs       *prometheus.CounterVec
	items      *prometheus.GaugeVec
	probes     prometheus.Histogram
}

var _ engine.Observer = (*Observer)(nil)

// New creates an Observer with its own registry.
func New() *Observer {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Observer{
		registry: reg,
		placements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "placements_total",
			Help:      "Items placed, by mode",
		}, []string{"mode"}),
		conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_total",
			Help:      "Items that could not be placed, by mode and reason",
		}, []string{"mode", "reason"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs, by mode and outcome",
		}, []string{"mode", "outcome"}),
		items: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_items",
			Help:      "Items in the result of the most recent run, by mode",
		}, []string{"mode"}),
		probes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probes_per_placement",
			Help:      "Candidate starts examined before an item was placed",
			Buckets:   []float64{1, 2, 5, 10, 50, 100, 1000, 10000},
		}),
	}
}

// ItemPlaced counts a placement. Sequence placements probe once.
func (o *Observer) ItemPlaced(mode constraint.Mode, _ *ir.TestItem, probes int) {
	o.placements.WithLabelValues(mode.String()).Inc()
	if mode == constraint.ModeTime {
		o.probes.Observe(float64(probes))
	}
}

// ItemConflicted counts a conflict under its reason code.
func (o *Observer) ItemConflicted(mode constraint.Mode, _ *ir.TestItem, reason constraint.Reason) {
	o.conflicts.WithLabelValues(mode.String(), string(reason)).Inc()
}

// RunFinished counts a finished run.
func (o *Observer) RunFinished(mode constraint.Mode, success bool, items int) {
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomePartial
	}
	o.runs.WithLabelValues(mode.String(), outcome).Inc()
	o.items.WithLabelValues(mode.String()).Set(float64(items))
}

// Registry exposes the collectors for scraping or inspection.
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

// WriteToTextfile writes all collectors in the Prometheus text format,
// suitable for the node_exporter textfile collector.
func (o *Observer) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, o.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
