// Package priority computes composite item scores from weighted sub-scores.
//
// Four sub-scores (dependency, duration, resource, phase) are static per item
// and computed once. The continuity sub-score depends on the item placed most
// recently and is recomputed by the engines at every selection step.
package priority

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/testsched/internal/graph"
	"github.com/roach88/testsched/internal/ir"
)

// Weights are the scoring coefficients. Supplied once per run, immutable.
type Weights struct {
	Dependency float64 `json:"dependency" yaml:"dependency"`
	Duration   float64 `json:"duration" yaml:"duration"`
	Resource   float64 `json:"resource" yaml:"resource"`
	Phase      float64 `json:"phase" yaml:"phase"`
	Continuity float64 `json:"continuity" yaml:"continuity"`
}

// DefaultWeights returns the stock coefficients.
func DefaultWeights() Weights {
	return Weights{
		Dependency: 10,
		Duration:   2,
		Resource:   5,
		Phase:      20,
		Continuity: 50,
	}
}

// Validate rejects negative weights.
func (w Weights) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"dependency", w.Dependency},
		{"duration", w.Duration},
		{"resource", w.Resource},
		{"phase", w.Phase},
		{"continuity", w.Continuity},
	} {
		if f.value < 0 {
			return fmt.Errorf("priority weight %s must not be negative, got %v", f.name, f.value)
		}
	}
	return nil
}

// Breakdown holds the weighted contribution of each sub-score.
type Breakdown struct {
	Dependency float64 `json:"dependency"`
	Duration   float64 `json:"duration"`
	Resource   float64 `json:"resource"`
	Phase      float64 `json:"phase"`
	Continuity float64 `json:"continuity"`
	Total      float64 `json:"total"`
}

func (b Breakdown) sum() float64 {
	return b.Dependency + b.Duration + b.Resource + b.Phase + b.Continuity
}

// Context is the placement state a score may depend on.
type Context struct {
	// Last is the item most recently placed, or nil at the start of a run.
	Last *ir.TestItem
}

// Scorer computes the composite score of an item.
type Scorer interface {
	Score(item *ir.TestItem, ctx Context) Breakdown
}

// Calculator is the weighted Scorer.
type Calculator struct {
	weights Weights
	static  map[int]Breakdown
}

// raw holds the unnormalized magnitudes of one item.
type raw struct {
	descendants int
	duration    int
	resources   int
}

// NewCalculator computes the static sub-scores of every item in g.
// Raw magnitudes are gathered concurrently; each worker reads the immutable
// graph and writes only its own slot.
func NewCalculator(ctx context.Context, g *graph.Graph, phases ir.PhaseOrder, w Weights) (*Calculator, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	ids := g.IDs()
	raws := make([]raw, len(ids))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, id := range ids {
		i, id := i, id
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			item := g.Item(id)
			raws[i] = raw{
				descendants: len(g.Descendants(id)),
				duration:    item.Duration,
				resources:   item.ResourceCount(),
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("static priority: %w", err)
	}

	descendants := make([]int, len(raws))
	durations := make([]int, len(raws))
	resources := make([]int, len(raws))
	for i, r := range raws {
		descendants[i] = r.descendants
		durations[i] = r.duration
		resources[i] = r.resources
	}
	normDesc := Normalize(descendants)
	normDur := Normalize(durations)
	normRes := Normalize(resources)

	static := make(map[int]Breakdown, len(ids))
	for i, id := range ids {
		b := Breakdown{
			Dependency: w.Dependency * normDesc[i],
			Duration:   w.Duration * normDur[i],
			Resource:   w.Resource * normRes[i],
			Phase:      w.Phase * PhaseRank(phases, g.Item(id).Phase),
		}
		b.Total = b.sum()
		static[id] = b
	}

	return &Calculator{weights: w, static: static}, nil
}

// Static returns the static sub-scores of id (continuity is zero).
func (c *Calculator) Static(id int) Breakdown {
	return c.static[id]
}

// Score returns the full composite score, with continuity computed against ctx.Last.
func (c *Calculator) Score(item *ir.TestItem, ctx Context) Breakdown {
	b := c.static[item.ID]
	b.Continuity = c.weights.Continuity * ContinuityBonus(item, ctx.Last)
	b.Total = b.sum()
	return b
}

// Normalize maps values linearly onto [0, 1] using min-max scaling.
// When every value is equal the result is all zeros.
func Normalize(values []int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if hi == lo {
		return out
	}
	span := float64(hi - lo)
	for i, v := range values {
		out[i] = float64(v-lo) / span
	}
	return out
}

// PhaseRank returns (n-i)/n for the phase at index i of an order of length n:
// the first phase scores 1 and later phases strictly less. Unknown phases score 0.
func PhaseRank(phases ir.PhaseOrder, phase string) float64 {
	i := phases.Index(phase)
	if i < 0 {
		return 0
	}
	n := len(phases)
	return float64(n-i) / float64(n)
}

// ContinuityBonus returns 1 when last belongs to the same named group as item.
func ContinuityBonus(item, last *ir.TestItem) float64 {
	if last == nil || !item.HasGroup() {
		return 0
	}
	if last.Group == item.Group {
		return 1
	}
	return 0
}

// Before orders (id, score) pairs: higher score first, then ascending id.
func Before(idA int, scoreA float64, idB int, scoreB float64) bool {
	if scoreA != scoreB {
		return scoreA > scoreB
	}
	return idA < idB
}

// Select returns the best candidate under s given ctx, and its score.
// Returns nil for an empty candidate list.
func Select(candidates []*ir.TestItem, s Scorer, ctx Context) (*ir.TestItem, Breakdown) {
	var best *ir.TestItem
	var bestScore Breakdown
	for _, item := range candidates {
		score := s.Score(item, ctx)
		if best == nil || Before(item.ID, score.Total, best.ID, bestScore.Total) {
			best, bestScore = item, score
		}
	}
	return best, bestScore
}
