package engine

import (
	"context"
	"log/slog"
	"sort"

	"github.com/roach88/testsched/internal/constraint"
	"github.com/roach88/testsched/internal/graph"
	"github.com/roach88/testsched/internal/ir"
	"github.com/roach88/testsched/internal/priority"
)

// Sequencer is the sequence-mode engine: it assigns each item a position
// and suggests which items may run side by side.
type Sequencer struct {
	cfg        Config
	graph      *graph.Graph
	capacities ir.Capacities
	opts       options
}

// NewSequencer creates a sequence-mode engine over g.
func NewSequencer(cfg Config, g *graph.Graph, capacities ir.Capacities, opts ...Option) (*Sequencer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, ir.NewValidationError("config", "%v", err)
	}
	return &Sequencer{
		cfg:        cfg,
		graph:      g,
		capacities: capacities,
		opts:       buildOptions(opts),
	}, nil
}

// group is a parallel group under construction.
type group struct {
	index int
	wave  int
	phase string
	items []*ir.TestItem
}

// Generate emits items wave by wave. Within a wave the highest scoring item
// goes next, with continuity recomputed against the item emitted before it.
func (s *Sequencer) Generate(ctx context.Context) (*SequenceResult, error) {
	r, err := newRun(ctx, constraint.ModeSequence, s.cfg, s.graph, s.capacities, s.opts)
	if err != nil {
		return nil, err
	}
	r.precheck(nil)

	waves := computeWaves(s.graph, s.cfg.Phases, r.levels)
	byWave := make(map[int][]*ir.TestItem)
	maxWave := 0
	for _, id := range s.graph.IDs() {
		byWave[waves[id]] = append(byWave[waves[id]], s.graph.Item(id))
		maxWave = max(maxWave, waves[id])
	}

	var (
		last     *ir.TestItem
		position int
		groups   []*group
		groupOf  = make(map[int]int, s.graph.Len())
	)
	for w := 0; w <= maxWave; w++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var waveGroups []*group
		for {
			candidates := pendingOf(r, byWave[w])
			if len(candidates) == 0 {
				break
			}
			item, score := priority.Select(candidates, r.scorer, priority.Context{Last: last})
			cand := constraint.Candidate{Position: position + 1}
			if v := r.opts.checker.CanPlace(item, cand, r.state); !v.OK {
				r.markConflict(item, v.Reason, constraint.ReasonNone, v.Detail)
				continue
			}
			position++
			if err := r.place(item, constraint.Placement{Position: position}, score.Total, 0); err != nil {
				return nil, err
			}
			last = item

			g := s.pack(r, item, position, waveGroups)
			if g == nil {
				g = &group{index: len(groups) + 1, wave: w, phase: item.Phase}
				groups = append(groups, g)
				waveGroups = append(waveGroups, g)
			}
			g.items = append(g.items, item)
			groupOf[item.ID] = g.index
		}
	}
	r.deadlock()

	result := s.aggregate(r, waves, groups, groupOf)
	s.opts.observer.RunFinished(constraint.ModeSequence, result.Success, len(result.Items))
	s.opts.logger.Info("sequence generated",
		slog.Bool("success", result.Success),
		slog.Int("items", len(result.Items)),
		slog.Int("parallel_groups", len(result.ParallelGroups)),
		slog.Int("conflicts", len(result.Conflicts)))
	return result, nil
}

// pack returns the first group of the current wave able to take item.
func (s *Sequencer) pack(r *run, item *ir.TestItem, position int, groups []*group) *group {
	for _, g := range groups {
		cand := constraint.Candidate{Position: position, Companions: g.items}
		if r.opts.checker.CanPlace(item, cand, r.state).OK {
			return g
		}
	}
	return nil
}

// computeWaves lifts dependency levels by phase barriers: the first wave of
// a phase follows the last wave of every earlier phase.
func computeWaves(g *graph.Graph, phases ir.PhaseOrder, levels map[int]int) map[int]int {
	byPhase := make(map[string][]int, len(phases))
	for _, id := range g.IDs() {
		p := g.Item(id).Phase
		byPhase[p] = append(byPhase[p], id)
	}

	waves := make(map[int]int, g.Len())
	next := 0
	for _, p := range phases {
		ids := byPhase[p]
		if len(ids) == 0 {
			continue
		}
		// Process in level order so prerequisites inside the phase come first.
		sort.SliceStable(ids, func(i, j int) bool { return levels[ids[i]] < levels[ids[j]] })
		top := next
		for _, id := range ids {
			w := next
			for _, dep := range g.Prerequisites(id) {
				if dw, ok := waves[dep]; ok {
					w = max(w, dw+1)
				}
			}
			waves[id] = w
			top = max(top, w)
		}
		next = top + 1
	}
	return waves
}

func pendingOf(r *run, items []*ir.TestItem) []*ir.TestItem {
	var out []*ir.TestItem
	for _, item := range items {
		if r.status[item.ID] == StatusPending {
			out = append(out, item)
		}
	}
	return out
}

func (s *Sequencer) aggregate(r *run, waves map[int]int, groups []*group, groupOf map[int]int) *SequenceResult {
	ranks := r.staticRanks()
	placedIDs := make([]int, 0, s.graph.Len())
	for _, id := range s.graph.IDs() {
		if _, ok := r.state.Placed(id); ok {
			placedIDs = append(placedIDs, id)
		}
	}

	items := make([]SequenceItem, 0, len(placedIDs))
	phaseCount := make(map[string]int)
	groupCount := make(map[string]int)
	levelCount := make(map[int]int)
	for _, id := range placedIDs {
		item := s.graph.Item(id)
		p, _ := r.state.Placed(id)
		items = append(items, SequenceItem{
			ID:                id,
			Name:              item.Name,
			Phase:             item.Phase,
			Group:             item.Group,
			Duration:          item.Duration,
			Sequence:          p.Position,
			DependencyLevel:   r.levels[id],
			Wave:              waves[id],
			PriorityRank:      ranks[id],
			Score:             round4(r.scores[id]),
			ParallelGroup:     groupOf[id],
			ResourceConflicts: s.resourceConflicts(r, item, placedIDs),
		})
		phaseCount[item.Phase]++
		if item.HasGroup() {
			groupCount[item.Group]++
		}
		levelCount[r.levels[id]]++
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Sequence < items[j].Sequence })

	parallel := make([]ParallelGroup, 0, len(groups))
	largest := 0
	for _, g := range groups {
		pg := ParallelGroup{Index: g.index, Wave: g.wave, Phase: g.phase}
		for _, item := range g.items {
			pg.Items = append(pg.Items, item.ID)
			pg.Names = append(pg.Names, item.Name)
		}
		largest = max(largest, len(g.items))
		parallel = append(parallel, pg)
	}

	avg := 0.0
	if len(groups) > 0 {
		avg = float64(len(items)) / float64(len(groups))
	}

	levels := make([]LevelCount, 0, len(levelCount))
	for level, n := range levelCount {
		levels = append(levels, LevelCount{Level: level, Count: n})
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Level < levels[j].Level })

	return &SequenceResult{
		Version:         ir.ResultVersion,
		Success:         len(r.conflicts) == 0,
		Items:           items,
		ParallelGroups:  parallel,
		PhaseBoundaries: phaseBoundaries(s.cfg.Phases, items),
		Statistics: SequenceStatistics{
			TotalItems:        len(items),
			ParallelGroups:    len(groups),
			MaxParallelism:    largest,
			AvgParallelism:    round4(avg),
			PhaseCounts:       phaseCounts(s.cfg.Phases, phaseCount),
			GroupCounts:       sortedCounts(groupCount),
			LevelDistribution: levels,
		},
		Conflicts: r.conflictList(),
		Warnings:  r.warningList(),
	}
}

// resourceConflicts names the other placed items that cannot run beside
// item on some constrained resource, by ascending id.
func (s *Sequencer) resourceConflicts(r *run, item *ir.TestItem, ids []int) []string {
	out := []string{}
	for _, id := range ids {
		if id == item.ID {
			continue
		}
		if len(r.state.Resources().Conflicting(item, s.graph.Item(id))) > 0 {
			out = append(out, s.graph.Item(id).Name)
		}
	}
	return out
}

// phaseBoundaries reports the first and last sequence number of each phase.
func phaseBoundaries(phases ir.PhaseOrder, items []SequenceItem) []PhaseBoundary {
	bounds := make(map[string]*PhaseBoundary, len(phases))
	for _, it := range items {
		b, ok := bounds[it.Phase]
		if !ok {
			b = &PhaseBoundary{Phase: it.Phase, First: it.Sequence}
			bounds[it.Phase] = b
		}
		b.First = min(b.First, it.Sequence)
		b.Last = max(b.Last, it.Sequence)
		b.Count++
	}
	out := make([]PhaseBoundary, 0, len(bounds))
	for _, p := range phases {
		if b, ok := bounds[p]; ok {
			out = append(out, *b)
		}
	}
	return out
}
