package engine

import (
	"math"
	"sort"

	"github.com/roach88/testsched/internal/constraint"
	"github.com/roach88/testsched/internal/ir"
)

// Status is the lifecycle state of an item in time mode.
type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusConflict  Status = "conflict"
)

// ScheduledItem is the time-mode placement of one item.
type ScheduledItem struct {
	ID              int     `json:"test_id"`
	Name            string  `json:"test_item"`
	Phase           string  `json:"test_phase"`
	Group           string  `json:"test_group"`
	Duration        int     `json:"duration"`
	DependencyLevel int     `json:"dependency_level"`
	Status          Status  `json:"status"`
	Start           int     `json:"start"`
	End             int     `json:"end"`
	StartLabel      string  `json:"start_label,omitempty"`
	EndLabel        string  `json:"end_label,omitempty"`
	Score           float64 `json:"score"`
}

// NamedCount is a deterministic (name, count) pair.
type NamedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PhaseSummary aggregates one phase of a schedule.
type PhaseSummary struct {
	Phase     string `json:"phase"`
	Items     int    `json:"items"`
	Scheduled int    `json:"scheduled"`
	Conflicts int    `json:"conflicts"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
}

// ResourceUtilization is busy time over available time for one resource.
type ResourceUtilization struct {
	Resource       string  `json:"resource"`
	Capacity       int     `json:"capacity"`
	BusyHours      int     `json:"busy_hours"`
	AvailableHours int     `json:"available_hours"`
	Utilization    float64 `json:"utilization"`
}

// Decision is one entry of the placement trace.
type Decision struct {
	Seq    int64             `json:"seq"`
	ItemID int               `json:"item_id"`
	Action string            `json:"action"`
	Score  float64           `json:"score"`
	Start  int               `json:"start,omitempty"`
	End    int               `json:"end,omitempty"`
	Probes int               `json:"probes,omitempty"`
	Reason constraint.Reason `json:"reason,omitempty"`
}

// Decision actions.
const (
	ActionPlaced   = "placed"
	ActionConflict = "conflict"
)

// SchedulingResult is the immutable output of a time-mode run.
type SchedulingResult struct {
	Version            string                `json:"version"`
	Success            bool                  `json:"success"`
	Items              []ScheduledItem       `json:"items"`
	MakespanHours      int                   `json:"makespan_hours"`
	WorkingHours       int                   `json:"working_hours"`
	CalendarDays       int                   `json:"calendar_days"`
	Phases             []PhaseSummary        `json:"phases"`
	Groups             []NamedCount          `json:"groups"`
	Utilization        []ResourceUtilization `json:"utilization"`
	ParallelEfficiency float64               `json:"parallel_efficiency"`
	MaxParallel        int                   `json:"max_parallel"`
	Conflicts          []Conflict            `json:"conflicts"`
	Warnings           []string              `json:"warnings"`
	Trace              []Decision            `json:"trace"`
}

// Item returns the placement of the named item.
func (r *SchedulingResult) Item(name string) (ScheduledItem, bool) {
	for _, it := range r.Items {
		if it.Name == name {
			return it, true
		}
	}
	return ScheduledItem{}, false
}

// ParallelGroup is a set of items of one wave suggested to run concurrently.
type ParallelGroup struct {
	Index int      `json:"index"`
	Wave  int      `json:"wave"`
	Phase string   `json:"phase"`
	Items []int    `json:"items"`
	Names []string `json:"names"`
}

// SequenceItem is the sequence-mode placement of one item.
type SequenceItem struct {
	ID                int      `json:"test_id"`
	Name              string   `json:"test_item"`
	Phase             string   `json:"test_phase"`
	Group             string   `json:"test_group"`
	Duration          int      `json:"duration"`
	Sequence          int      `json:"sequence"`
	DependencyLevel   int      `json:"dependency_level"`
	Wave              int      `json:"wave"`
	PriorityRank      int      `json:"priority_rank"`
	Score             float64  `json:"score"`
	ParallelGroup     int      `json:"parallel_group"`
	ResourceConflicts []string `json:"resource_conflicts"`
}

// PhaseBoundary is the first and last sequence number of one phase.
type PhaseBoundary struct {
	Phase string `json:"phase"`
	First int    `json:"first"`
	Last  int    `json:"last"`
	Count int    `json:"count"`
}

// LevelCount is the number of items at one dependency level.
type LevelCount struct {
	Level int `json:"level"`
	Count int `json:"count"`
}

// SequenceStatistics summarizes a sequence.
type SequenceStatistics struct {
	TotalItems        int          `json:"total_items"`
	ParallelGroups    int          `json:"parallel_groups"`
	MaxParallelism    int          `json:"max_parallelism"`
	AvgParallelism    float64      `json:"avg_parallelism"`
	PhaseCounts       []NamedCount `json:"phase_counts"`
	GroupCounts       []NamedCount `json:"group_counts"`
	LevelDistribution []LevelCount `json:"level_distribution"`
}

// SequenceResult is the immutable output of a sequence-mode run.
type SequenceResult struct {
	Version         string             `json:"version"`
	Success         bool               `json:"success"`
	Items           []SequenceItem     `json:"items"`
	ParallelGroups  []ParallelGroup    `json:"parallel_groups"`
	PhaseBoundaries []PhaseBoundary    `json:"phase_boundaries"`
	Statistics      SequenceStatistics `json:"statistics"`
	Conflicts       []Conflict         `json:"conflicts"`
	Warnings        []string           `json:"warnings"`
}

// Item returns the sequence entry of the named item.
func (r *SequenceResult) Item(name string) (SequenceItem, bool) {
	for _, it := range r.Items {
		if it.Name == name {
			return it, true
		}
	}
	return SequenceItem{}, false
}

// round4 rounds to four decimals so floats serialize identically everywhere.
func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}

// sortedCounts turns a count map into a name-ordered slice.
func sortedCounts(counts map[string]int) []NamedCount {
	out := make([]NamedCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, NamedCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// phaseCounts counts items per phase in phase order; phases without items are omitted.
func phaseCounts(phases ir.PhaseOrder, counts map[string]int) []NamedCount {
	out := make([]NamedCount, 0, len(phases))
	for _, p := range phases {
		if n := counts[p]; n > 0 {
			out = append(out, NamedCount{Name: p, Count: n})
		}
	}
	return out
}
