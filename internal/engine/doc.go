// Package engine implements the two list-scheduling algorithms of testsched.
//
// Scheduler (time mode) assigns concrete calendar intervals. Sequencer
// (sequence mode) assigns only an execution order plus parallel-group hints.
// Both consume the same building blocks: the dependency graph, a
// priority.Scorer, a constraint.Checker and, in time mode, the calendar.
//
// ARCHITECTURE:
//
// Single-Writer Placement Loop:
// Each run owns one constraint.State (ready set, resource timeline and
// concurrency slots). Only the goroutine running Solve/Generate mutates it.
// Static priority sub-scores are computed concurrently beforehand from
// immutable item data; workers never write shared state.
//
// Placement Flow (time mode):
// 1. Abort with CircularDependencyError if the graph has a cycle
// 2. Record items that can never fit (capacity or calendar) as conflicts
// 3. Ready set = pending items whose dependencies are scheduled and whose
//    earlier phases are resolved
// 4. Select the best ready item; continuity is rescored every step
// 5. Probe candidate starts from the earliest dependency/phase instant
//    until the checker accepts one or the search horizon is exhausted
// 6. Commit or record a conflict (dependents cascade), then repeat
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Every decision is stamped with a monotonic seq from Clock.Next().
// NEVER use wall-clock timestamps for ordering.
//
// Deterministic Selection:
// Highest composite score wins; ties break by ascending item id.
// Maps are never iterated without sorting keys first.
//
// Bounded Search:
// Probing stops at MaxLookaheadDays past the earliest start or after
// MaxProbes candidates, whichever comes first. Pathological inputs end
// in recorded conflicts instead of hanging.
package engine
