// Package harness runs YAML scenarios against the planner and checks the
// resulting plans.
//
// # Scenario Format
//
//	name: sample_schedule
//	description: "Reference dataset in time mode"
//	dataset: ../datasets/sample.yaml
//	config: ../configs/tight.yaml   # optional, defaults apply otherwise
//	mode: schedule                  # schedule | sequence
//	max_parallel: 2                 # optional, time mode only
//	expect:
//	  success: true
//	  conflicts: []
//	assertions:
//	  - type: precedes
//	    before: 响应时间测试
//	    after: 功能完整性验收
//	  - type: no_overlap
//	    items: [响应时间测试, 性能指标验收]
//	  - type: phase_order
//	  - type: capacity
//	  - type: dependencies
//	  - type: conflict
//	    item: 安全漏洞扫描
//	  - type: deterministic
//
// Dataset and config paths are resolved relative to the scenario file.
//
// # Assertion Types
//
//   - precedes: before finishes no later than after starts (time mode), or
//     comes strictly earlier in the sequence (sequence mode)
//   - no_overlap: the listed items never run together
//   - phase_order: every placed item of an earlier phase precedes every
//     placed item of a later phase
//   - capacity: no constrained resource is ever oversubscribed
//   - dependencies: every placed item follows all its placed prerequisites
//   - conflict: the named item was not placed
//   - deterministic: a second run hashes identically
//
// Golden snapshots hold the canonical JSON of the placements and live under
// testdata/golden, managed by goldie.
package harness
