// Package store provides SQLite-backed run history for testsched.
//
// Every CLI run can be recorded with its canonical inputs and result:
//   - runs: one row per run (UUIDv7 id, mode, hashes, counts, JSON blobs)
//   - run_conflicts: the items a run could not place
//
// # Critical Patterns
//
// Logical ordering:
//   - Runs are ordered by the autoincrement seq column, NEVER by timestamps
//   - All queries include ORDER BY seq, with id COLLATE BINARY as tiebreak
//
// Content addressing:
//   - dataset, config and result JSON are canonical (ir.MarshalCanonical)
//   - hashes come from ir.HashCanonical with domain separation
//   - replaying stored inputs must reproduce result_hash
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
