// Package ir holds the normalized representation of a test plan: items,
// resource demands, phase order and the error taxonomy shared by every
// scheduling component.
//
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Items are read-only once handed to an engine
//   - All JSON tags use snake_case
//   - Canonical JSON (sorted keys, NFC strings) is the only encoding used for hashing
//   - Logical sequence numbers only, never wall-clock timestamps
package ir
