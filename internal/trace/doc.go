// Package trace records what a chain did, step by step.
//
// Every resolve and invoke performed by a chain engine can be reported to a
// Recorder as an Event. Events carry a session token (one per chain), a
// logical sequence number from a Sequencer, and a content-addressed ID
// computed from canonical JSON.
//
// Values flowing through a chain are arbitrary Go values. Snapshot converts
// them into plain JSON-safe values (maps, slices, strings, numbers, bools)
// so events can be compared, stored and written to golden files without
// leaking pointer addresses.
//
// Key design constraints:
//   - Logical clocks (seq) only, never wall-clock timestamps
//   - Object keys sorted by UTF-16 code units in canonical JSON
//   - All JSON tags use snake_case
package trace
