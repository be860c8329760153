// Package store keeps recorded chain sessions in SQLite.
//
// The store is an append-only log with:
//   - Sessions: one row per chain run (token, target, first seq)
//   - Steps: every resolve and invoke of the chain, in seq order
//   - Stored values: the chain's named store at the end of the run
//
// # Ordering
//
// All ordering uses the seq column (logical clock), never timestamps.
// Every step query ends in ORDER BY seq ASC, id COLLATE BINARY ASC so reads
// are identical between runs.
//
// # Values
//
// Args, kwargs, results and stored values are written as canonical JSON
// (trace.MarshalCanonical) of their trace.Snapshot form. Integers read back
// as int64, other numbers as float64.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Steps must belong to a known session
package store
