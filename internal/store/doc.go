// Package store is the SQLite ledger a run accumulates its results in.
//
// The ledger holds:
//   - Runs: one row per harness run, keyed by run ID
//   - Case results: one row per executed case, with its verdict and the
//     diagnostics the analyzer reported
//   - Case failures: the expected/actual diff of each failing case
//   - Structural errors: fixture problems found while loading
//
// # Ordering
//
// seq columns record completion order. Every query that feeds a report
// orders by category code (COLLATE BINARY) or seq, never by wall time, so
// reports are identical across runs with the same outcomes.
//
// # Database Configuration
//
// The ledger is in memory unless a path is given, in which case it doubles
// as an export of the run. The pool is limited to one connection: writes
// from concurrent workers serialize on it and the in-memory database stays
// alive for the life of the Store.
//
// Diagnostics are stored as canonical JSON (see internal/canon) so exported
// ledgers diff cleanly.
package store
