// Package harness runs a selection of fixture cases through the analyzer
// adapter and the matcher, and aggregates the verdicts into a report.
//
// # Execution model
//
// Cases are independent. Run dispatches them to a bounded pool of workers
// (golang.org/x/sync/errgroup with SetLimit), by default one per
// GOMAXPROCS. Every case resolves to exactly one verdict:
//
//   - pass or fail, decided by internal/match from the analyzer output
//   - error, when the adapter reports a timeout, crash or malformed output,
//     or when evaluating the case panics
//
// Verdicts are written to a run ledger (internal/store) through
// report.Aggregator; the ledger connection serializes writes. Only a ledger
// write failure or cancellation of the caller's context aborts a run.
//
// Run blocks until every dispatched case has a verdict and then returns the
// report. There is no streaming API.
//
// # Deterministic testing
//
// Run IDs come from a RunIDGenerator. Tests use a fixed generator from
// internal/testutil so rendered reports can be compared against golden
// files with AssertGolden.
package harness
