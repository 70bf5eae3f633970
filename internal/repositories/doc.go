// Package repositories implements SQLite persistence for diagnostics the CLI keeps between runs.
//
// Key Implementations:
//   - [ViolationRepository] : ledger of protocol violations observed while polling, queryable by run and kind
//
// Sequence numbers provide stable, human-readable ordering independent of UUIDs and timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
