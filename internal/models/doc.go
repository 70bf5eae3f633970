// Package models defines the data model shared by the webpq job queue client, poller and orchestrator.
//
// The package contains two categories of types:
//
// 1. Wire-level snapshots reported by the job queue backend
//   - [JobStatus] : One job's state, progress and optional counters
//   - [QueueStats] : Whole-queue counts by state
//
// 2. Aggregates owned by the orchestrator
//   - [BatchState] : The reduced view over every job of one batch, published as an immutable snapshot
//
// [JobState] is monotonic across the terminal boundary: once a job is [StateCompleted] or [StateFailed]
// it never goes back to [StateWaiting] or [StateActive]. The orchestrator enforces this; the types here only describe it.
package models
