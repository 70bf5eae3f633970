// Package tasks tracks batches of jobs on the queue backend with real-time progress reporting.
//
// # Components
//
//  1. [Poller] : one cycle fetches every job's status concurrently and joins
//     - results keep the order of the submitted ids
//     - a failed fetch becomes a synthetic failed status for that job only
//     - [Poller.Run] waits a fixed interval after each cycle, so cycles never overlap
//
//  2. [Reduce] : pure fold of a cycle's statuses into a [models.BatchState]
//     - mean progress, completed and failed counts
//     - IsProcessing while any job is waiting or active
//
//  3. [Orchestrator] : submits a batch and owns its state
//     - at most one poll loop per orchestrator; Start stops the previous run first
//     - state is published as copy-on-write snapshots via [Orchestrator.State]
//     - a job that reached a terminal state never moves out of it
//
// # Progress Reporting
//
// [Callbacks] fire on the poll loop goroutine after each applied cycle. [ChannelCallbacks] adapts them to a
// channel of [ProgressUpdate] for UIs that consume events asynchronously.
//
// # Protocol Violations
//
// Backend answers that break the status protocol are discarded and handed to an optional [ViolationRecorder]
// (repositories.ViolationRepository in the CLI). See [models.ViolationKind] for the detected cases. Failed fetches
// are not violations: the synthetic failed status the poller makes up never overrides a finished job and keeps the
// job's last known progress.
package tasks
