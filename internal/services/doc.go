// Package services implements the transport adapter for the asynchronous WebP conversion job queue.
//
// # JobQueue Interface
//
// [JobQueue] is the only coupling between the orchestrator and the backend, so tests and the
// mock server can substitute their own implementations.
//
// # HTTP Implementation
//
// [QueueClient] speaks the backend's JSON API:
//
//	POST   /batch                              submit items, returns job ids
//	GET    /jobs/{id}                          one job's status
//	DELETE /jobs/cleanup?olderThanHours={n}    purge finished jobs
//	GET    /queue/stats                        whole-queue counts
//
// Each call carries its own timeout and waits on a shared [rate.Limiter] so a poll cycle
// fanning out over many jobs does not flood the backend.
//
// # Error Handling
//
// All failures are [shared.TransportError] values:
//   - [shared.ErrTransport] : network failure, timeout, non-2xx response or undecodable body
//   - [shared.ErrNotFound] : the backend answered 404 for a job id
//
// A 2xx submit response without job ids is reported as [shared.ErrProtocolViolation].
package services
