// package services defines interface JobQueue for talking to the asynchronous job queue backend
package services

import (
	"context"
	"time"

	"github.com/desertthunder/webpq/internal/models"
)

// JobQueue defines the transport contract with the job queue backend.
//
// Every method is a remote call. Failures are reported as [shared.TransportError] values
// matching [shared.ErrTransport]; unknown job ids additionally match [shared.ErrNotFound].
type JobQueue interface {
	// Submit enqueues one job per item and returns the issued ids in backend order.
	// All-or-nothing: on error no ids are returned.
	Submit(ctx context.Context, itemIDs []string, priority models.Priority) ([]models.JobID, error)

	// GetStatus fetches the current status of one job.
	GetStatus(ctx context.Context, id models.JobID) (*models.JobStatus, error)

	// CleanupOlderThan asks the backend to purge finished jobs older than age. Idempotent, best effort.
	CleanupOlderThan(ctx context.Context, age time.Duration) error

	// QueueStats returns whole-queue counts by state.
	QueueStats(ctx context.Context) (*models.QueueStats, error)
}
