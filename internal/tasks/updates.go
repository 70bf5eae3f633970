package tasks

import (
	"fmt"

	"github.com/desertthunder/webpq/internal/models"
)

// ProgressUpdate is one orchestrator event, shaped for CLI and UI consumers reading from a channel.
type ProgressUpdate struct {
	Phase   Phase             // Which callback produced the update
	State   models.BatchState // Set for PhaseProgress
	JobID   models.JobID      // Set for PhaseJobComplete
	Success bool              // Set for PhaseJobComplete
	Jobs    []models.JobStatus
	Message string // Human-readable message for display
}

// Phase identifies the callback behind a [ProgressUpdate].
type Phase int

const (
	PhaseProgress Phase = iota
	PhaseJobComplete
	PhaseAllComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseProgress:
		return "progress"
	case PhaseJobComplete:
		return "job_complete"
	case PhaseAllComplete:
		return "all_complete"
	default:
		return ""
	}
}

// ChannelCallbacks returns [Callbacks] that forward every event to ch.
//
// Progress updates are dropped when ch is full so a slow reader never stalls polling; a later progress update
// supersedes them anyway. Completion updates wait for the reader until done is closed, after which they are dropped,
// so a reader that goes away must close done to release the poll loop. A nil done waits forever.
func ChannelCallbacks(ch chan<- ProgressUpdate, done <-chan struct{}) Callbacks {
	return Callbacks{
		OnProgress: func(state models.BatchState) {
			sendProgress(ch, progressUpdate(state))
		},
		OnJobComplete: func(id models.JobID, success bool) {
			sendCompletion(ch, done, jobCompleteUpdate(id, success))
		},
		OnAllComplete: func(jobs []models.JobStatus) {
			sendCompletion(ch, done, allCompleteUpdate(jobs))
		},
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(ch chan<- ProgressUpdate, update ProgressUpdate) {
	if ch == nil {
		return
	}
	select {
	case ch <- update:
	default:
	}
}

// sendCompletion blocks until the reader takes update or done is closed.
func sendCompletion(ch chan<- ProgressUpdate, done <-chan struct{}, update ProgressUpdate) {
	if ch == nil {
		return
	}
	select {
	case ch <- update:
	case <-done:
	}
}

func progressUpdate(state models.BatchState) ProgressUpdate {
	return ProgressUpdate{
		Phase: PhaseProgress,
		State: state,
		Message: fmt.Sprintf("%.1f%% (%d completed, %d failed, %d jobs)",
			state.TotalProgress, state.CompletedCount, state.FailedCount, len(state.Jobs)),
	}
}

func jobCompleteUpdate(id models.JobID, success bool) ProgressUpdate {
	msg := fmt.Sprintf("✓ %s completed", id)
	if !success {
		msg = fmt.Sprintf("✗ %s failed", id)
	}
	return ProgressUpdate{Phase: PhaseJobComplete, JobID: id, Success: success, Message: msg}
}

func allCompleteUpdate(jobs []models.JobStatus) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseAllComplete,
		Jobs:    jobs,
		Message: fmt.Sprintf("All %d jobs finished", len(jobs)),
	}
}
