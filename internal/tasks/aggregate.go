package tasks

import (
	"fmt"
	"time"

	"github.com/desertthunder/webpq/internal/models"
)

// Reduce folds one cycle's statuses into a [models.BatchState].
//
// It copies its input and has no side effects: the same statuses always produce the same state.
// Empty input yields zero progress and IsProcessing false.
func Reduce(statuses []models.JobStatus) models.BatchState {
	state := models.BatchState{Jobs: make([]models.JobStatus, len(statuses))}
	if len(statuses) == 0 {
		return state
	}

	var sum float64
	for i, s := range statuses {
		state.Jobs[i] = s.Clone()
		sum += s.Progress

		switch s.State {
		case models.StateCompleted:
			state.CompletedCount++
		case models.StateFailed:
			state.FailedCount++
		default:
			state.IsProcessing = true
		}
	}
	state.TotalProgress = sum / float64(len(statuses))

	return state
}

// mergeStatuses applies a cycle's statuses on top of the previously recorded ones.
//
// Returns ok=false when the cycle must be discarded as a whole. Entries that would move a job out of its terminal state
// or that carry a foreign id keep their previous value and are reported as violations.
//
// Synthetic statuses come from failed fetches, so the backend reported nothing: a finished job keeps its recorded
// status without a violation, an unfinished one fails at its last known progress, and a job failed that way stays
// failed silently whatever the backend says later.
func mergeStatuses(runID string, prev, next []models.JobStatus) (merged []models.JobStatus, violations []models.ProtocolViolation, ok bool) {
	now := time.Now().UTC()

	if len(prev) != len(next) {
		v := models.ProtocolViolation{
			RunID:      runID,
			Kind:       models.ViolationCountMismatch,
			Detail:     fmt.Sprintf("expected %d statuses, got %d", len(prev), len(next)),
			ObservedAt: now,
		}
		return nil, []models.ProtocolViolation{v}, false
	}

	merged = make([]models.JobStatus, len(prev))
	for i, old := range prev {
		cur := next[i]

		switch {
		case cur.ID != old.ID:
			merged[i] = old
			violations = append(violations, models.ProtocolViolation{
				RunID:      runID,
				JobID:      old.ID,
				Kind:       models.ViolationIDMismatch,
				Detail:     fmt.Sprintf("position %d returned status for %q", i, cur.ID),
				ObservedAt: now,
			})
		case old.State.IsTerminal() && cur.Synthetic:
			merged[i] = old
		case old.State.IsTerminal() && cur.State != old.State:
			merged[i] = old
			if old.Synthetic {
				continue
			}
			violations = append(violations, models.ProtocolViolation{
				RunID:      runID,
				JobID:      old.ID,
				Kind:       models.ViolationRegression,
				Detail:     fmt.Sprintf("%s -> %s", old.State, cur.State),
				ObservedAt: now,
			})
		case cur.Synthetic:
			cur.Progress = old.Progress
			merged[i] = cur
		default:
			merged[i] = cur
		}
	}

	return merged, violations, true
}

// newlyTerminal returns the jobs that are terminal in next but were not in prev, in job order.
func newlyTerminal(prev, next []models.JobStatus) []models.JobStatus {
	var out []models.JobStatus
	for i, s := range next {
		if !s.State.IsTerminal() {
			continue
		}
		if i < len(prev) && prev[i].State.IsTerminal() {
			continue
		}
		out = append(out, s)
	}
	return out
}
