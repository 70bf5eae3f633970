package models

import (
	"fmt"
	"strings"
	"time"
)

// JobID is the opaque identifier the queue backend issues at submission time.
type JobID string

// String implements [fmt.Stringer].
func (id JobID) String() string { return string(id) }

// JobState is the lifecycle state of a single job.
type JobState string

const (
	StateWaiting   JobState = "waiting"
	StateActive    JobState = "active"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
)

// IsTerminal reports whether no further transitions are expected.
func (s JobState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Valid reports whether s is one of the four known states.
func (s JobState) Valid() bool {
	switch s {
	case StateWaiting, StateActive, StateCompleted, StateFailed:
		return true
	default:
		return false
	}
}

// ParseJobState parses the backend's lowercase state names.
func ParseJobState(v string) (JobState, error) {
	s := JobState(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown job state %q", v)
	}
	return s, nil
}

// Priority is the queue priority requested for a batch.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// ParsePriority parses a priority name. The empty string maps to [PriorityNormal].
func ParsePriority(v string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(v))); p {
	case "":
		return PriorityNormal, nil
	case PriorityLow, PriorityNormal, PriorityHigh:
		return p, nil
	default:
		return "", fmt.Errorf("unknown priority %q (must be low, normal or high)", v)
	}
}

// JobStatus is one job's current snapshot.
type JobStatus struct {
	ID             JobID      `json:"id"`
	State          JobState   `json:"state"`
	Progress       float64    `json:"progress"`                 // 0-100
	ProcessedCount *int       `json:"processedCount,omitempty"` // Only when reported by the backend
	TotalCount     *int       `json:"totalCount,omitempty"`
	FailedCount    *int       `json:"failedCount,omitempty"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	ErrorMessage   string     `json:"errorMessage,omitempty"` // Only when State is StateFailed
	Synthetic      bool       `json:"synthetic,omitempty"`    // Made up locally after a failed fetch, not reported by the backend
}

// WaitingStatus returns the placeholder status recorded for a freshly submitted job.
func WaitingStatus(id JobID) JobStatus {
	return JobStatus{ID: id, State: StateWaiting}
}

// FailedStatus returns a synthetic failed status carrying msg, used when a status could not be fetched.
func FailedStatus(id JobID, msg string) JobStatus {
	return JobStatus{ID: id, State: StateFailed, ErrorMessage: msg, Synthetic: true}
}

// Normalize clamps progress into [0,100] and drops an error message on non-failed states.
func (s JobStatus) Normalize() JobStatus {
	s.Progress = ClampProgress(s.Progress)
	if s.State != StateFailed {
		s.ErrorMessage = ""
	}
	return s
}

// Clone returns a deep copy so optional pointer fields are not shared between snapshots.
func (s JobStatus) Clone() JobStatus {
	c := s
	c.ProcessedCount = cloneInt(s.ProcessedCount)
	c.TotalCount = cloneInt(s.TotalCount)
	c.FailedCount = cloneInt(s.FailedCount)
	c.StartedAt = cloneTime(s.StartedAt)
	c.CompletedAt = cloneTime(s.CompletedAt)
	return c
}

// ClampProgress pins p into [0,100].
func ClampProgress(p float64) float64 {
	switch {
	case p != p: // NaN
		return 0
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// IntPtr is a convenience for building optional counters.
func IntPtr(v int) *int { return &v }

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
