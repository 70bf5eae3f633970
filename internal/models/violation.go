package models

import (
	"fmt"
	"time"
)

// ViolationKind names the way a backend broke the status protocol.
type ViolationKind string

const (
	ViolationRegression    ViolationKind = "regression"     // Terminal job reported as non-terminal
	ViolationCountMismatch ViolationKind = "count_mismatch" // Cycle returned a different number of statuses than tracked ids
	ViolationIDMismatch    ViolationKind = "id_mismatch"    // Status carried an id other than the one at its position
)

// ProtocolViolation records one backend answer that was discarded instead of applied.
type ProtocolViolation struct {
	RunID      string        `json:"runId"`
	JobID      JobID         `json:"jobId,omitempty"` // Empty for cycle-level violations
	Kind       ViolationKind `json:"kind"`
	Detail     string        `json:"detail"`
	ObservedAt time.Time     `json:"observedAt"`
}

func (v ProtocolViolation) String() string {
	if v.JobID == "" {
		return fmt.Sprintf("%s: %s", v.Kind, v.Detail)
	}
	return fmt.Sprintf("%s (job %s): %s", v.Kind, v.JobID, v.Detail)
}

// PersistedViolation is a [ProtocolViolation] as stored in the violation ledger.
type PersistedViolation struct {
	ID       string `json:"id"`
	Sequence int    `json:"sequence"`
	ProtocolViolation
}

// Validate checks the fields the ledger requires.
func (v ProtocolViolation) Validate() error {
	if v.RunID == "" {
		return fmt.Errorf("violation run id is required")
	}
	switch v.Kind {
	case ViolationRegression, ViolationCountMismatch, ViolationIDMismatch:
		return nil
	default:
		return fmt.Errorf("unknown violation kind %q", v.Kind)
	}
}
