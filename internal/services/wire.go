// Wire types for the job queue backend's JSON API
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/webpq/internal/models"
)

// SubmitRequest is the body of POST /batch.
type SubmitRequest struct {
	ItemIDs  []string        `json:"itemIDs"`
	Priority models.Priority `json:"priority"`
}

// SubmitResponse is the body returned by POST /batch.
type SubmitResponse struct {
	JobIDs []string `json:"jobIDs"`
}

// StatusResponse is the body returned by GET /jobs/{id}.
type StatusResponse struct {
	Status         string    `json:"status"`
	Progress       float64   `json:"progress"`
	ProcessedCount *int      `json:"processedCount,omitempty"`
	TotalCount     *int      `json:"totalCount,omitempty"`
	FailedCount    *int      `json:"failedCount,omitempty"`
	StartedAt      *WireTime `json:"startedAt,omitempty"`
	CompletedAt    *WireTime `json:"completedAt,omitempty"`
	FailedReason   string    `json:"failedReason,omitempty"`
}

// ToJobStatus converts the wire body into a normalized [models.JobStatus] for id.
func (r StatusResponse) ToJobStatus(id models.JobID) (*models.JobStatus, error) {
	state, err := models.ParseJobState(r.Status)
	if err != nil {
		return nil, err
	}

	status := models.JobStatus{
		ID:             id,
		State:          state,
		Progress:       r.Progress,
		ProcessedCount: r.ProcessedCount,
		TotalCount:     r.TotalCount,
		FailedCount:    r.FailedCount,
		StartedAt:      r.StartedAt.Value(),
		CompletedAt:    r.CompletedAt.Value(),
		ErrorMessage:   r.FailedReason,
	}
	if state == models.StateFailed && status.ErrorMessage == "" {
		status.ErrorMessage = "job failed"
	}

	status = status.Normalize()
	return &status, nil
}

// errorResponse covers the error bodies the backend is known to send.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e errorResponse) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// WireTime accepts either an RFC 3339 string or epoch milliseconds.
type WireTime struct {
	time.Time
}

// NewWireTime wraps t for encoding.
func NewWireTime(t time.Time) *WireTime {
	return &WireTime{Time: t}
}

// Value returns the wrapped time, or nil for a nil or zero receiver.
func (w *WireTime) Value() *time.Time {
	if w == nil || w.IsZero() {
		return nil
	}
	t := w.Time.UTC()
	return &t
}

// UnmarshalJSON implements [json.Unmarshaler].
func (w *WireTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		w.Time = t
		return nil
	}

	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	w.Time = time.UnixMilli(int64(ms))
	return nil
}

// MarshalJSON implements [json.Marshaler] using RFC 3339.
func (w WireTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.Time.UTC().Format(time.RFC3339Nano))
}
