package models

import (
	"math"
	"testing"
	"time"
)

func TestJobState(t *testing.T) {
	t.Run("IsTerminal", func(t *testing.T) {
		tests := []struct {
			state JobState
			want  bool
		}{
			{StateWaiting, false},
			{StateActive, false},
			{StateCompleted, true},
			{StateFailed, true},
		}

		for _, tt := range tests {
			if got := tt.state.IsTerminal(); got != tt.want {
				t.Errorf("%s.IsTerminal() = %v, want %v", tt.state, got, tt.want)
			}
		}
	})

	t.Run("ParseJobState", func(t *testing.T) {
		tests := []struct {
			input   string
			want    JobState
			wantErr bool
		}{
			{"waiting", StateWaiting, false},
			{"ACTIVE", StateActive, false},
			{" completed ", StateCompleted, false},
			{"failed", StateFailed, false},
			{"delayed", "", true},
			{"", "", true},
		}

		for _, tt := range tests {
			got, err := ParseJobState(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseJobState(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseJobState(%q) = %q, want %q", tt.input, got, tt.want)
			}
		}
	})
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		input   string
		want    Priority
		wantErr bool
	}{
		{"", PriorityNormal, false},
		{"low", PriorityLow, false},
		{"High", PriorityHigh, false},
		{"normal", PriorityNormal, false},
		{"urgent", "", true},
	}

	for _, tt := range tests {
		got, err := ParsePriority(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePriority(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParsePriority(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestJobStatus(t *testing.T) {
	t.Run("ClampProgress", func(t *testing.T) {
		tests := []struct {
			in, want float64
		}{
			{-5, 0},
			{0, 0},
			{42.5, 42.5},
			{100, 100},
			{250, 100},
			{math.NaN(), 0},
		}

		for _, tt := range tests {
			if got := ClampProgress(tt.in); got != tt.want {
				t.Errorf("ClampProgress(%v) = %v, want %v", tt.in, got, tt.want)
			}
		}
	})

	t.Run("Normalize", func(t *testing.T) {
		s := JobStatus{ID: "a", State: StateActive, Progress: 120, ErrorMessage: "stale"}.Normalize()

		if s.Progress != 100 {
			t.Errorf("expected progress 100, got %v", s.Progress)
		}
		if s.ErrorMessage != "" {
			t.Errorf("expected error message to be dropped for active job, got %q", s.ErrorMessage)
		}

		f := FailedStatus("b", "boom").Normalize()
		if f.ErrorMessage != "boom" {
			t.Errorf("expected failed job to keep its message, got %q", f.ErrorMessage)
		}
	})

	t.Run("Clone", func(t *testing.T) {
		started := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
		s := JobStatus{ID: "a", State: StateActive, ProcessedCount: IntPtr(2), StartedAt: &started}

		c := s.Clone()
		*s.ProcessedCount = 7
		*s.StartedAt = started.Add(time.Hour)

		if *c.ProcessedCount != 2 {
			t.Errorf("expected cloned count 2, got %d", *c.ProcessedCount)
		}
		if !c.StartedAt.Equal(started) {
			t.Errorf("expected cloned start time %v, got %v", started, *c.StartedAt)
		}
		if c.TotalCount != nil || c.CompletedAt != nil {
			t.Error("expected nil optionals to stay nil")
		}
	})

	t.Run("Constructors", func(t *testing.T) {
		w := WaitingStatus("j1")
		if w.ID != "j1" || w.State != StateWaiting || w.Progress != 0 {
			t.Errorf("unexpected waiting status %+v", w)
		}

		f := FailedStatus("j2", "unreachable")
		if f.ID != "j2" || f.State != StateFailed || f.ErrorMessage != "unreachable" || !f.Synthetic {
			t.Errorf("unexpected failed status %+v", f)
		}
	})
}

func TestBatchState(t *testing.T) {
	t.Run("Clone", func(t *testing.T) {
		b := BatchState{Jobs: []JobStatus{WaitingStatus("a"), WaitingStatus("b")}, IsProcessing: true}

		c := b.Clone()
		b.Jobs[0].State = StateFailed

		if c.Jobs[0].State != StateWaiting {
			t.Error("expected clone to be independent of the original")
		}
		if !c.IsProcessing {
			t.Error("expected scalar fields to be copied")
		}
	})

	t.Run("JobIDs", func(t *testing.T) {
		b := BatchState{Jobs: []JobStatus{WaitingStatus("x"), WaitingStatus("y")}}

		ids := b.JobIDs()
		if len(ids) != 2 || ids[0] != "x" || ids[1] != "y" {
			t.Errorf("expected [x y], got %v", ids)
		}
	})

	t.Run("QueueStats Total", func(t *testing.T) {
		if got := (QueueStats{Waiting: 1, Active: 2, Completed: 3, Failed: 4}).Total(); got != 10 {
			t.Errorf("expected 10, got %d", got)
		}
	})
}

func TestProtocolViolation_String(t *testing.T) {
	job := ProtocolViolation{JobID: "j1", Kind: ViolationRegression, Detail: "completed -> active"}
	if got := job.String(); got != "regression (job j1): completed -> active" {
		t.Errorf("unexpected string %q", got)
	}

	cycle := ProtocolViolation{Kind: ViolationCountMismatch, Detail: "expected 2 statuses, got 1"}
	if got := cycle.String(); got != "count_mismatch: expected 2 statuses, got 1" {
		t.Errorf("unexpected string %q", got)
	}
}
