package models

// BatchState is the aggregate view over every job of one batch.
//
// Jobs keeps submission order for the lifetime of a run. Values handed out by the
// orchestrator are snapshots; callers must treat them as read-only.
type BatchState struct {
	Jobs           []JobStatus `json:"jobs"`
	IsProcessing   bool        `json:"isProcessing"`
	TotalProgress  float64     `json:"totalProgress"`
	CompletedCount int         `json:"completedCount"`
	FailedCount    int         `json:"failedCount"`
}

// Clone returns a deep copy of the state.
func (b BatchState) Clone() BatchState {
	c := b
	if b.Jobs != nil {
		c.Jobs = make([]JobStatus, len(b.Jobs))
		for i, j := range b.Jobs {
			c.Jobs[i] = j.Clone()
		}
	}
	return c
}

// JobIDs returns the tracked ids in order.
func (b BatchState) JobIDs() []JobID {
	ids := make([]JobID, len(b.Jobs))
	for i, j := range b.Jobs {
		ids[i] = j.ID
	}
	return ids
}

// QueueStats holds whole-queue counts by state, not scoped to a batch.
type QueueStats struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Total returns the sum of all counts.
func (q QueueStats) Total() int {
	return q.Waiting + q.Active + q.Completed + q.Failed
}
