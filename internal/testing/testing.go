// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/webpq/internal/models"
	"github.com/desertthunder/webpq/internal/shared"
)

// Reply is one scripted answer of [FakeQueue.GetStatus].
type Reply struct {
	Status models.JobStatus
	Err    error
	Delay  time.Duration   // Sleep before answering
	Wait   <-chan struct{} // Block until closed before answering
}

// Ok returns a Reply for a successful status read.
func Ok(state models.JobState, progress float64) Reply {
	return Reply{Status: models.JobStatus{State: state, Progress: progress}}
}

// Fail returns a Reply for a failed status read.
func Fail(err error) Reply {
	return Reply{Err: err}
}

// FakeQueue is a scriptable test double for [services.JobQueue].
//
// Each job id has a list of replies consumed one per GetStatus call; the last reply repeats.
type FakeQueue struct {
	mu sync.Mutex

	SubmitIDs  []models.JobID
	SubmitErr  error
	Script     map[models.JobID][]Reply
	CleanupErr error
	Stats      models.QueueStats
	StatsErr   error

	submits     [][]string
	priorities  []models.Priority
	statusCalls map[models.JobID]int
	cleanups    []time.Duration
}

// NewFakeQueue creates a FakeQueue that returns ids on submit.
func NewFakeQueue(ids ...models.JobID) *FakeQueue {
	return &FakeQueue{
		SubmitIDs:   ids,
		Script:      make(map[models.JobID][]Reply),
		statusCalls: make(map[models.JobID]int),
	}
}

// On appends scripted replies for id.
func (f *FakeQueue) On(id models.JobID, replies ...Reply) *FakeQueue {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Script[id] = append(f.Script[id], replies...)
	return f
}

func (f *FakeQueue) Submit(ctx context.Context, itemIDs []string, priority models.Priority) ([]models.JobID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.submits = append(f.submits, append([]string(nil), itemIDs...))
	f.priorities = append(f.priorities, priority)
	if f.SubmitErr != nil {
		return nil, f.SubmitErr
	}
	return append([]models.JobID(nil), f.SubmitIDs...), nil
}

func (f *FakeQueue) GetStatus(ctx context.Context, id models.JobID) (*models.JobStatus, error) {
	f.mu.Lock()
	replies, ok := f.Script[id]
	n := f.statusCalls[id]
	f.statusCalls[id] = n + 1
	f.mu.Unlock()

	if !ok || len(replies) == 0 {
		return nil, &shared.TransportError{Op: "get status", StatusCode: http.StatusNotFound, Message: fmt.Sprintf("unknown job %s", id)}
	}

	reply := replies[min(n, len(replies)-1)]
	if reply.Wait != nil {
		select {
		case <-reply.Wait:
		case <-ctx.Done():
			return nil, &shared.TransportError{Op: "get status", Err: ctx.Err()}
		}
	}
	if reply.Delay > 0 {
		time.Sleep(reply.Delay)
	}
	if reply.Err != nil {
		return nil, reply.Err
	}

	status := reply.Status
	if status.ID == "" {
		status.ID = id
	}
	return &status, nil
}

func (f *FakeQueue) CleanupOlderThan(ctx context.Context, age time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanups = append(f.cleanups, age)
	return f.CleanupErr
}

func (f *FakeQueue) QueueStats(ctx context.Context) (*models.QueueStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StatsErr != nil {
		return nil, f.StatsErr
	}
	stats := f.Stats
	return &stats, nil
}

// Submits returns the item lists passed to Submit.
func (f *FakeQueue) Submits() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.submits...)
}

// Priorities returns the priorities passed to Submit.
func (f *FakeQueue) Priorities() []models.Priority {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Priority(nil), f.priorities...)
}

// StatusCalls returns how many times GetStatus was called for id.
func (f *FakeQueue) StatusCalls(id models.JobID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls[id]
}

// Cleanups returns the ages passed to CleanupOlderThan.
func (f *FakeQueue) Cleanups() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.cleanups...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// Eventually polls cond every 5ms until it holds or timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string, args ...any) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: "+msg, append([]any{timeout}, args...)...)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
