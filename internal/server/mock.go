package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/webpq/internal/models"
	"github.com/desertthunder/webpq/internal/services"
	"github.com/desertthunder/webpq/internal/shared"
)

const (
	DefaultAdvance    = 25.0
	DefaultFailPrefix = "fail-"
	failAt            = 50.0 // progress at which a fail-prefixed item fails
)

// MockOpts configures a [MockQueue].
type MockOpts struct {
	Advance    float64 // Progress added per status read; Default: DefaultAdvance
	FailPrefix string  // Items with this prefix fail halfway; Default: DefaultFailPrefix
	Logger     *log.Logger
	Now        func() time.Time
}

type mockJob struct {
	id           string
	item         string
	priority     models.Priority
	state        models.JobState
	progress     float64
	createdAt    time.Time
	startedAt    *time.Time
	completedAt  *time.Time
	failedReason string
}

// MockQueue is an in-memory job queue backend serving the same HTTP API as the real one.
//
// Every status read returns the job's current snapshot and then moves it forward by Advance percent, so a client that
// keeps polling drives its jobs to completion deterministically.
type MockQueue struct {
	mu    sync.Mutex
	jobs  map[string]*mockJob
	order []string

	advance    float64
	failPrefix string
	logger     *log.Logger
	now        func() time.Time
	mux        *http.ServeMux
}

// NewMockQueue creates an empty MockQueue.
func NewMockQueue(opts MockOpts) *MockQueue {
	if opts.Advance <= 0 {
		opts.Advance = DefaultAdvance
	}
	if opts.FailPrefix == "" {
		opts.FailPrefix = DefaultFailPrefix
	}
	if opts.Logger == nil {
		opts.Logger = shared.NopLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	q := &MockQueue{
		jobs:       make(map[string]*mockJob),
		advance:    opts.Advance,
		failPrefix: opts.FailPrefix,
		logger:     opts.Logger,
		now:        opts.Now,
		mux:        http.NewServeMux(),
	}

	q.mux.HandleFunc("POST /batch", q.handleSubmit)
	q.mux.HandleFunc("GET /jobs/{id}", q.handleStatus)
	q.mux.HandleFunc("DELETE /jobs/cleanup", q.handleCleanup)
	q.mux.HandleFunc("GET /queue/stats", q.handleStats)

	return q
}

// NewMockRouter wraps q in a [BasicRouter] with recovery and request logging.
func NewMockRouter(q *MockQueue, logger *log.Logger) *BasicRouter {
	router := NewBasicRouter()
	router.Use(RecoveryMiddleware(logger), LoggingMiddleware(logger))
	router.Handler(q)
	return router
}

// Routes returns the HTTP routes this handler serves.
func (q *MockQueue) Routes() []string {
	return []string{"POST /batch", "GET /jobs/{id}", "DELETE /jobs/cleanup", "GET /queue/stats"}
}

// ServeHTTP implements [http.Handler].
func (q *MockQueue) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q.mux.ServeHTTP(w, r)
}

// Submit creates one waiting job per item and returns their ids in item order.
func (q *MockQueue) Submit(itemIDs []string, priority models.Priority) []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	ids := make([]string, len(itemIDs))
	for i, item := range itemIDs {
		id := shared.GenerateID()
		q.jobs[id] = &mockJob{
			id:        id,
			item:      item,
			priority:  priority,
			state:     models.StateWaiting,
			createdAt: now,
		}
		q.order = append(q.order, id)
		ids[i] = id
	}

	q.logger.Info("batch accepted", "items", len(itemIDs), "priority", priority)
	return ids
}

// Status returns the job's current snapshot and advances it one step.
func (q *MockQueue) Status(id string) (*services.StatusResponse, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	j, ok := q.jobs[id]
	if !ok {
		return nil, false
	}

	resp := j.response()
	q.step(j)
	return resp, true
}

// Cleanup removes terminal jobs that finished more than olderThan ago and returns how many were removed.
func (q *MockQueue) Cleanup(olderThan time.Duration) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := q.now().Add(-olderThan)
	kept := q.order[:0]
	removed := 0
	for _, id := range q.order {
		j := q.jobs[id]
		if j.state.IsTerminal() && j.completedAt != nil && j.completedAt.Before(cutoff) {
			delete(q.jobs, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	q.order = kept

	q.logger.Info("jobs cleaned", "removed", removed, "older_than", olderThan)
	return removed
}

// Stats counts all jobs by state.
func (q *MockQueue) Stats() models.QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	var stats models.QueueStats
	for _, j := range q.jobs {
		switch j.state {
		case models.StateWaiting:
			stats.Waiting++
		case models.StateActive:
			stats.Active++
		case models.StateCompleted:
			stats.Completed++
		case models.StateFailed:
			stats.Failed++
		}
	}
	return stats
}

func (q *MockQueue) step(j *mockJob) {
	if j.state.IsTerminal() {
		return
	}

	now := q.now()
	if j.state == models.StateWaiting {
		j.state = models.StateActive
		j.startedAt = &now
	}
	j.progress = min(j.progress+q.advance, 100)

	switch {
	case strings.HasPrefix(j.item, q.failPrefix) && j.progress >= failAt:
		j.state = models.StateFailed
		j.failedReason = fmt.Sprintf("item %s could not be processed", j.item)
		j.completedAt = &now
	case j.progress >= 100:
		j.state = models.StateCompleted
		j.completedAt = &now
	}
}

func (j *mockJob) response() *services.StatusResponse {
	resp := &services.StatusResponse{
		Status:         string(j.state),
		Progress:       j.progress,
		TotalCount:     models.IntPtr(1),
		ProcessedCount: models.IntPtr(0),
		FailedCount:    models.IntPtr(0),
		FailedReason:   j.failedReason,
	}

	switch j.state {
	case models.StateCompleted:
		resp.ProcessedCount = models.IntPtr(1)
	case models.StateFailed:
		resp.FailedCount = models.IntPtr(1)
	}

	if j.startedAt != nil {
		resp.StartedAt = services.NewWireTime(*j.startedAt)
	}
	if j.completedAt != nil {
		resp.CompletedAt = services.NewWireTime(*j.completedAt)
	}

	return resp
}

func (q *MockQueue) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req services.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.ItemIDs) == 0 {
		writeError(w, http.StatusBadRequest, "itemIDs must not be empty")
		return
	}

	priority, err := models.ParsePriority(string(req.Priority))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, services.SubmitResponse{JobIDs: q.Submit(req.ItemIDs, priority)})
}

func (q *MockQueue) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, ok := q.Status(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (q *MockQueue) handleCleanup(w http.ResponseWriter, r *http.Request) {
	hours, err := strconv.Atoi(r.URL.Query().Get("olderThanHours"))
	if err != nil || hours <= 0 {
		writeError(w, http.StatusBadRequest, "olderThanHours must be a positive integer")
		return
	}

	q.Cleanup(time.Duration(hours) * time.Hour)
	w.WriteHeader(http.StatusNoContent)
}

func (q *MockQueue) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, q.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
