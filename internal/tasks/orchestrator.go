package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/webpq/internal/models"
	"github.com/desertthunder/webpq/internal/services"
	"github.com/desertthunder/webpq/internal/shared"
)

// DefaultCleanupAge is the age used by [Orchestrator.CleanOldJobs] when none is given.
const DefaultCleanupAge = 24 * time.Hour

// Callbacks are invoked on the poll loop goroutine after each applied cycle. Nil fields are skipped.
//
// Order per cycle: OnProgress, then OnJobComplete for every job first seen terminal in that cycle (job order), then
// OnAllComplete once when the batch stops processing.
type Callbacks struct {
	OnProgress    func(state models.BatchState)
	OnJobComplete func(id models.JobID, success bool)
	OnAllComplete func(jobs []models.JobStatus)
}

// ViolationRecorder stores protocol violations for later inspection.
type ViolationRecorder interface {
	RecordViolation(ctx context.Context, v models.ProtocolViolation) error
}

// OrchestratorOpts configures an [Orchestrator].
type OrchestratorOpts struct {
	PollInterval  time.Duration // Default: DefaultPollInterval
	CleanupAge    time.Duration // Default: DefaultCleanupAge
	MaxConcurrent int           // Per-cycle GetStatus limit; 0 is unlimited
	Logger        *log.Logger
	Callbacks     Callbacks
	Violations    ViolationRecorder // Optional
}

// Orchestrator submits a batch and drives a single poll loop over its jobs, publishing [models.BatchState] snapshots.
//
// Start and Wait must not be called from inside a callback; Stop may be.
type Orchestrator struct {
	queue  services.JobQueue
	opts   OrchestratorOpts
	logger *log.Logger

	startMu sync.Mutex // serialises Start

	mu     sync.Mutex
	state  models.BatchState
	gen    uint64
	runID  string
	cancel context.CancelFunc // nil when no run is live
	done   chan struct{}      // closed when the latest run's loop exits
}

// NewOrchestrator creates an idle Orchestrator.
func NewOrchestrator(queue services.JobQueue, opts OrchestratorOpts) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.CleanupAge <= 0 {
		opts.CleanupAge = DefaultCleanupAge
	}
	if opts.Logger == nil {
		opts.Logger = shared.NopLogger()
	}

	return &Orchestrator{
		queue:  queue,
		opts:   opts,
		logger: opts.Logger,
		state:  Reduce(nil),
	}
}

// Start stops any live run, submits itemIDs and begins polling the returned jobs.
//
// ctx bounds only the submission; the poll loop runs until completion or [Orchestrator.Stop]. On submission failure the
// previous state is kept (with IsProcessing false) and the error is returned.
func (o *Orchestrator) Start(ctx context.Context, itemIDs []string, priority models.Priority) ([]models.JobID, error) {
	if len(itemIDs) == 0 {
		return nil, fmt.Errorf("%w: no items to submit", shared.ErrInvalidInput)
	}

	o.startMu.Lock()
	defer o.startMu.Unlock()

	o.mu.Lock()
	prev := o.done
	o.mu.Unlock()

	o.Stop()
	if prev != nil {
		<-prev
	}

	ids, err := o.queue.Submit(ctx, itemIDs, priority)
	if err != nil {
		o.logger.Error("batch submission failed", "items", len(itemIDs), "error", err)
		return nil, fmt.Errorf("failed to submit batch: %w", err)
	}

	statuses := make([]models.JobStatus, len(ids))
	for i, id := range ids {
		statuses[i] = models.WaitingStatus(id)
	}

	runID := shared.GenerateID()
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	logger := o.logger.With("run", runID)

	o.mu.Lock()
	o.gen++
	gen := o.gen
	o.state = Reduce(statuses)
	o.runID = runID
	o.cancel = cancel
	o.done = done
	o.mu.Unlock()

	poller := NewPoller(o.queue, ids, PollerOpts{
		Interval:      o.opts.PollInterval,
		MaxConcurrent: o.opts.MaxConcurrent,
		Logger:        logger,
	})

	logger.Info("batch started", "items", len(itemIDs), "jobs", len(ids), "priority", priority)
	go o.loop(runCtx, gen, runID, logger, poller, done)

	return append([]models.JobID(nil), ids...), nil
}

// Stop cancels the live run and marks the state as not processing, keeping the last job statuses.
//
// Safe to call repeatedly, concurrently, from callbacks, or after the run has finished. The state is final once Stop
// returns, but a callback whose delivery was already under way may still run on the loop goroutine; no later
// callback of that run fires, and none at all once [Orchestrator.Wait] returns.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
		o.logger.Info("batch stopped", "run", o.runID)
	}

	if o.state.IsProcessing {
		state := o.state.Clone()
		state.IsProcessing = false
		o.state = state
	}
}

// Wait blocks until the latest run's poll loop has exited or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns a snapshot of the current batch.
func (o *Orchestrator) State() models.BatchState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Clone()
}

// Running reports whether a poll loop is live.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancel != nil
}

// RunID returns the id of the latest run, empty before the first Start.
func (o *Orchestrator) RunID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runID
}

// GetQueueStats reads whole-queue counts from the backend. The result is never cached.
func (o *Orchestrator) GetQueueStats(ctx context.Context) (*models.QueueStats, error) {
	return o.queue.QueueStats(ctx)
}

// CleanOldJobs asks the backend to purge jobs older than olderThan; zero uses the configured cleanup age.
func (o *Orchestrator) CleanOldJobs(ctx context.Context, olderThan time.Duration) error {
	if olderThan == 0 {
		olderThan = o.opts.CleanupAge
	}

	if err := o.queue.CleanupOlderThan(ctx, olderThan); err != nil {
		return err
	}

	o.logger.Info("old jobs cleaned", "older_than", olderThan)
	return nil
}

func (o *Orchestrator) loop(ctx context.Context, gen uint64, runID string, logger *log.Logger, poller *Poller, done chan struct{}) {
	defer close(done)

	err := poller.Run(ctx, func(statuses []models.JobStatus) bool {
		return o.apply(ctx, gen, runID, logger, statuses)
	})

	o.mu.Lock()
	if o.gen == gen && o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.mu.Unlock()

	switch {
	case err == nil:
		logger.Info("batch polling finished")
	case errors.Is(err, shared.ErrCancelled):
		logger.Debug("batch polling cancelled")
	default:
		logger.Error("batch polling ended", "error", err)
	}
}

// apply merges one cycle into the state and fires callbacks. Returns true when polling should end.
func (o *Orchestrator) apply(ctx context.Context, gen uint64, runID string, logger *log.Logger, statuses []models.JobStatus) bool {
	o.mu.Lock()
	if o.gen != gen || ctx.Err() != nil {
		o.mu.Unlock()
		return true
	}

	prev := o.state
	merged, violations, ok := mergeStatuses(runID, prev.Jobs, statuses)
	if !ok {
		o.mu.Unlock()
		o.report(ctx, logger, violations)
		return false
	}

	next := Reduce(merged)
	o.state = next
	o.mu.Unlock()

	o.report(ctx, logger, violations)

	finished := prev.IsProcessing && !next.IsProcessing
	cb := o.opts.Callbacks

	if ctx.Err() != nil {
		return true
	}
	if cb.OnProgress != nil {
		cb.OnProgress(next.Clone())
	}

	for _, job := range newlyTerminal(prev.Jobs, next.Jobs) {
		success := job.State == models.StateCompleted
		logger.Debug("job finished", "job", job.ID, "state", job.State)
		if cb.OnJobComplete != nil && ctx.Err() == nil {
			cb.OnJobComplete(job.ID, success)
		}
	}

	if finished {
		logger.Info("batch complete", "completed", next.CompletedCount, "failed", next.FailedCount)
		if cb.OnAllComplete != nil && ctx.Err() == nil {
			cb.OnAllComplete(next.Clone().Jobs)
		}
	}

	return !next.IsProcessing
}

func (o *Orchestrator) report(ctx context.Context, logger *log.Logger, violations []models.ProtocolViolation) {
	for _, v := range violations {
		logger.Warn("protocol violation", "kind", v.Kind, "job", v.JobID, "detail", v.Detail)
		if o.opts.Violations == nil {
			continue
		}
		if err := o.opts.Violations.RecordViolation(context.WithoutCancel(ctx), v); err != nil {
			logger.Error("failed to record protocol violation", "error", err)
		}
	}
}
