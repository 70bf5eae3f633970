package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/webpq/internal/models"
	"github.com/desertthunder/webpq/internal/shared"
	"golang.org/x/sync/errgroup"
)

// DefaultPollInterval is the pause between the end of one cycle and the start of the next.
const DefaultPollInterval = 2 * time.Second

// StatusFetcher is the slice of [services.JobQueue] a [Poller] needs.
type StatusFetcher interface {
	GetStatus(ctx context.Context, id models.JobID) (*models.JobStatus, error)
}

// CycleHandler receives each completed cycle's statuses, in id order.
// Returning true ends polling.
type CycleHandler func(statuses []models.JobStatus) (done bool)

// PollerOpts configures a [Poller].
type PollerOpts struct {
	Interval      time.Duration // Default: DefaultPollInterval
	MaxConcurrent int           // In-flight GetStatus calls per cycle; 0 means one per id
	Logger        *log.Logger
}

// Poller repeatedly fetches the status of a fixed set of jobs.
type Poller struct {
	queue    StatusFetcher
	ids      []models.JobID
	interval time.Duration
	limit    int
	logger   *log.Logger
}

// NewPoller creates a Poller over a copy of ids.
func NewPoller(queue StatusFetcher, ids []models.JobID, opts PollerOpts) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = shared.NopLogger()
	}

	return &Poller{
		queue:    queue,
		ids:      append([]models.JobID(nil), ids...),
		interval: opts.Interval,
		limit:    opts.MaxConcurrent,
		logger:   opts.Logger,
	}
}

// IDs returns the polled ids in order.
func (p *Poller) IDs() []models.JobID {
	return append([]models.JobID(nil), p.ids...)
}

// Poll runs a single cycle: one concurrent GetStatus per id, joined before returning.
//
// The result always has one entry per id at the id's position. A failed fetch becomes a synthetic failed status
// carrying the error text, so one job's transport failure never affects the others.
func (p *Poller) Poll(ctx context.Context) []models.JobStatus {
	results := make([]models.JobStatus, len(p.ids))

	var g errgroup.Group
	if p.limit > 0 {
		g.SetLimit(p.limit)
	}

	for i, id := range p.ids {
		g.Go(func() error {
			results[i] = p.fetch(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (p *Poller) fetch(ctx context.Context, id models.JobID) models.JobStatus {
	status, err := p.queue.GetStatus(ctx, id)
	if err != nil {
		p.logger.Debug("status fetch failed", "job", id, "error", err)
		return models.FailedStatus(id, err.Error())
	}
	if status == nil {
		return models.FailedStatus(id, "empty status")
	}
	return status.Normalize()
}

// Run polls until handle reports completion or ctx is cancelled.
//
// The first cycle starts immediately; each later cycle starts Interval after the previous one was handled, so cycles
// never overlap. A cycle that finishes after cancellation is discarded without reaching handle. Returns nil on
// completion and an error matching [shared.ErrCancelled] otherwise.
func (p *Poller) Run(ctx context.Context, handle CycleHandler) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return cancelled(ctx)
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return cancelled(ctx)
		}

		statuses := p.Poll(ctx)
		if ctx.Err() != nil {
			return cancelled(ctx)
		}

		if handle(statuses) {
			return nil
		}
		timer.Reset(p.interval)
	}
}

func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", shared.ErrCancelled, context.Cause(ctx))
}
