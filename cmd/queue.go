package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/webpq/internal/formatter"
	"github.com/desertthunder/webpq/internal/models"
	"github.com/desertthunder/webpq/internal/shared"
	"github.com/desertthunder/webpq/internal/tasks"
	"github.com/urfave/cli/v3"
)

// JobStatus prints the current status of a single job.
func (r *Runner) JobStatus(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: job id is required", shared.ErrMissingArgument)
	}

	queue, err := r.queueClient(cmd)
	if err != nil {
		return err
	}

	status, err := queue.GetStatus(ctx, models.JobID(id))
	if err != nil {
		if shared.IsNotFound(err) {
			return fmt.Errorf("job %s does not exist: %w", id, err)
		}
		return fmt.Errorf("failed to get job status: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlain("Job: %s\n", status.ID)
	r.writePlain("State: %s\n", status.State)
	r.writePlain("Progress: %.1f%%\n", status.Progress)
	if status.TotalCount != nil && status.ProcessedCount != nil {
		r.writePlain("Processed: %d/%d\n", *status.ProcessedCount, *status.TotalCount)
	}
	if status.FailedCount != nil {
		r.writePlain("Failed items: %d\n", *status.FailedCount)
	}
	if status.StartedAt != nil {
		r.writePlain("Started: %s\n", status.StartedAt.Format("2006-01-02 15:04:05"))
	}
	if status.CompletedAt != nil {
		r.writePlain("Finished: %s\n", status.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	if status.ErrorMessage != "" {
		r.writePlain("Error: %s\n", status.ErrorMessage)
	}
	return nil
}

// QueueStats prints whole-queue job counts.
func (r *Runner) QueueStats(ctx context.Context, cmd *cli.Command) error {
	orch, err := r.orchestrator(cmd, tasks.Callbacks{}, nil)
	if err != nil {
		return err
	}

	stats, err := orch.GetQueueStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get queue stats: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}

	r.writePlainHeader("Queue")
	return r.writeBytes(formatter.ExportQueueStats(*stats))
}

// QueueClean asks the backend to delete finished jobs older than --older-than.
func (r *Runner) QueueClean(ctx context.Context, cmd *cli.Command) error {
	age := cmd.Duration("older-than")
	if age < 0 {
		return fmt.Errorf("%w: --older-than must be positive", shared.ErrInvalidFlag)
	}

	orch, err := r.orchestrator(cmd, tasks.Callbacks{}, nil)
	if err != nil {
		return err
	}

	if err := orch.CleanOldJobs(ctx, age); err != nil {
		return fmt.Errorf("failed to clean old jobs: %w", err)
	}

	r.writePlain("✓ Removed finished jobs older than %s\n", r.cleanupAge(cmd, age))
	return nil
}

func (r *Runner) cleanupAge(cmd *cli.Command, age time.Duration) time.Duration {
	if age > 0 {
		return age
	}
	if config, err := r.loadConfig(cmd); err == nil {
		return config.Queue.CleanupAge.Duration
	}
	return tasks.DefaultCleanupAge
}
