package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/desertthunder/webpq/internal/formatter"
	"github.com/desertthunder/webpq/internal/models"
	"github.com/desertthunder/webpq/internal/shared"
	"github.com/desertthunder/webpq/internal/tasks"
	"github.com/urfave/cli/v3"
)

// updateBuffer sizes the channel between the orchestrator and the command printing its events.
const updateBuffer = 64

// BatchRun submits a batch and prints progress until every job is terminal or the process is interrupted.
//
// Interrupting stops polling without touching the jobs on the backend.
func (r *Runner) BatchRun(ctx context.Context, cmd *cli.Command) error {
	items, err := r.readItems(cmd)
	if err != nil {
		return err
	}

	priority, err := r.priority(cmd)
	if err != nil {
		return err
	}

	recorder, closeLedger := r.recorder(cmd)
	defer closeLedger()

	updates := make(chan tasks.ProgressUpdate, updateBuffer)
	released := make(chan struct{})
	defer close(released)
	orch, err := r.orchestrator(cmd, tasks.ChannelCallbacks(updates, released), recorder)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ids, err := orch.Start(ctx, items, priority)
	if err != nil {
		return err
	}

	jsonOut := cmd.Bool("json")
	if !jsonOut {
		r.writePlain("Submitted %d jobs (%s priority, run %s)\n", len(ids), priority, orch.RunID())
	}

	stopped := follow(ctx, orch, updates, func(u tasks.ProgressUpdate) {
		if !jsonOut {
			r.printUpdate(u)
		}
	})
	if stopped {
		r.logger.Warn("batch interrupted, jobs keep running on the backend", "run", orch.RunID())
	}

	state := orch.State()
	if err := r.writeReport(cmd, state); err != nil {
		return err
	}

	if jsonOut {
		return r.writeJSON(state, true)
	}

	r.writePlain("\n")
	r.writePlainHeader("Batch Summary")
	data, err := formatter.ExportToText(state)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

// follow forwards updates to handle until the run's loop exits, stopping the run when ctx is done.
//
// It reports whether the run was stopped by ctx.
func follow(ctx context.Context, orch *tasks.Orchestrator, updates <-chan tasks.ProgressUpdate, handle func(tasks.ProgressUpdate)) bool {
	done := make(chan struct{})
	go func() {
		_ = orch.Wait(context.Background())
		close(done)
	}()

	interrupted := ctx.Done()
	stopped := false

	for {
		select {
		case u := <-updates:
			handle(u)
		case <-interrupted:
			orch.Stop()
			stopped = true
			interrupted = nil
		case <-done:
			for {
				select {
				case u := <-updates:
					handle(u)
				default:
					return stopped
				}
			}
		}
	}
}

func (r *Runner) printUpdate(u tasks.ProgressUpdate) {
	switch u.Phase {
	case tasks.PhaseProgress:
		r.writePlain("[%5.1f%%] %d/%d done, %d failed\n",
			u.State.TotalProgress, u.State.CompletedCount+u.State.FailedCount, len(u.State.Jobs), u.State.FailedCount)
	case tasks.PhaseJobComplete, tasks.PhaseAllComplete:
		r.writePlain("%s\n", u.Message)
	}
}

// recorder opens the violation ledger unless --no-ledger is set.
//
// A ledger that cannot be opened is logged and skipped; violations still reach the log.
func (r *Runner) recorder(cmd *cli.Command) (tasks.ViolationRecorder, func()) {
	if cmd.Bool("no-ledger") {
		return nil, func() {}
	}

	db, repo, err := r.openLedger(cmd)
	if err != nil {
		r.logger.Warn("violation ledger unavailable", "error", err)
		return nil, func() {}
	}

	return repo, func() { db.Close() }
}

// readItems collects item IDs from --items and --items-file, in that order.
func (r *Runner) readItems(cmd *cli.Command) ([]string, error) {
	var items []string
	for _, v := range cmd.StringSlice("items") {
		items = append(items, splitItems(v)...)
	}

	if path := cmd.String("items-file"); path != "" {
		var src io.Reader = r.input
		if path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return nil, fmt.Errorf("failed to open items file: %w", err)
			}
			defer f.Close()
			src = f
		}

		fileItems, err := scanItems(src)
		if err != nil {
			return nil, fmt.Errorf("failed to read items file: %w", err)
		}
		items = append(items, fileItems...)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: --items or --items-file must name at least one item", shared.ErrMissingArgument)
	}

	return items, nil
}

// priority resolves --priority, falling back to queue.default_priority.
func (r *Runner) priority(cmd *cli.Command) (models.Priority, error) {
	v := cmd.String("priority")
	if v == "" {
		config, err := r.loadConfig(cmd)
		if err != nil {
			return "", err
		}
		v = config.Queue.DefaultPriority
	}

	p, err := models.ParsePriority(v)
	if err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrInvalidFlag, err)
	}
	return p, nil
}

func splitItems(v string) []string {
	var items []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

// scanItems reads one item per line, skipping blank lines and # comments.
func scanItems(src io.Reader) ([]string, error) {
	var items []string
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		items = append(items, line)
	}
	return items, scanner.Err()
}
