package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/webpq/internal/shared"
	"github.com/desertthunder/webpq/internal/tasks"
	"github.com/desertthunder/webpq/internal/ui"
	"github.com/urfave/cli/v3"
)

// BatchWatch submits a batch and monitors it in the interactive terminal UI.
func (r *Runner) BatchWatch(ctx context.Context, cmd *cli.Command) error {
	items, err := r.readItems(cmd)
	if err != nil {
		return err
	}

	priority, err := r.priority(cmd)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/webpq-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	recorder, closeLedger := r.recorder(cmd)
	defer closeLedger()

	updates := make(chan tasks.ProgressUpdate, updateBuffer)
	released := make(chan struct{})
	defer close(released)
	orch, err := r.orchestrator(cmd, tasks.ChannelCallbacks(updates, released), recorder)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, orch, updates, items, priority)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		orch.Stop()
		return fmt.Errorf("error running TUI: %w", err)
	}

	if err := model.Err(); err != nil {
		return err
	}

	return r.writeReport(cmd, orch.State())
}
