package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/webpq/internal/models"
	"github.com/desertthunder/webpq/internal/tasks"
)

// maxEvents bounds the completion log shown under the progress bar.
const maxEvents = 5

// ViewState represents the current view in the TUI.
type ViewState int

const (
	StartingView ViewState = iota
	WatchView
	ResultView
)

// Runner is the part of [tasks.Orchestrator] the TUI drives.
type Runner interface {
	Start(ctx context.Context, itemIDs []string, priority models.Priority) ([]models.JobID, error)
	Stop()
	Wait(ctx context.Context) error
	State() models.BatchState
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	runner   Runner
	items    []string
	priority models.Priority
	updates  <-chan tasks.ProgressUpdate
	finished chan struct{} // closed when the current run's loop exits
	state    models.BatchState
	events   []string
	stopped  bool
	width    int
	height   int
	bar      progress.Model
	jobs     list.Model
	err      error
	help     help.Model
	keys     keyMap
}

// NewModel creates a TUI model that submits items through runner and renders events read from updates.
//
// updates must be the channel the runner's callbacks were built with via [tasks.ChannelCallbacks].
func NewModel(ctx context.Context, runner Runner, updates <-chan tasks.ProgressUpdate, items []string, priority models.Priority) *Model {
	jobs := list.New(nil, list.NewDefaultDelegate(), 80, 20)
	jobs.Title = "Jobs"
	jobs.SetShowHelp(false)
	jobs.SetShowStatusBar(false)
	jobs.SetFilteringEnabled(false)
	jobs.KeyMap.Quit.SetEnabled(false)

	return &Model{
		ctx:      ctx,
		view:     StartingView,
		runner:   runner,
		items:    items,
		priority: priority,
		updates:  updates,
		bar:      progress.New(progress.WithDefaultGradient()),
		jobs:     jobs,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init submits the batch.
func (m *Model) Init() tea.Cmd {
	return m.start()
}

// Err returns the last submission or wait error, if any.
func (m *Model) Err() error { return m.err }

// State returns the last batch state the model rendered.
func (m *Model) State() models.BatchState { return m.state }

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(msg.Width-4, 10)
		m.jobs.SetSize(msg.Width-4, max(msg.Height-12, 4))
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case WatchView:
			return m.handleWatchKeys(msg)
		default:
			return m.handleResultKeys(msg)
		}

	case batchStartedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = ResultView
			return m, nil
		}
		m.view = WatchView
		m.applyState(m.runner.State())
		return m, tea.Batch(m.waitForUpdate(), m.waitForDone())

	case updateMsg:
		m.applyUpdate(tasks.ProgressUpdate(msg))
		return m, m.waitForUpdate()

	case batchDoneMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		m.applyState(m.runner.State())
		m.view = ResultView
		return m, nil
	}

	var cmd tea.Cmd
	m.jobs, cmd = m.jobs.Update(msg)
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case StartingView:
		return styles.title.Render(fmt.Sprintf("Submitting %d items (%s priority)...", len(m.items), m.priority))
	case WatchView:
		return m.renderWatch()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleWatchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.runner.Stop()
		return m, tea.Quit
	case key.Matches(msg, m.keys.stop):
		m.runner.Stop()
		m.stopped = true
		return m, nil
	}

	var cmd tea.Cmd
	m.jobs, cmd = m.jobs.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart) && m.view == ResultView:
		m.view = StartingView
		m.err = nil
		m.stopped = false
		m.events = nil
		return m, m.start()
	}

	var cmd tea.Cmd
	m.jobs, cmd = m.jobs.Update(msg)
	return m, cmd
}

func (m *Model) applyUpdate(u tasks.ProgressUpdate) {
	switch u.Phase {
	case tasks.PhaseProgress:
		m.applyState(u.State)
	case tasks.PhaseJobComplete, tasks.PhaseAllComplete:
		m.events = append(m.events, u.Message)
		if len(m.events) > maxEvents {
			m.events = m.events[len(m.events)-maxEvents:]
		}
	}
}

func (m *Model) applyState(state models.BatchState) {
	m.state = state
	m.jobs.SetItems(jobItems(state.Jobs))
}

func (m *Model) start() tea.Cmd {
	m.finished = make(chan struct{})
	items, priority := m.items, m.priority

	return func() tea.Msg {
		ids, err := m.runner.Start(m.ctx, items, priority)
		return batchStartedMsg{ids: ids, err: err}
	}
}

func (m *Model) waitForUpdate() tea.Cmd {
	updates, finished := m.updates, m.finished

	return func() tea.Msg {
		select {
		case update := <-updates:
			return updateMsg(update)
		case <-finished:
			return nil
		}
	}
}

func (m *Model) waitForDone() tea.Cmd {
	finished := m.finished

	return func() tea.Msg {
		err := m.runner.Wait(m.ctx)
		close(finished)
		return batchDoneMsg{err: err}
	}
}

func (m *Model) renderWatch() string {
	title := styles.title.Render(fmt.Sprintf("Processing %d jobs", len(m.state.Jobs)))
	if m.stopped {
		title = styles.title.Render("Stopping...")
	}

	summary := fmt.Sprintf("%.1f%% • %s completed • %s failed",
		m.state.TotalProgress,
		styles.ok.Render(fmt.Sprint(m.state.CompletedCount)),
		styles.err.Render(fmt.Sprint(m.state.FailedCount)),
	)

	var events string
	if len(m.events) > 0 {
		events = "\n" + styles.help.Render(strings.Join(m.events, "\n"))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.stop, m.keys.quit})

	return fmt.Sprintf("%s\n%s\n%s%s\n\n%s\n\n%s", title, m.bar.ViewAs(m.state.TotalProgress/100), summary, events, m.jobs.View(), helpView)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})

	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Batch failed: %v", m.err)) + "\n\n" + helpView
	}

	var title string
	switch {
	case m.stopped:
		title = styles.warn.Render("■ Batch stopped")
	case m.state.FailedCount > 0:
		title = styles.warn.Render(fmt.Sprintf("✓ Batch finished with %d failed jobs", m.state.FailedCount))
	default:
		title = styles.ok.Render("✓ Batch complete!")
	}

	info := fmt.Sprintf("\nJobs: %d\nCompleted: %d\nFailed: %d\nProgress: %.1f%%",
		len(m.state.Jobs), m.state.CompletedCount, m.state.FailedCount, m.state.TotalProgress)

	var failed string
	for _, job := range m.state.Jobs {
		if job.State == models.StateFailed {
			failed += fmt.Sprintf("\n  • %s: %s", job.ID, job.ErrorMessage)
		}
	}
	if failed != "" {
		failed = "\n\n" + styles.err.Render("Failed jobs:") + failed
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed, helpView)
}
