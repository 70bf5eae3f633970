// Package ui implements an interactive terminal monitor for a batch using bubbletea's Elm architecture.
//
// The TUI moves through three views:
//  1. [StartingView] : Submitting the batch
//  2. [WatchView] : Live progress bar and per-job list
//  3. [ResultView] : Final counts, failed jobs and an option to run the batch again
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern. Orchestrator events flow through
// the channel built with [tasks.ChannelCallbacks]; a second command waits on the run's poll loop so the model learns
// when a stopped run has actually finished.
//
// Keyboard navigation uses vim-style bindings (j/k, s, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
