package ui

import (
	"github.com/desertthunder/webpq/internal/models"
	"github.com/desertthunder/webpq/internal/tasks"
)

// batchStartedMsg reports the outcome of [tasks.Orchestrator.Start].
type batchStartedMsg struct {
	ids []models.JobID
	err error
}

// updateMsg carries one orchestrator event read from the updates channel.
type updateMsg tasks.ProgressUpdate

// batchDoneMsg is sent once the run's poll loop has exited.
type batchDoneMsg struct {
	err error
}
