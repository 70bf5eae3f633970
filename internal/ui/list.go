package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/webpq/internal/models"
)

var _ list.Item = jobItem{}

// jobItem wraps [models.JobStatus] to implement [list.Item].
type jobItem struct {
	job models.JobStatus
}

func (i jobItem) FilterValue() string { return string(i.job.ID) }
func (i jobItem) Title() string       { return string(i.job.ID) }
func (i jobItem) Description() string {
	desc := fmt.Sprintf("%s • %.0f%%", styles.State(i.job.State).Render(string(i.job.State)), i.job.Progress)
	if i.job.TotalCount != nil && i.job.ProcessedCount != nil {
		desc = fmt.Sprintf("%s • %d/%d processed", desc, *i.job.ProcessedCount, *i.job.TotalCount)
	}
	if i.job.ErrorMessage != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.job.ErrorMessage)
	}
	return desc
}

func jobItems(jobs []models.JobStatus) []list.Item {
	items := make([]list.Item, len(jobs))
	for i, j := range jobs {
		items[i] = jobItem{job: j}
	}
	return items
}
