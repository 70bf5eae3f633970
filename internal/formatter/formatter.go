// package formatter renders batch state to report formats (plain text, CSV, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/webpq/internal/models"
	"github.com/desertthunder/webpq/internal/shared"
)

// Format is a report output format.
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat parses a format name; the empty string maps to [FormatText].
func ParseFormat(v string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(v))); f {
	case "", "txt":
		return FormatText, nil
	case FormatText, FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (must be text, csv or json)", shared.ErrInvalidArgument, v)
	}
}

// Ext returns the file extension used for f.
func (f Format) Ext() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatJSON:
		return ".json"
	default:
		return ".txt"
	}
}

// FormatFromPath infers the format from a file extension, defaulting to [FormatText].
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".json":
		return FormatJSON
	default:
		return FormatText
	}
}

// ExportToCSV converts a BatchState to CSV with columns: id, state, progress, processed, total, failed, error
//
// Counters the backend did not report are left empty.
func ExportToCSV(state models.BatchState) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"id", "state", "progress", "processed", "total", "failed", "error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, job := range state.Jobs {
		record := []string{
			string(job.ID),
			string(job.State),
			strconv.FormatFloat(job.Progress, 'f', 1, 64),
			optionalInt(job.ProcessedCount),
			optionalInt(job.TotalCount),
			optionalInt(job.FailedCount),
			job.ErrorMessage,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a BatchState to a plain text summary followed by one line per job
func ExportToText(state models.BatchState) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Jobs: %d\n", len(state.Jobs)))
	buf.WriteString(fmt.Sprintf("Progress: %.1f%%\n", state.TotalProgress))
	buf.WriteString(fmt.Sprintf("Completed: %d\n", state.CompletedCount))
	buf.WriteString(fmt.Sprintf("Failed: %d\n", state.FailedCount))
	buf.WriteString(fmt.Sprintf("Processing: %s\n", yesNo(state.IsProcessing)))

	if len(state.Jobs) > 0 {
		buf.WriteString("\n")
	}

	for i, job := range state.Jobs {
		buf.WriteString(fmt.Sprintf("%d. %s %s %.1f%%", i+1, job.ID, job.State, job.Progress))
		if job.ErrorMessage != "" {
			buf.WriteString(fmt.Sprintf(" (%s)", job.ErrorMessage))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a BatchState to indented JSON
func ExportToJSON(state models.BatchState) ([]byte, error) {
	data, err := shared.MarshalJSON(state, true)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch state: %w", err)
	}
	return append(data, '\n'), nil
}

// Render converts a BatchState using format.
func Render(state models.BatchState, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(state)
	case FormatJSON:
		return ExportToJSON(state)
	case FormatText, "":
		return ExportToText(state)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// ExportQueueStats converts whole-queue counts to plain text
func ExportQueueStats(stats models.QueueStats) []byte {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Waiting: %d\n", stats.Waiting))
	buf.WriteString(fmt.Sprintf("Active: %d\n", stats.Active))
	buf.WriteString(fmt.Sprintf("Completed: %d\n", stats.Completed))
	buf.WriteString(fmt.Sprintf("Failed: %d\n", stats.Failed))
	buf.WriteString(fmt.Sprintf("Total: %d\n", stats.Total()))
	return buf.Bytes()
}

// WriteBatchReport writes state to path and returns the path written.
//
// An empty format is inferred from the path's extension; an empty path defaults to webpq_report_{epoch}{ext}.
func WriteBatchReport(state models.BatchState, path string, format Format) (string, error) {
	if format == "" {
		format = FormatFromPath(path)
	}
	if path == "" {
		path = fmt.Sprintf("webpq_report_%d%s", time.Now().Unix(), format.Ext())
	}

	data, err := Render(state, format)
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}

func optionalInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
