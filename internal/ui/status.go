package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// TaskInfo is the displayable view of one background task.
type TaskInfo struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Title      string    `json:"title"`
	State      string    `json:"state"`
	Processed  int       `json:"processed"`
	MaxRecords int       `json:"max_records"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StatusRenderer displays task state.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render prints the detail view of a task.
func (r *StatusRenderer) Render(info TaskInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Task "+info.ID))

	_, _ = fmt.Fprintf(r.out, "  Title:    %s\n", info.Title)
	_, _ = fmt.Fprintf(r.out, "  Kind:     %s\n", info.Kind)
	_, _ = fmt.Fprintf(r.out, "  State:    %s\n", r.renderState(info.State))
	_, _ = fmt.Fprintf(r.out, "  Progress: %d/%d records", info.Processed, info.MaxRecords)
	if info.Failed > 0 {
		_, _ = fmt.Fprintf(r.out, " (%s)", r.styles.Warning.Render(fmt.Sprintf("%d failed", info.Failed)))
	}
	_, _ = fmt.Fprintln(r.out)
	if !info.UpdatedAt.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Updated:  %s\n", formatTime(info.UpdatedAt))
	}
	if info.Error != "" {
		_, _ = fmt.Fprintf(r.out, "  Error:    %s\n", r.styles.Error.Render(info.Error))
	}
	return nil
}

// RenderList prints one line per task.
func (r *StatusRenderer) RenderList(tasks []TaskInfo) error {
	if len(tasks) == 0 {
		_, _ = fmt.Fprintln(r.out, "No tasks.")
		return nil
	}
	for _, t := range tasks {
		_, _ = fmt.Fprintf(r.out, "%-36s  %-11s  %5d/%-5d  %s\n",
			t.ID, r.renderState(t.State), t.Processed, t.MaxRecords, t.Title)
	}
	return nil
}

// RenderJSON outputs v as indented JSON.
func (r *StatusRenderer) RenderJSON(v any) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (r *StatusRenderer) renderState(state string) string {
	switch state {
	case "completed":
		return r.styles.Success.Render(state)
	case "active", "running":
		return r.styles.Active.Render(state)
	case "created":
		return r.styles.Label.Render(state)
	case "failed":
		return r.styles.Error.Render(state)
	default:
		return state
	}
}

// formatTime formats a time relative to now.
func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}
