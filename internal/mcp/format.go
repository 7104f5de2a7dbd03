package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/Aman-CERP/filesearch/internal/search"
	"github.com/Aman-CERP/filesearch/internal/task"
)

// maxHighlights bounds the snippets shown per hit.
const maxHighlights = 3

// FormatSearchResults formats a reconciled result as markdown.
func FormatSearchResults(text string, result *search.Result) string {
	if result == nil || len(result.HitsByRecord) == 0 {
		return fmt.Sprintf("No files found for \"%s\"", text)
	}

	ids := result.RecordIDs()
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for \"%s\"\n\n", text)
	fmt.Fprintf(&sb, "Found %d hit%s in %d record%s (backend total: %d)\n\n",
		result.HitCount(), plural(result.HitCount()),
		len(ids), plural(len(ids)),
		result.Raw.NumFound)

	for _, id := range ids {
		fmt.Fprintf(&sb, "### Record %d\n\n", id)
		for _, h := range result.HitsByRecord[id] {
			formatHit(&sb, h)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatHit(sb *strings.Builder, h search.Hit) {
	if h.PageNum > 0 {
		fmt.Fprintf(sb, "- `%s` page %d\n", h.Name, h.PageNum)
	} else {
		fmt.Fprintf(sb, "- `%s`\n", h.Name)
	}
	for i, hl := range h.Highlights {
		if i == maxHighlights {
			break
		}
		fmt.Fprintf(sb, "  > %s\n", strings.TrimSpace(hl))
	}
}

// ToSearchFilesOutput converts a reconciled result to the tool output.
func ToSearchFilesOutput(result *search.Result) SearchFilesOutput {
	out := SearchFilesOutput{Records: []RecordOutput{}}
	if result == nil {
		return out
	}
	out.NumFound = result.Raw.NumFound

	for _, id := range result.RecordIDs() {
		rec := RecordOutput{RecordID: id, Hits: make([]HitOutput, 0, len(result.HitsByRecord[id]))}
		for _, h := range result.HitsByRecord[id] {
			rec.Hits = append(rec.Hits, HitOutput{
				ID:         h.ID,
				Name:       h.Name,
				Page:       h.PageNum,
				Highlights: h.Highlights,
			})
		}
		out.Records = append(out.Records, rec)
	}
	return out
}

// ToTaskOutput converts a stored task to the tool output.
func ToTaskOutput(t *task.Task) TaskOutput {
	return TaskOutput{
		ID:         t.ID,
		Kind:       t.Kind,
		Title:      t.Title,
		State:      string(t.State),
		Processed:  t.Checkpoint.Processed,
		MaxRecords: t.Checkpoint.MaxRecords,
		Failed:     t.Checkpoint.Failed,
		Error:      t.Error,
		UpdatedAt:  t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// clampRows keeps a requested page size within bounds.
func clampRows(rows, defaultVal, max int) int {
	if rows <= 0 {
		return defaultVal
	}
	if rows > max {
		return max
	}
	return rows
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
