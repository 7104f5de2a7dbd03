package mcp

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/filesearch/internal/search"
	"github.com/Aman-CERP/filesearch/internal/task"
)

func TestFormatSearchResults(t *testing.T) {
	markdown := FormatSearchResults("budget", sampleResult())

	assert.Contains(t, markdown, `## Search Results for "budget"`)
	assert.Contains(t, markdown, "Found 3 hits in 2 records (backend total: 3)")
	assert.Contains(t, markdown, "### Record 5")
	assert.Contains(t, markdown, "- `report.pdf` page 2")
	assert.Contains(t, markdown, "  > the <u>budget</u> for")
	assert.Less(t, strings.Index(markdown, "### Record 5"), strings.Index(markdown, "### Record 7"))
}

func TestFormatSearchResults_Empty(t *testing.T) {
	assert.Equal(t, `No files found for "x"`, FormatSearchResults("x", nil))
	assert.Equal(t, `No files found for "x"`, FormatSearchResults("x", &search.Result{}))
}

func TestFormatSearchResults_Singular(t *testing.T) {
	r := &search.Result{
		Raw:          search.Response{NumFound: 1},
		HitsByRecord: map[int64][]search.Hit{1: {{Name: "a.pdf", RecordID: 1}}},
	}

	assert.Contains(t, FormatSearchResults("x", r), "Found 1 hit in 1 record ")
}

func TestFormatSearchResults_LimitsHighlights(t *testing.T) {
	r := &search.Result{
		HitsByRecord: map[int64][]search.Hit{1: {{
			Name: "a.pdf", RecordID: 1,
			Highlights: []string{"one", "two", "three", "four"},
		}}},
	}

	markdown := FormatSearchResults("x", r)

	assert.Contains(t, markdown, "> three")
	assert.NotContains(t, markdown, "> four")
}

func TestToSearchFilesOutput(t *testing.T) {
	out := ToSearchFilesOutput(sampleResult())

	assert.Equal(t, int64(3), out.NumFound)
	assert.Equal(t, []RecordOutput{
		{RecordID: 5, Hits: []HitOutput{
			{ID: "5_report.pdf", Name: "report.pdf", Highlights: []string{"the <u>budget</u> for"}},
			{ID: "5_report.pdf_2", Name: "report.pdf", Page: 2},
		}},
		{RecordID: 7, Hits: []HitOutput{{ID: "7_a.pdf", Name: "a.pdf"}}},
	}, out.Records)

	empty := ToSearchFilesOutput(nil)
	assert.NotNil(t, empty.Records)
	assert.Empty(t, empty.Records)
}

func TestToTaskOutput(t *testing.T) {
	updated := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))
	tk := &task.Task{
		ID: "t1", Kind: "index_all", Title: "Reindexing all files", State: task.StateCompleted,
		Checkpoint: task.Checkpoint{Processed: 9, MaxRecords: 9, Failed: 1},
		UpdatedAt:  updated,
	}

	out := ToTaskOutput(tk)

	assert.Equal(t, "completed", out.State)
	assert.Equal(t, 9, out.Processed)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, "2026-01-02T02:04:05Z", out.UpdatedAt)
}

func TestClampRows(t *testing.T) {
	assert.Equal(t, 10, clampRows(0, 10, 100))
	assert.Equal(t, 10, clampRows(-5, 10, 100))
	assert.Equal(t, 25, clampRows(25, 10, 100))
	assert.Equal(t, 100, clampRows(1000, 10, 100))
}
