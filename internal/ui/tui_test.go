package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestNewTUIRenderer_RejectsNonTTY(t *testing.T) {
	// Given: a non-TTY buffer
	buf := &bytes.Buffer{}

	// When: creating TUI renderer
	r, err := NewTUIRenderer(NewConfig(buf))

	// Then: it refuses
	assert.Error(t, err)
	assert.Nil(t, r)
}

func TestTaskModel_View_StagesAndTitle(t *testing.T) {
	tracker := NewProgressTracker()
	model := newTaskModel(tracker, "Reindexing all files")
	model.styles = NoColorStyles()

	view := model.View()

	assert.Contains(t, view, "Reindexing all files")
	for _, s := range []string{"Selecting", "Indexing", "Pages", "Committing"} {
		assert.Contains(t, view, s)
	}
}

func TestTaskModel_View_Progress(t *testing.T) {
	// Given: a tracker halfway through the records
	tracker := NewProgressTracker()
	tracker.SetStage(StageIndexing, 8)
	tracker.Update(4, "record 4")

	model := newTaskModel(tracker, "")
	model.styles = NoColorStyles()

	// When: rendering
	view := model.View()

	// Then: counts, percentage and current item are shown
	assert.Contains(t, view, "4 / 8 records")
	assert.Contains(t, view, "50%")
	assert.Contains(t, view, "record 4")
}

func TestTaskModel_View_PagesUnit(t *testing.T) {
	tracker := NewProgressTracker()
	tracker.SetStage(StagePages, 40)
	tracker.Update(10, "")

	model := newTaskModel(tracker, "")
	model.styles = NoColorStyles()

	assert.Contains(t, model.View(), "10 / 40 pages")
}

func TestTaskModel_StatusBarCounts(t *testing.T) {
	tracker := NewProgressTracker()
	tracker.AddError(ErrorEvent{Err: errors.New("x")})
	tracker.AddError(ErrorEvent{Err: errors.New("y"), IsWarn: true})

	model := newTaskModel(tracker, "")
	model.styles = NoColorStyles()

	bar := model.renderStatusBar()
	assert.Contains(t, bar, "1 warnings")
	assert.Contains(t, bar, "1 errors")
	assert.Contains(t, bar, "q to quit")
}

func TestTaskModel_Update(t *testing.T) {
	model := newTaskModel(NewProgressTracker(), "")
	model.styles = NoColorStyles()

	_, _ = model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, model.width)
	assert.Equal(t, 100, model.progressBar.Width)

	_, cmd := model.Update(completeMsg(CompletionStats{TaskID: "t1", State: "completed", Records: 7, Duration: 3 * time.Second}))
	assert.NotNil(t, cmd)
	assert.True(t, model.complete)

	view := model.View()
	assert.Contains(t, view, "Indexing complete")
	assert.Contains(t, view, "t1")
	assert.Contains(t, view, "3s")
}

func TestTaskModel_CompleteSlice(t *testing.T) {
	model := newTaskModel(NewProgressTracker(), "")
	model.styles = NoColorStyles()
	model.complete = true
	model.stats = CompletionStats{State: "active", Records: 3}

	assert.Contains(t, model.View(), "Slice finished (active)")
}

func TestTaskModel_QuitKey(t *testing.T) {
	model := newTaskModel(NewProgressTracker(), "")

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	assert.NotNil(t, cmd)
	assert.Equal(t, "Cancelled.\n", model.View())
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{42 * time.Second, "42s"},
		{2 * time.Minute, "2m"},
		{2*time.Minute + 5*time.Second, "2m 5s"},
		{90 * time.Minute, "1h 30m"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.in))
		})
	}
}

func TestTruncatePath(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		maxLen int
		want   string
	}{
		{"fits", "12/report.pdf", 40, "12/report.pdf"},
		{"empty", "", 5, ""},
		{"tiny", "abcdefgh", 3, "..."},
		{"no separator", "abcdefghij", 8, "...fghij"},
		{"keeps filename", "records/0012/files/report.pdf", 20, ".../files/report.pdf"},
		{"long filename", "a/very-long-file-name.pdf", 10, "...ame.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncatePath(tt.path, tt.maxLen)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), max(tt.maxLen, 3))
		})
	}
}
