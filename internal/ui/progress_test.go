package ui

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_StartsSelecting(t *testing.T) {
	p := NewProgressTracker()

	stats := p.Stats()
	assert.Equal(t, StageSelecting, stats.Stage)
	assert.Zero(t, stats.Progress)
	assert.Zero(t, stats.ETA)
}

func TestProgressTracker_SetStageResetsPosition(t *testing.T) {
	p := NewProgressTracker()
	p.SetStage(StageIndexing, 10)
	p.Update(4, "record 4")

	p.SetStage(StagePages, 3)

	stats := p.Stats()
	assert.Equal(t, StagePages, stats.Stage)
	assert.Equal(t, 0, stats.Current)
	assert.Equal(t, 3, stats.Total)
	assert.Empty(t, stats.CurrentItem)
}

func TestProgressTracker_ProgressClamped(t *testing.T) {
	p := NewProgressTracker()
	p.SetStage(StageIndexing, 4)

	p.Update(2, "")
	assert.InDelta(t, 0.5, p.Progress(), 0.0001)

	p.Update(9, "")
	assert.InDelta(t, 1.0, p.Progress(), 0.0001)
}

func TestProgressTracker_ETA(t *testing.T) {
	p := NewProgressTracker()
	p.SetStage(StageIndexing, 100)
	time.Sleep(20 * time.Millisecond)

	p.Update(50, "")
	assert.Greater(t, p.ETA(), time.Duration(0))

	p.Update(100, "")
	assert.Zero(t, p.ETA())
}

func TestProgressTracker_ErrorsAndWarnings(t *testing.T) {
	p := NewProgressTracker()

	p.AddError(ErrorEvent{Item: "record 1", Err: errors.New("a")})
	p.AddError(ErrorEvent{Item: "record 2", Err: errors.New("b"), IsWarn: true})
	p.AddError(ErrorEvent{Item: "record 3", Err: errors.New("c")})

	stats := p.Stats()
	assert.Equal(t, 2, stats.ErrorCount)
	assert.Equal(t, 1, stats.WarnCount)

	errs := p.Errors()
	errs[0].Item = "changed"
	assert.Equal(t, "record 1", p.Errors()[0].Item)
	assert.Len(t, p.Warnings(), 1)
}

func TestProgressTracker_Elapsed(t *testing.T) {
	p := NewProgressTracker()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, p.Elapsed(), 5*time.Millisecond)
}
