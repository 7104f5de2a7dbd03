package task

import (
	"context"
	"sync"
	"time"

	"github.com/Aman-CERP/filesearch/internal/index"
	"github.com/Aman-CERP/filesearch/internal/ui"
)

// MockIndexer records the ids it is asked to index.
type MockIndexer struct {
	mu        sync.Mutex
	Calls     []int64
	Forced    []bool
	PageCalls []string
	Errs      map[int64]error
	PagesErr  error
	Commits   int
	CommitErr error
	// OnIndex runs after every call, e.g. to advance a fake clock.
	OnIndex func()
	// Cancel, when set, is called while indexing CancelAt (or the pages of
	// any attachment when CancelAt is 0), and that call returns ctx.Err().
	Cancel   context.CancelFunc
	CancelAt int64
}

func (m *MockIndexer) interrupt(ctx context.Context, id int64) error {
	if m.Cancel == nil || id != m.CancelAt {
		return nil
	}
	m.Cancel()
	return ctx.Err()
}

func (m *MockIndexer) IndexRecordID(ctx context.Context, id int64, opts index.RunOptions) error {
	if err := m.interrupt(ctx, id); err != nil {
		return err
	}
	m.mu.Lock()
	m.Calls = append(m.Calls, id)
	m.Forced = append(m.Forced, opts.Force)
	err := m.Errs[id]
	hook := m.OnIndex
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (m *MockIndexer) IndexAttachmentPages(ctx context.Context, id int64, name string) error {
	if err := m.interrupt(ctx, 0); err != nil {
		return err
	}
	m.mu.Lock()
	m.PageCalls = append(m.PageCalls, name)
	err := m.PagesErr
	hook := m.OnIndex
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (m *MockIndexer) Commit(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commits++
	return m.CommitErr
}

// MockScheduler allows a fixed number of ids and records saved checkpoints.
type MockScheduler struct {
	// Allow is the number of AllowedToRun calls answered true; -1 is unlimited.
	Allow   int
	Checks  int
	Saved   []Checkpoint
	SaveErr error
}

func (m *MockScheduler) AllowedToRun(context.Context, *Task) bool {
	m.Checks++
	return m.Allow < 0 || m.Checks <= m.Allow
}

func (m *MockScheduler) SaveProgress(_ context.Context, _ *Task, cp Checkpoint) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saved = append(m.Saved, cp)
	return nil
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// MockRenderer records renderer events.
type MockRenderer struct {
	mu        sync.Mutex
	Progress  []ui.ProgressEvent
	Errors    []ui.ErrorEvent
	Completed []ui.CompletionStats
}

func (m *MockRenderer) Start(context.Context) error { return nil }
func (m *MockRenderer) Stop() error                 { return nil }

func (m *MockRenderer) UpdateProgress(e ui.ProgressEvent) {
	m.mu.Lock()
	m.Progress = append(m.Progress, e)
	m.mu.Unlock()
}

func (m *MockRenderer) AddError(e ui.ErrorEvent) {
	m.mu.Lock()
	m.Errors = append(m.Errors, e)
	m.mu.Unlock()
}

func (m *MockRenderer) Complete(s ui.CompletionStats) {
	m.mu.Lock()
	m.Completed = append(m.Completed, s)
	m.mu.Unlock()
}

func ids(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i + 1)
	}
	return out
}

func allTask(n int) *Task {
	return &Task{
		ID:         "t1",
		Kind:       index.TaskIndexAll,
		RecordIDs:  ids(n),
		Action:     "indexmissing",
		State:      StateRunning,
		Checkpoint: Checkpoint{MaxRecords: n},
	}
}
