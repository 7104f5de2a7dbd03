package task

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
	"github.com/Aman-CERP/filesearch/internal/index"
)

func openTestStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "tasks.db")
	s, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func storedTask(id string, created time.Time) *Task {
	return &Task{
		ID:         id,
		Kind:       index.TaskIndexAll,
		Title:      "Reindexing all files",
		RecordIDs:  []int64{4, 8, 15},
		Action:     "indexall",
		State:      StateCreated,
		Checkpoint: Checkpoint{MaxRecords: 3},
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func TestSQLiteStore_CreateGet(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 123, time.UTC)

	require.NoError(t, s.Create(ctx, storedTask("a", now)))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Reindexing all files", got.Title)
	assert.Equal(t, []int64{4, 8, 15}, got.RecordIDs)
	assert.Equal(t, "indexall", got.Action)
	assert.Equal(t, StateCreated, got.State)
	assert.Equal(t, 3, got.Checkpoint.MaxRecords)
	assert.True(t, now.Equal(got.CreatedAt))
}

func TestSQLiteStore_DuplicateID(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, storedTask("a", time.Now())))
	assert.Error(t, s.Create(ctx, storedTask("a", time.Now())))
}

func TestSQLiteStore_UpdateCheckpoint(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	task := storedTask("a", time.Now())
	require.NoError(t, s.Create(ctx, task))

	task.State = StateActive
	task.Checkpoint = Checkpoint{Processed: 2, Milestone: 2, MaxRecords: 3, Failed: 1}
	task.Error = "last error"
	require.NoError(t, s.Update(ctx, task))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, StateActive, got.State)
	assert.Equal(t, task.Checkpoint, got.Checkpoint)
	assert.Equal(t, "last error", got.Error)

	task.Checkpoint.Done = true
	require.NoError(t, s.Update(ctx, task))
	got, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, got.Checkpoint.Done)
}

func TestSQLiteStore_NotFound(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, fserrors.ErrCodeInvalidInput, fserrors.GetCode(err))

	err = s.Update(ctx, storedTask("missing", time.Now()))
	assert.Equal(t, fserrors.ErrCodeInvalidInput, fserrors.GetCode(err))
}

func TestSQLiteStore_ListByState(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	base := time.Now()

	for i, st := range []State{StateActive, StateCompleted, StateRunning, StateFailed} {
		task := storedTask(string(rune('a'+i)), base.Add(time.Duration(i)*time.Second))
		task.State = st
		require.NoError(t, s.Create(ctx, task))
	}

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "d", all[3].ID)

	runnable, err := s.List(ctx, StateActive, StateRunning)
	require.NoError(t, err)
	require.Len(t, runnable, 2)
	assert.Equal(t, "a", runnable[0].ID)
	assert.Equal(t, "c", runnable[1].ID)

	none, err := s.List(ctx, StateCreated)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	s, path := openTestStore(t)
	ctx := context.Background()
	task := storedTask("a", time.Now())
	task.Checkpoint.Processed = 2
	require.NoError(t, s.Create(ctx, task))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Checkpoint.Processed)
}

func TestSQLiteStore_Closed(t *testing.T) {
	s, _ := openTestStore(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Get(context.Background(), "a")
	assert.ErrorIs(t, err, errClosed)
	assert.ErrorIs(t, s.Create(context.Background(), storedTask("a", time.Now())), errClosed)
}
