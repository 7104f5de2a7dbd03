// Package task runs long indexing jobs in checkpointed, time-boxed slices
// so they survive restarts and never hold a process longer than a slice.
package task

import (
	"context"
	"fmt"
	"time"

	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
	"github.com/Aman-CERP/filesearch/internal/index"
	"github.com/Aman-CERP/filesearch/internal/ui"
)

// State is the lifecycle position of a task.
type State string

// Task states. A task only reaches StateFailed through a fatal error.
const (
	StateCreated   State = "created"
	StateActive    State = "active"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

var transitions = map[State][]State{
	StateCreated: {StateActive},
	StateActive:  {StateRunning},
	// running yields back to active at the end of a slice
	StateRunning: {StateActive, StateCompleted, StateFailed},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Checkpoint is the resumable cursor of a task.
type Checkpoint struct {
	// Processed counts ids handled so far, failures included.
	Processed int
	// Milestone is the Processed value at which progress is next saved.
	Milestone  int
	MaxRecords int
	Failed     int
	Done       bool
}

// Task is one unit of deferred indexing work.
type Task struct {
	ID        string
	Kind      string
	Title     string
	RecordIDs []int64
	// Action is the IndexAll action an index_all task was created for.
	Action string
	// Attachment is the file name of an index_pages task.
	Attachment string
	State      State
	Error      string
	Checkpoint Checkpoint
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// newTask builds a created task from a submission.
func newTask(id string, req index.TaskRequest, now time.Time) (*Task, error) {
	switch req.Kind {
	case index.TaskIndexAll:
	case index.TaskIndexPages:
		if len(req.RecordIDs) != 1 || req.Attachment == "" {
			return nil, fserrors.ValidationError("index_pages task needs exactly one record and an attachment", nil)
		}
	default:
		return nil, fserrors.ValidationError(fmt.Sprintf("unknown task kind %q", req.Kind), nil)
	}

	return &Task{
		ID:         id,
		Kind:       req.Kind,
		Title:      req.Title,
		RecordIDs:  append([]int64(nil), req.RecordIDs...),
		Action:     req.Action,
		Attachment: req.Attachment,
		State:      StateCreated,
		Checkpoint: Checkpoint{MaxRecords: len(req.RecordIDs)},
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// transition moves the task to state to, rejecting illegal moves.
func (t *Task) transition(to State, now time.Time) error {
	for _, allowed := range transitions[t.State] {
		if allowed == to {
			t.State = to
			t.UpdatedAt = now
			return nil
		}
	}
	return fserrors.New(fserrors.ErrCodeTaskFailed,
		fmt.Sprintf("task %s cannot move from %s to %s", t.ID, t.State, to), nil)
}

// Info returns the display form of the task.
func (t *Task) Info() ui.TaskInfo {
	return ui.TaskInfo{
		ID:         t.ID,
		Kind:       t.Kind,
		Title:      t.Title,
		State:      string(t.State),
		Processed:  t.Checkpoint.Processed,
		MaxRecords: t.Checkpoint.MaxRecords,
		Failed:     t.Checkpoint.Failed,
		Error:      t.Error,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

// Scheduler owns timing and persistence for a running slice.
type Scheduler interface {
	// AllowedToRun reports whether the slice may process another id.
	AllowedToRun(ctx context.Context, t *Task) bool
	// SaveProgress persists cp as the task's checkpoint.
	SaveProgress(ctx context.Context, t *Task, cp Checkpoint) error
}

// Store persists tasks.
type Store interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	Update(ctx context.Context, t *Task) error
	// List returns tasks in creation order, optionally limited to states.
	List(ctx context.Context, states ...State) ([]*Task, error)
	Close() error
}

// NotFound is returned by Store.Get for an unknown id.
func NotFound(id string) *fserrors.FSError {
	return fserrors.New(fserrors.ErrCodeInvalidInput, fmt.Sprintf("task %s not found", id), nil).
		WithDetail("task_id", id)
}
