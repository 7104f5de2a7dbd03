package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
	"github.com/Aman-CERP/filesearch/internal/index"
	"github.com/Aman-CERP/filesearch/internal/ui"
)

// DefaultSliceDuration bounds one slice when no duration is configured.
const DefaultSliceDuration = 30 * time.Second

// SchedulerOptions configure a LocalScheduler.
type SchedulerOptions struct {
	SliceDuration time.Duration
	Renderer      ui.Renderer
	Logger        *slog.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// LocalScheduler drives tasks in-process, one deadline-bounded slice at a
// time, persisting state between slices.
type LocalScheduler struct {
	store    Store
	runner   *Runner
	renderer ui.Renderer
	logger   *slog.Logger
	slice    time.Duration
	now      func() time.Time

	// stepMu serializes slices; deadline belongs to the running one.
	stepMu   sync.Mutex
	deadline time.Time
}

// NewLocalScheduler creates a scheduler over store.
func NewLocalScheduler(store Store, runner *Runner, opts SchedulerOptions) *LocalScheduler {
	if opts.SliceDuration <= 0 {
		opts.SliceDuration = DefaultSliceDuration
	}
	if opts.Renderer == nil {
		opts.Renderer = ui.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &LocalScheduler{
		store:    store,
		runner:   runner,
		renderer: opts.Renderer,
		logger:   opts.Logger,
		slice:    opts.SliceDuration,
		now:      opts.Clock,
	}
}

// SetRunner attaches the runner. The indexer and scheduler reference each
// other, so one of them has to be wired after construction.
func (s *LocalScheduler) SetRunner(r *Runner) {
	s.stepMu.Lock()
	s.runner = r
	s.stepMu.Unlock()
}

// Submit creates a task for req and activates it.
func (s *LocalScheduler) Submit(ctx context.Context, req index.TaskRequest) (string, error) {
	t, err := newTask(uuid.NewString(), req, s.now())
	if err != nil {
		return "", err
	}
	if err := s.store.Create(ctx, t); err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}
	if err := s.Activate(ctx, t.ID); err != nil {
		return "", err
	}

	s.logger.Info("task_submitted",
		slog.String("task_id", t.ID),
		slog.String("kind", t.Kind),
		slog.String("title", t.Title),
		slog.Int("records", len(t.RecordIDs)))
	return t.ID, nil
}

// Activate makes a created task eligible to run.
func (s *LocalScheduler) Activate(ctx context.Context, id string) error {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := t.transition(StateActive, s.now()); err != nil {
		return err
	}
	return s.store.Update(ctx, t)
}

// Step runs one slice of task id and persists the outcome. A task found
// in the running state was interrupted mid-slice and resumes from its last
// saved checkpoint.
func (s *LocalScheduler) Step(ctx context.Context, id string) (*Task, error) {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()

	if s.runner == nil {
		return nil, fserrors.InternalError("scheduler has no runner", nil)
	}

	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.State.Terminal() {
		return t, nil
	}
	if t.State != StateRunning {
		if err := t.transition(StateRunning, s.now()); err != nil {
			return t, err
		}
	}
	// persistence outlives cancellation so an interrupted slice keeps its cursor
	persistCtx := context.WithoutCancel(ctx)
	if err := s.store.Update(persistCtx, t); err != nil {
		return t, err
	}

	started := s.now()
	s.deadline = started.Add(s.slice)
	s.renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   stageFor(t),
		Current: t.Checkpoint.Processed,
		Total:   t.Checkpoint.MaxRecords,
		Message: t.Title,
	})

	cp, runErr := s.runner.RunSlice(ctx, t, t.Checkpoint, s)
	t.Checkpoint = cp
	t.UpdatedAt = s.now()

	switch {
	case t.State == StateFailed:
		s.renderer.AddError(ui.ErrorEvent{Item: t.Title, Err: runErr})
	case runErr != nil:
		// not fatal to the task; the next step resumes from the returned cursor
		t.State = StateActive
	case cp.Done:
		t.State = StateCompleted
	default:
		t.State = StateActive
	}

	if err := s.store.Update(persistCtx, t); err != nil {
		return t, err
	}

	s.renderer.Complete(ui.CompletionStats{
		TaskID:   t.ID,
		State:    string(t.State),
		Records:  cp.Processed,
		Failed:   cp.Failed,
		Duration: s.now().Sub(started),
	})
	s.logger.Info("task_slice_finished",
		slog.String("task_id", t.ID),
		slog.String("state", string(t.State)),
		slog.Int("processed", cp.Processed),
		slog.Int("max_records", cp.MaxRecords),
		slog.Int("failed", cp.Failed))

	return t, runErr
}

// AllowedToRun implements Scheduler.
func (s *LocalScheduler) AllowedToRun(ctx context.Context, t *Task) bool {
	return ctx.Err() == nil && s.now().Before(s.deadline)
}

// SaveProgress implements Scheduler.
func (s *LocalScheduler) SaveProgress(ctx context.Context, t *Task, cp Checkpoint) error {
	t.Checkpoint = cp
	t.UpdatedAt = s.now()
	if err := s.store.Update(context.WithoutCancel(ctx), t); err != nil {
		return err
	}

	s.renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   stageFor(t),
		Current: cp.Processed,
		Total:   cp.MaxRecords,
		Message: t.Title,
	})
	s.logger.Debug("task_milestone",
		slog.String("task_id", t.ID),
		slog.Int("processed", cp.Processed),
		slog.Int("failed", cp.Failed))
	return nil
}

// Status returns the stored state of a task.
func (s *LocalScheduler) Status(ctx context.Context, id string) (*Task, error) {
	return s.store.Get(ctx, id)
}

// List returns all tasks, oldest first.
func (s *LocalScheduler) List(ctx context.Context) ([]*Task, error) {
	return s.store.List(ctx)
}

// RunTask steps task id until it completes, fails, or ctx ends.
func (s *LocalScheduler) RunTask(ctx context.Context, id string) (*Task, error) {
	for {
		t, err := s.Step(ctx, id)
		if err != nil {
			return t, err
		}
		if t.State.Terminal() {
			return t, nil
		}
		if err := ctx.Err(); err != nil {
			return t, err
		}
	}
}

// Run steps every runnable task until none is left or ctx ends. A task
// that fails does not stop the others.
func (s *LocalScheduler) Run(ctx context.Context) error {
	for {
		tasks, err := s.store.List(ctx, StateActive, StateRunning)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			return nil
		}

		for _, t := range tasks {
			if _, err := s.Step(ctx, t.ID); err != nil && !fserrors.IsFatal(err) {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
}

func stageFor(t *Task) ui.Stage {
	if t.Kind == index.TaskIndexPages {
		return ui.StagePages
	}
	return ui.StageIndexing
}

var (
	_ Scheduler           = (*LocalScheduler)(nil)
	_ index.TaskSubmitter = (*LocalScheduler)(nil)
)
