package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Aman-CERP/filesearch/internal/config"
	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
	"github.com/Aman-CERP/filesearch/internal/index"
)

// RecordIndexer is the part of index.Indexer a task drives.
type RecordIndexer interface {
	IndexRecordID(ctx context.Context, id int64, opts index.RunOptions) error
	IndexAttachmentPages(ctx context.Context, id int64, name string) error
	Commit(ctx context.Context) error
}

// Runner executes task slices. It never spawns goroutines and never looks
// at a clock; the Scheduler decides when a slice ends.
type Runner struct {
	indexer RecordIndexer
	step    int
	logger  *slog.Logger
}

// NewRunner creates a Runner that saves progress every step records.
func NewRunner(indexer RecordIndexer, step int, logger *slog.Logger) *Runner {
	if step < 1 {
		step = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{indexer: indexer, step: step, logger: logger}
}

// RunSlice advances t from cp until the task is done, the scheduler stops
// it, or a fatal error occurs. The returned checkpoint replaces cp.
func (r *Runner) RunSlice(ctx context.Context, t *Task, cp Checkpoint, sched Scheduler) (Checkpoint, error) {
	if t.Kind == index.TaskIndexPages {
		return r.runPages(ctx, t, cp, sched)
	}

	cp.Milestone = cp.Processed + r.step
	opts := index.RunOptions{Force: t.Action == config.ActionIndexAll}

	r.logger.Info("task_slice_started",
		slog.String("task_id", t.ID),
		slog.Int("offset", cp.Processed),
		slog.Int("max_records", cp.MaxRecords))

	committed := cp.Processed
	for _, id := range t.RecordIDs[min(cp.Processed, len(t.RecordIDs)):] {
		if !sched.AllowedToRun(ctx, t) {
			break
		}

		if err := r.indexer.IndexRecordID(ctx, id, opts); err != nil && !fserrors.IsSkip(err) {
			if interrupted(ctx, err) {
				// not counted; the record runs again next slice
				r.logger.Info("task_record_interrupted",
					slog.String("task_id", t.ID),
					slog.Int64("record_id", id))
				break
			}
			if fserrors.IsFatal(err) {
				r.fail(t, err)
				return cp, err
			}
			cp.Failed++
			r.logger.Warn("task_record_failed",
				slog.String("task_id", t.ID),
				slog.Int64("record_id", id),
				slog.String("error", err.Error()))
		}

		cp.Processed++
		if cp.Processed >= cp.Milestone {
			if err := r.commit(ctx, t); err != nil {
				return cp, err
			}
			committed = cp.Processed
			if err := sched.SaveProgress(ctx, t, cp); err != nil {
				return cp, fmt.Errorf("save progress: %w", err)
			}
			cp.Milestone = cp.Processed + r.step
		}
	}

	if cp.Processed > committed {
		if err := r.commit(ctx, t); err != nil {
			return cp, err
		}
	}
	if cp.Processed == cp.MaxRecords {
		cp.Done = true
	}
	return cp, nil
}

// runPages handles an index_pages task, whose single attachment cannot be
// split across slices.
func (r *Runner) runPages(ctx context.Context, t *Task, cp Checkpoint, sched Scheduler) (Checkpoint, error) {
	if cp.Done || !sched.AllowedToRun(ctx, t) {
		return cp, nil
	}

	id := t.RecordIDs[0]
	err := r.indexer.IndexAttachmentPages(ctx, id, t.Attachment)
	switch {
	case err == nil:
		if err := r.commit(ctx, t); err != nil {
			return cp, err
		}
	case fserrors.IsSkip(err):
	case interrupted(ctx, err):
		r.logger.Info("task_attachment_interrupted",
			slog.String("task_id", t.ID),
			slog.Int64("record_id", id),
			slog.String("attachment", t.Attachment))
		return cp, nil
	case fserrors.IsFatal(err):
		r.fail(t, err)
		return cp, err
	default:
		cp.Failed++
		r.logger.Warn("task_attachment_failed",
			slog.String("task_id", t.ID),
			slog.Int64("record_id", id),
			slog.String("attachment", t.Attachment),
			slog.String("error", err.Error()))
	}

	cp.Processed = 1
	cp.Milestone = 1
	cp.Done = true
	return cp, nil
}

// commit makes the slice's writes visible. Only a fatal failure is
// returned; otherwise the writes stay pending until the next commit.
func (r *Runner) commit(ctx context.Context, t *Task) error {
	// records finished before an interrupt are still made visible
	err := r.indexer.Commit(context.WithoutCancel(ctx))
	switch {
	case err == nil:
		return nil
	case fserrors.IsFatal(err):
		r.fail(t, err)
		return err
	default:
		r.logger.Warn("task_commit_failed",
			slog.String("task_id", t.ID),
			slog.String("error", err.Error()))
		return nil
	}
}

// interrupted reports whether the caller's context ended during the call.
// A backend's own request timeout is an ordinary record failure.
func interrupted(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil
}

func (r *Runner) fail(t *Task, err error) {
	t.State = StateFailed
	t.Error = err.Error()
	r.logger.Error("task_failed",
		slog.String("task_id", t.ID),
		slog.String("error", err.Error()))
}
