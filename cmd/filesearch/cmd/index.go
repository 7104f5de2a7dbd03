package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/filesearch/internal/config"
	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
	"github.com/Aman-CERP/filesearch/internal/index"
	"github.com/Aman-CERP/filesearch/internal/output"
	"github.com/Aman-CERP/filesearch/internal/task"
	"github.com/Aman-CERP/filesearch/internal/ui"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	all     bool
	missing bool
	reset   bool
	force   bool
	detach  bool
	noTUI   bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index [record-id...]",
		Short: "Index record attachments into the search backend",
		Long: `Index the attachments of the given records, or run a batch action over
every record with attachments.

Without record ids the action comes from --all, --missing or --reset, and
falls back to indexing.action from the configuration:
  --missing   index attachments the backend does not have yet
  --all       reindex every attachment
  --reset     clear the backend

Batches above indexing.inline_record_limit are queued as a task. The task
runs right away unless --detach is given; 'filesearch task run' picks it
up later.`,
		Example: `  # Index two records
  filesearch index 12 15

  # Reindex one record even if the backend has it
  filesearch index 12 --force

  # Queue a full reindex without running it
  filesearch index --all --detach`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIndex(ctx, cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.all, "all", false, "Reindex every attachment")
	cmd.Flags().BoolVar(&opts.missing, "missing", false, "Index attachments missing from the backend")
	cmd.Flags().BoolVar(&opts.reset, "reset", false, "Clear the backend")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Reindex the given records even if already indexed")
	cmd.Flags().BoolVar(&opts.detach, "detach", false, "Queue tasks without running them")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Disable TUI mode, use plain text output")
	cmd.MarkFlagsMutuallyExclusive("all", "missing", "reset")

	return cmd
}

// action resolves the batch action from the flags, or "" when none is set.
func (o indexOptions) action() string {
	switch {
	case o.all:
		return config.ActionIndexAll
	case o.missing:
		return config.ActionIndexMissing
	case o.reset:
		return config.ActionReset
	default:
		return ""
	}
}

func runIndex(ctx context.Context, cmd *cobra.Command, args []string, opts indexOptions) error {
	ids, err := parseRecordIDs(args)
	if err != nil {
		return err
	}
	if len(ids) > 0 && opts.action() != "" {
		return fserrors.ValidationError("record ids cannot be combined with --all, --missing or --reset", nil)
	}

	renderer := newTaskRenderer(cmd, "filesearch indexer")
	if opts.noTUI {
		renderer = ui.NewPlainRenderer(ui.NewConfig(cmd.OutOrStdout(), ui.WithTitle("filesearch indexer")))
	}

	a, err := openApp(cmd, renderer)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	out := output.New(cmd.OutOrStdout())

	if opts.action() != config.ActionReset {
		if err := a.cfg.CheckTools(); err != nil {
			return err
		}
	}

	if len(ids) > 0 {
		slog.Info("index_records_started", slog.Int("records", len(ids)), slog.Bool("force", opts.force))
		if err := a.indexer.IndexRecords(ctx, ids, index.RunOptions{Force: opts.force}); err != nil {
			return err
		}
		if err := a.indexer.Commit(ctx); err != nil {
			return err
		}
		out.Successf("Indexed %d record%s", len(ids), plural(len(ids)))
		// large attachments may have queued page tasks
		if opts.detach {
			return nil
		}
		return runQueued(ctx, a, renderer, out)
	}

	action := opts.action()
	if action == "" {
		action = a.cfg.Indexing.Action
	}

	res, err := a.indexer.IndexAll(ctx, action)
	if err != nil {
		return err
	}

	switch {
	case action == config.ActionReset:
		out.Success("Backend cleared")
		return nil
	case res.Inline:
		if err := a.indexer.Commit(ctx); err != nil {
			return err
		}
		out.Successf("%s: indexed %d record%s inline", action, res.Records, plural(res.Records))
		if opts.detach {
			return nil
		}
		return runQueued(ctx, a, renderer, out)
	case opts.detach:
		out.Successf("%s: queued %d records as task %s", action, res.Records, res.TaskID)
		out.Status("", "Run 'filesearch task run "+res.TaskID+"' to process it")
		return nil
	}

	out.Statusf("📋", "%s: %d records queued as task %s", action, res.Records, res.TaskID)
	return runTaskNow(ctx, a, renderer, out, res.TaskID)
}

// runTaskNow steps one task to completion under the run lock.
func runTaskNow(ctx context.Context, a *app, renderer ui.Renderer, out *output.Writer, id string) error {
	release, err := task.AcquireRunLock(a.runLockPath())
	if err != nil {
		if errors.Is(err, task.ErrRunnerBusy) {
			out.Warningf("Another runner is active; task %s will be picked up by it", id)
			return nil
		}
		return err
	}
	defer release()

	if err := renderer.Start(ctx); err != nil {
		return err
	}
	t, err := a.scheduler.RunTask(ctx, id)
	_ = renderer.Stop()
	if err != nil {
		return err
	}
	return reportTask(out, t)
}

// runQueued runs whatever tasks are pending, if no other runner is active.
func runQueued(ctx context.Context, a *app, renderer ui.Renderer, out *output.Writer) error {
	pending, err := a.tasks.List(ctx, task.StateActive, task.StateRunning)
	if err != nil || len(pending) == 0 {
		return err
	}

	release, err := task.AcquireRunLock(a.runLockPath())
	if err != nil {
		if errors.Is(err, task.ErrRunnerBusy) {
			out.Warningf("%d task%s queued; another runner is active", len(pending), plural(len(pending)))
			return nil
		}
		return err
	}
	defer release()

	if err := renderer.Start(ctx); err != nil {
		return err
	}
	err = a.scheduler.Run(ctx)
	_ = renderer.Stop()
	if err != nil {
		return err
	}
	out.Successf("Ran %d queued task%s", len(pending), plural(len(pending)))
	return nil
}

func reportTask(out *output.Writer, t *task.Task) error {
	cp := t.Checkpoint
	switch t.State {
	case task.StateCompleted:
		out.Successf("Task %s completed: %s", t.ID, output.Tally(cp.Processed, cp.MaxRecords, cp.Failed))
		return nil
	case task.StateFailed:
		return fserrors.New(fserrors.ErrCodeTaskFailed, fmt.Sprintf("task %s failed: %s", t.ID, t.Error), nil)
	default:
		out.Statusf("⏸", "Task %s is %s at %s", t.ID, t.State, output.Tally(cp.Processed, cp.MaxRecords, cp.Failed))
		return nil
	}
}

func parseRecordIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, fserrors.ValidationError(fmt.Sprintf("invalid record id %q", arg), err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
