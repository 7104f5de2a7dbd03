package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/filesearch/internal/output"
	"github.com/Aman-CERP/filesearch/internal/task"
	"github.com/Aman-CERP/filesearch/internal/ui"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Run and inspect background indexing tasks",
		Long: `Large batches are queued as tasks. A task runs in slices of
tasks.slice_duration and saves its position at every milestone, so an
interrupted run continues where it stopped.`,
	}

	cmd.AddCommand(newTaskRunCmd())
	cmd.AddCommand(newTaskStatusCmd())
	cmd.AddCommand(newTaskListCmd())

	return cmd
}

func newTaskRunCmd() *cobra.Command {
	var noTUI bool

	cmd := &cobra.Command{
		Use:   "run [task-id]",
		Short: "Run one task, or every pending task",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runTasks(ctx, cmd, args, noTUI)
		},
	}

	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Disable TUI mode, use plain text output")
	return cmd
}

func runTasks(ctx context.Context, cmd *cobra.Command, args []string, noTUI bool) error {
	renderer := newTaskRenderer(cmd, "filesearch tasks")
	if noTUI {
		renderer = ui.NewPlainRenderer(ui.NewConfig(cmd.OutOrStdout(), ui.WithTitle("filesearch tasks")))
	}

	a, err := openApp(cmd, renderer)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	if err := a.cfg.CheckTools(); err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())

	if len(args) == 1 {
		if _, err := a.scheduler.Status(ctx, args[0]); err != nil {
			return err
		}
		return runTaskNow(ctx, a, renderer, out, args[0])
	}

	pending, err := a.tasks.List(ctx, task.StateActive, task.StateRunning)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		out.Success("No pending tasks")
		return nil
	}
	if err := runQueued(ctx, a, renderer, out); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newTaskStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show the state and progress of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			t, err := a.scheduler.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			r := ui.NewStatusRenderer(cmd.OutOrStdout(), ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()))
			if jsonOutput {
				return r.RenderJSON(t.Info())
			}
			return r.Render(t.Info())
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newTaskListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all tasks, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			tasks, err := a.scheduler.List(cmd.Context())
			if err != nil {
				return err
			}

			infos := make([]ui.TaskInfo, 0, len(tasks))
			for _, t := range tasks {
				infos = append(infos, t.Info())
			}

			r := ui.NewStatusRenderer(cmd.OutOrStdout(), ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()))
			if jsonOutput {
				return r.RenderJSON(infos)
			}
			return r.RenderList(infos)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
