package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/filesearch/internal/output"
	"github.com/Aman-CERP/filesearch/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Index attachments as they appear under the records root",
		Long: `Watch the records root and index attachments that are created or
replaced. Changes are debounced by watch.debounce and committed once per
batch. Removed files stay in the backend until the next reset.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd)
		},
	}
}

func runWatch(ctx context.Context, cmd *cobra.Command) error {
	a, err := openApp(cmd, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	if err := a.cfg.CheckTools(); err != nil {
		return err
	}

	w, err := watcher.New(a.records.Root(), watcher.Options{DebounceWindow: a.cfg.Watch.Debounce}, a.logger)
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	output.New(cmd.OutOrStdout()).Statusf("👀", "Watching %s (Ctrl+C to stop)", w.Root())

	go func() {
		for err := range w.Errors() {
			a.logger.Warn("watch_error", slog.String("error", err.Error()))
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Start(ctx)
	})
	g.Go(func() error {
		return watcher.NewHandler(a.records, a.indexer, a.logger).Run(ctx, w.Events())
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
