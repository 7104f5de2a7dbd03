package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/filesearch/internal/mcp"
)

func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol server on stdio.

Tools: search_files, index_record, index_all, task_status.
Resources: filesearch://records/{id} and filesearch://tasks.

Stdout carries JSON-RPC only; logs go to ~/.filesearch/logs/server.log.
Queued tasks are not run by the server; use 'filesearch task run'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport: stdio")
	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, transport string) error {
	a, err := openApp(cmd, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	srv, err := mcp.NewServer(mcp.Dependencies{
		Finder:  a.finder,
		Indexer: a.indexer,
		Records: a.records,
		Tasks:   a.scheduler,
		Logger:  a.logger,
	}, a.cfg)
	if err != nil {
		return err
	}

	if err := srv.Serve(ctx, transport); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
