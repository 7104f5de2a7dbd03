package cmd

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/filesearch/internal/backend"
	"github.com/Aman-CERP/filesearch/internal/backend/registry"
	"github.com/Aman-CERP/filesearch/internal/convert"
	"github.com/Aman-CERP/filesearch/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check system requirements and diagnose issues",
		Long: `Run system diagnostics to ensure filesearch can operate correctly.

Checks:
  - Conversion tools (pdftotext, pdfseparate) for the current settings
  - Backend reachability
  - Records root and records with attachments
  - Task database and unfinished tasks
  - Disk space and write permissions for the data directory
  - File descriptor limits

Use --verbose for detailed diagnostic information.
Use --json for machine-readable output.`,
		Example: `  # Run diagnostics
  filesearch doctor

  # JSON output for scripting
  filesearch doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDoctor(ctx, cmd, verbose, jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// doctorOutput is the structure for JSON output.
type doctorOutput struct {
	Status string                  `json:"status"`
	Checks []preflight.CheckResult `json:"checks"`
}

// openFailure reports why the adapter could not be opened as a ping
// failure.
type openFailure struct{ err error }

func (o openFailure) Ping(context.Context) error { return o.err }

func runDoctor(ctx context.Context, cmd *cobra.Command, verbose, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := []preflight.Option{
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
	}

	adapter, err := registry.Open(cfg, backend.Deps{
		Extractor: convert.NewTextExtractor(cfg.Tools.PDFToText, cfg.Tools.Timeout),
		Logger:    slog.Default(),
	})
	if err != nil {
		slog.Warn("doctor_backend_unavailable", slog.String("error", err.Error()))
		opts = append(opts, preflight.WithPinger(openFailure{err}))
	} else {
		defer func() { _ = adapter.Close() }()
		opts = append(opts, preflight.WithPinger(adapter))
	}

	checker := preflight.New(cfg, opts...)
	results := checker.RunAll(ctx)

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(doctorOutput{Status: checker.SummaryStatus(results), Checks: results}); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	return checker.Err(results)
}
