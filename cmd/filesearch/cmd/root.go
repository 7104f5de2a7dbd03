// Package cmd provides the CLI commands for filesearch.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/filesearch/internal/logging"
	"github.com/Aman-CERP/filesearch/internal/profiling"
	"github.com/Aman-CERP/filesearch/pkg/version"
)

// Global flags
var (
	debugMode  bool
	configPath string

	loggingCleanup func()
)

// Profiling flags
var (
	profileOpts profiling.Options
	profile     *profiling.Session
)

// NewRootCmd creates the root command for the filesearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filesearch",
		Short: "Full-text search over the files attached to records",
		Long: `filesearch indexes the documents attached to records into a search
backend (Solr or a local bleve index) and answers text queries scoped
to the records a selector picks out.

Large batches run as checkpointed tasks that survive restarts.
Run 'filesearch serve' to expose search and indexing over MCP.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("filesearch version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging (also mirrored to stderr)")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: user config, then .filesearch.yaml)")

	cmd.PersistentFlags().StringVar(&profileOpts.CPUPath, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.HeapPath, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.TracePath, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startLoggingAndProfiling
	cmd.PersistentPostRunE = stopLoggingAndProfiling

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newBrowseCmd())
	cmd.AddCommand(newCommitCmd())
	cmd.AddCommand(newTaskCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLoggingAndProfiling installs the file logger and starts any
// requested profiles. Stderr only gets records with --debug, and never for
// serve, whose stdio carries JSON-RPC.
func startLoggingAndProfiling(cmd *cobra.Command, _ []string) error {
	level := "info"
	if debugMode {
		level = "debug"
	}
	if err := setupLogging(cmd, level); err != nil {
		return err
	}

	if profileOpts.Enabled() {
		s, err := profiling.Start(profileOpts)
		if err != nil {
			return err
		}
		profile = s
	}
	return nil
}

func setupLogging(cmd *cobra.Command, level string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logCfg.WriteToStderr = debugMode && cmd.Name() != "serve"
	logCfg.Stderr = cmd.ErrOrStderr()

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("logging_started",
		slog.String("command", cmd.Name()),
		slog.String("log_file", logCfg.FilePath),
		slog.String("version", version.Version))
	return nil
}

func stopLoggingAndProfiling(_ *cobra.Command, _ []string) error {
	var err error
	if profile != nil {
		err = profile.Stop()
		profile = nil
	}
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return err
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
