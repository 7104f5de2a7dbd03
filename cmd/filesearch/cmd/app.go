package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/filesearch/internal/backend"
	"github.com/Aman-CERP/filesearch/internal/backend/registry"
	"github.com/Aman-CERP/filesearch/internal/config"
	"github.com/Aman-CERP/filesearch/internal/convert"
	"github.com/Aman-CERP/filesearch/internal/finder"
	"github.com/Aman-CERP/filesearch/internal/index"
	"github.com/Aman-CERP/filesearch/internal/record"
	"github.com/Aman-CERP/filesearch/internal/task"
	"github.com/Aman-CERP/filesearch/internal/ui"
)

// app holds the wired components one command works with.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	records   *record.FSStore
	adapter   backend.Adapter
	indexer   *index.Indexer
	tasks     *task.SQLiteStore
	scheduler *task.LocalScheduler
	finder    *finder.Finder
}

// loadConfig reads --config when given, otherwise the layered lookup from
// the working directory.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	return config.Load(cwd)
}

// openApp loads configuration and wires the record store, backend, task
// scheduler and indexer. renderer receives task progress; nil discards it.
func openApp(cmd *cobra.Command, renderer ui.Renderer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !debugMode && !strings.EqualFold(cfg.Server.LogLevel, "info") {
		if err := setupLogging(cmd, cfg.Server.LogLevel); err != nil {
			return nil, err
		}
	}
	logger := slog.Default()

	records, err := record.NewFSStore(cfg.Records.Root, cfg.Fields.FileField)
	if err != nil {
		return nil, err
	}

	adapter, err := registry.Open(cfg, backend.Deps{
		Extractor: convert.NewTextExtractor(cfg.Tools.PDFToText, cfg.Tools.Timeout),
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	tasks, err := task.OpenSQLiteStore(cfg.TaskDBPath())
	if err != nil {
		_ = adapter.Close()
		return nil, err
	}

	scheduler := task.NewLocalScheduler(tasks, nil, task.SchedulerOptions{
		SliceDuration: cfg.Tasks.SliceDuration,
		Renderer:      renderer,
		Logger:        logger,
	})

	var splitter convert.Splitter
	if cfg.Indexing.IndexPages {
		splitter = convert.NewPageSplitter(cfg.Tools.PDFSeparate, cfg.Indexing.ScratchDir, cfg.Tools.Timeout, logger)
	}

	indexer, err := index.New(index.Dependencies{
		Store:     records,
		Adapter:   adapter,
		Splitter:  splitter,
		Submitter: scheduler,
		Locker:    index.NewFileLocker(cfg.LockDirPath()),
		Logger:    logger,
	}, index.OptionsFromConfig(cfg))
	if err != nil {
		_ = tasks.Close()
		_ = adapter.Close()
		return nil, err
	}
	scheduler.SetRunner(task.NewRunner(indexer, cfg.MilestoneStepFor(cfg.Indexing.IndexPages), logger))

	return &app{
		cfg:       cfg,
		logger:    logger,
		records:   records,
		adapter:   adapter,
		indexer:   indexer,
		tasks:     tasks,
		scheduler: scheduler,
		finder:    finder.New(records, adapter, logger),
	}, nil
}

// runLockPath is the single-instance lock taken by anything that steps
// tasks.
func (a *app) runLockPath() string {
	return filepath.Join(a.cfg.DataDir, "task-run.lock")
}

// Close releases the task store and the backend.
func (a *app) Close() error {
	taskErr := a.tasks.Close()
	if err := a.adapter.Close(); err != nil {
		return err
	}
	return taskErr
}

// newTaskRenderer picks a TUI or plain renderer for task progress on out.
func newTaskRenderer(cmd *cobra.Command, title string) ui.Renderer {
	return ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithNoColor(ui.DetectNoColor()),
		ui.WithTitle(title)))
}
