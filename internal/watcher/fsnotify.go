package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RecordsWatcher watches a records root recursively with fsnotify.
type RecordsWatcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	logger    *slog.Logger
	root      string
	errors    chan error

	mu      sync.Mutex
	stopped bool
}

// New creates a watcher for root. Nothing is watched until Start.
func New(root string, opts Options, logger *slog.Logger) (*RecordsWatcher, error) {
	opts = opts.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve records root: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &RecordsWatcher{
		fsWatcher: fsw,
		debouncer: NewDebouncer(opts.DebounceWindow, opts.EventBufferSize, logger),
		logger:    logger,
		root:      abs,
		errors:    make(chan error, 10),
	}, nil
}

// Start watches until ctx is done or Stop is called.
func (w *RecordsWatcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root, false); err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	w.logger.Info("watch_started", slog.String("root", w.root))

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

func (w *RecordsWatcher) handle(event fsnotify.Event) {
	if ignored(event.Name) {
		return
	}

	var op Operation
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// a record copied in as a whole directory may already hold files
			if err := w.addRecursive(event.Name, true); err != nil {
				w.emitError(err)
			}
			return
		}
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		op = OpDelete
	default:
		return
	}

	w.debouncer.Add(FileEvent{Path: event.Name, Operation: op, Timestamp: time.Now()})
}

// addRecursive watches every directory under dir. With announce set,
// files found on the way are reported as created.
func (w *RecordsWatcher) addRecursive(dir string, announce bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path != w.root && ignored(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return w.fsWatcher.Add(path)
		}
		if announce {
			w.debouncer.Add(FileEvent{Path: path, Operation: OpCreate, Timestamp: time.Now()})
		}
		return nil
	})
}

func (w *RecordsWatcher) emitError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	select {
	case w.errors <- err:
	default:
		w.logger.Warn("watch_error_dropped", slog.String("error", err.Error()))
	}
}

// Events returns debounced batches. Closed by Stop.
func (w *RecordsWatcher) Events() <-chan []FileEvent {
	return w.debouncer.Output()
}

// Errors returns non-fatal watcher errors. Closed by Stop.
func (w *RecordsWatcher) Errors() <-chan error {
	return w.errors
}

// Root returns the absolute watched root.
func (w *RecordsWatcher) Root() string {
	return w.root
}

// Stop releases the watcher. Safe to call multiple times.
func (w *RecordsWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	w.debouncer.Stop()
	err := w.fsWatcher.Close()
	close(w.errors)
	return err
}
