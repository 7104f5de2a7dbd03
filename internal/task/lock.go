package task

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrRunnerBusy means another process is already running tasks.
var ErrRunnerBusy = errors.New("another task runner holds the lock")

// AcquireRunLock takes the process-wide runner lock at path without
// waiting. Two runners stepping the same task would race on its cursor.
func AcquireRunLock(path string) (release func(), err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, ErrRunnerBusy
	}
	return func() { _ = fl.Unlock() }, nil
}
