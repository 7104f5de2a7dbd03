package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Locker serializes work on one unit key, across goroutines and processes.
type Locker interface {
	// Lock blocks until key is held or ctx is done. The returned function
	// releases it.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// lockRetryDelay is how often a contended lock is retried.
const lockRetryDelay = 25 * time.Millisecond

// FileLocker provides cross-process unit locks using gofrs/flock. Each key
// maps to <dir>/<sha256(key)[:16]>.lock; lock files are left in place so a
// waiter never locks a file another process just removed.
type FileLocker struct {
	dir string
}

var _ Locker = (*FileLocker)(nil)

// NewFileLocker creates a locker keeping its lock files in dir.
func NewFileLocker(dir string) *FileLocker {
	return &FileLocker{dir: dir}
}

// Path returns the lock file used for key.
func (l *FileLocker) Path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(l.dir, hex.EncodeToString(sum[:8])+".lock")
}

// Lock implements Locker.
func (l *FileLocker) Lock(ctx context.Context, key string) (func(), error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(l.Path(key))
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock for %s: %w", key, err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to acquire lock for %s: %w", key, ctx.Err())
	}
	return func() { _ = fl.Unlock() }, nil
}
