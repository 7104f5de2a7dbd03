package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns ~/.filesearch/logs, or a directory under the system
// temp dir when no home directory is available.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "filesearch", "logs")
	}
	return filepath.Join(home, ".filesearch", "logs")
}

// DefaultLogPath returns the main log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "server.log")
}
