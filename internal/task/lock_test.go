package task

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRunLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "tasks.lock")

	release, err := AcquireRunLock(path)
	require.NoError(t, err)

	_, err = AcquireRunLock(path)
	assert.ErrorIs(t, err, ErrRunnerBusy)

	release()

	again, err := AcquireRunLock(path)
	require.NoError(t, err)
	again()
}
