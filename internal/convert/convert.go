// Package convert runs the external document conversion tools: splitting a
// PDF into single-page files and extracting plain text from a PDF.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
)

// PageFragment is one extracted page of an attachment. Its file exists only
// while the Split callback that received it runs.
type PageFragment struct {
	// Page is 1-based and contiguous.
	Page int
	// Source is the attachment the page was extracted from.
	Source string
	// Path is the temporary single-page file.
	Path string
}

// Splitter splits a document into ordered single-page files.
type Splitter interface {
	// Split extracts the pages of path and calls fn for each in page order,
	// stopping at the first error fn returns. All page files are removed
	// before Split returns, on every path.
	Split(ctx context.Context, recordID int64, path string, fn func(PageFragment) error) error
}

// Extractor extracts plain text from a document.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// maxOutput caps how much tool output is kept in errors.
const maxOutput = 4096

// run executes tool with args under timeout and returns stdout. A failing
// tool yields a ToolExecutionError carrying its combined output.
func run(ctx context.Context, timeout time.Duration, tool string, args ...string) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		output := strings.TrimSpace(stderr.String() + "\n" + stdout.String())
		if len(output) > maxOutput {
			output = output[:maxOutput]
		}
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("timed out after %s: %w", timeout, err)
		}
		return nil, fserrors.ToolExecutionError(tool, output, err)
	}
	return stdout.Bytes(), nil
}
