package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
)

const (
	pagePrefix  = "page-"
	pageSuffix  = ".pdf"
	pagePattern = pagePrefix + "%d" + pageSuffix
)

// PageSplitter splits PDFs with pdfseparate into a per-record scratch
// directory, <scratchRoot>/index_<recordID>/.
//
// The directory is guarded by a striped lock file in the scratch root so two
// splits of the same record, in this process or another, never share it.
type PageSplitter struct {
	tool        string
	scratchRoot string
	timeout     time.Duration
	logger      *slog.Logger
}

var _ Splitter = (*PageSplitter)(nil)

// NewPageSplitter creates a splitter running tool.
func NewPageSplitter(tool, scratchRoot string, timeout time.Duration, logger *slog.Logger) *PageSplitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageSplitter{tool: tool, scratchRoot: scratchRoot, timeout: timeout, logger: logger}
}

// ScratchDir returns the working directory used for recordID.
func (s *PageSplitter) ScratchDir(recordID int64) string {
	return filepath.Join(s.scratchRoot, fmt.Sprintf("index_%d", recordID))
}

// splitLockStripes bounds the number of lock files kept in the scratch
// root. Lock files are never removed, so a waiter cannot lock a file another
// process just unlinked; records sharing a stripe split one at a time.
const splitLockStripes = 64

func (s *PageSplitter) lockPath(recordID int64) string {
	return filepath.Join(s.scratchRoot, fmt.Sprintf("split-%02d.lock", recordID%splitLockStripes))
}

// Split implements Splitter.
func (s *PageSplitter) Split(ctx context.Context, recordID int64, path string, fn func(PageFragment) error) error {
	if err := os.MkdirAll(s.scratchRoot, 0o755); err != nil {
		return fserrors.New(fserrors.ErrCodeScratchDir, "create scratch root", err)
	}

	lock := flock.New(s.lockPath(recordID))
	if err := lock.Lock(); err != nil {
		return fserrors.New(fserrors.ErrCodeScratchDir, "lock scratch directory", err)
	}
	defer func() { _ = lock.Unlock() }()

	dir := s.ScratchDir(recordID)
	// Holding the lock, anything already here was left by a crashed run.
	if err := os.RemoveAll(dir); err != nil {
		return fserrors.New(fserrors.ErrCodeScratchDir, "clear stale scratch directory", err)
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		return fserrors.New(fserrors.ErrCodeScratchDir, "create scratch directory", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("scratch_cleanup_failed", slog.String("dir", dir), slog.String("error", err.Error()))
		}
	}()

	s.logger.Debug("split_start",
		slog.Int64("record_id", recordID),
		slog.String("file", path),
		slog.String("tool", s.tool))

	if _, err := run(ctx, s.timeout, s.tool, path, filepath.Join(dir, pagePattern)); err != nil {
		return err
	}

	pages, err := listPages(dir)
	if err != nil {
		return err
	}

	s.logger.Debug("split_done",
		slog.Int64("record_id", recordID),
		slog.String("file", path),
		slog.Int("pages", len(pages)))

	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		frag := PageFragment{Page: p.num, Source: path, Path: filepath.Join(dir, p.name)}
		if err := fn(frag); err != nil {
			return err
		}
	}
	return nil
}

type pageFile struct {
	name string
	num  int
}

// listPages returns the page files in dir in numeric page order. Entries not
// named page-<n>.pdf are ignored.
func listPages(dir string) ([]pageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fserrors.New(fserrors.ErrCodeScratchDir, "list scratch directory", err)
	}

	var pages []pageFile
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if n, ok := PageNumber(e.Name()); ok {
			pages = append(pages, pageFile{name: e.Name(), num: n})
		}
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].num < pages[j].num })
	return pages, nil
}

// PageNumber parses the page number out of a generated page filename.
func PageNumber(name string) (int, bool) {
	if !strings.HasPrefix(name, pagePrefix) || !strings.HasSuffix(name, pageSuffix) {
		return 0, false
	}
	digits := strings.TrimSuffix(strings.TrimPrefix(name, pagePrefix), pageSuffix)
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
