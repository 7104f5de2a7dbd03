package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
	"github.com/Aman-CERP/filesearch/internal/index"
	"github.com/Aman-CERP/filesearch/internal/record"
)

type indexedCall struct {
	RecordID   int64
	Attachment string
	Force      bool
}

// MockIndexer records IndexAttachment calls.
type MockIndexer struct {
	mu          sync.Mutex
	Calls       []indexedCall
	Errs        map[string]error
	CommitErr   error
	CommitCalls int
}

func (m *MockIndexer) IndexAttachment(_ context.Context, rec record.Record, att record.Attachment, opts index.RunOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, indexedCall{RecordID: rec.ID, Attachment: att.Name, Force: opts.Force})
	return m.Errs[att.Name]
}

func (m *MockIndexer) Commit(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CommitCalls++
	return m.CommitErr
}

func (m *MockIndexer) calls() []indexedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]indexedCall(nil), m.Calls...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newRecordsRoot creates records 1 and 2 with attachments under a temp root.
func newRecordsRoot(t *testing.T) (*record.FSStore, string) {
	t.Helper()
	root := t.TempDir()
	for id, files := range map[int64][]string{1: {"a.pdf"}, 2: {"b.pdf", "c.pdf"}} {
		dir := filepath.Join(root, strconv.FormatInt(id, 10))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "pdf_file"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, record.MetaFile), []byte("title: R\nauthor_ref: 5\n"), 0o644))
		for _, f := range files {
			require.NoError(t, os.WriteFile(filepath.Join(dir, "pdf_file", f), []byte("%PDF"), 0o644))
		}
	}
	store, err := record.NewFSStore(root, "pdf_file")
	require.NoError(t, err)
	return store, store.Root()
}

func attachmentPath(root string, id int64, name string) string {
	return filepath.Join(root, strconv.FormatInt(id, 10), "pdf_file", name)
}

func TestHandler_IndexesCreatedAndReplaced(t *testing.T) {
	// Given: a new attachment and a replaced one
	store, root := newRecordsRoot(t)
	indexer := &MockIndexer{}
	h := NewHandler(store, indexer, quietLogger())

	// When: handling the batch
	n, err := h.HandleBatch(context.Background(), []FileEvent{
		{Path: attachmentPath(root, 1, "a.pdf"), Operation: OpCreate},
		{Path: attachmentPath(root, 2, "b.pdf"), Operation: OpModify},
	})

	// Then: both are indexed, the replaced one forced, and one commit follows
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []indexedCall{
		{RecordID: 1, Attachment: "a.pdf", Force: false},
		{RecordID: 2, Attachment: "b.pdf", Force: true},
	}, indexer.calls())
	assert.Equal(t, 1, indexer.CommitCalls)
}

func TestHandler_IgnoresUnrelatedPaths(t *testing.T) {
	store, root := newRecordsRoot(t)
	indexer := &MockIndexer{}
	h := NewHandler(store, indexer, quietLogger())

	n, err := h.HandleBatch(context.Background(), []FileEvent{
		{Path: filepath.Join(root, "1", record.MetaFile), Operation: OpModify},
		{Path: filepath.Join(root, "1", "other", "x.pdf"), Operation: OpCreate},
		{Path: attachmentPath(root, 9, "missing.pdf"), Operation: OpCreate},
		{Path: attachmentPath(root, 1, "vanished.pdf"), Operation: OpCreate},
		{Path: attachmentPath(root, 2, "c.pdf"), Operation: OpDelete},
	})

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, indexer.calls())
	assert.Zero(t, indexer.CommitCalls)
}

func TestHandler_ErrorHandling(t *testing.T) {
	store, root := newRecordsRoot(t)
	batch := []FileEvent{
		{Path: attachmentPath(root, 1, "a.pdf"), Operation: OpCreate},
		{Path: attachmentPath(root, 2, "b.pdf"), Operation: OpCreate},
		{Path: attachmentPath(root, 2, "c.pdf"), Operation: OpCreate},
	}

	t.Run("skip and failure continue", func(t *testing.T) {
		indexer := &MockIndexer{Errs: map[string]error{
			"a.pdf": fserrors.AlreadyIndexed("1_a.pdf"),
			"b.pdf": fserrors.StatusError(500, "boom"),
		}}

		n, err := NewHandler(store, indexer, quietLogger()).HandleBatch(context.Background(), batch)

		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Len(t, indexer.calls(), 3)
		assert.Equal(t, 1, indexer.CommitCalls)
	})

	t.Run("fatal stops the batch", func(t *testing.T) {
		indexer := &MockIndexer{Errs: map[string]error{"b.pdf": fserrors.ConfigError("no backend", nil)}}

		n, err := NewHandler(store, indexer, quietLogger()).HandleBatch(context.Background(), batch)

		require.Error(t, err)
		assert.Equal(t, 1, n)
		assert.Len(t, indexer.calls(), 2)
	})

	t.Run("commit failure is logged", func(t *testing.T) {
		indexer := &MockIndexer{CommitErr: fserrors.NetworkError("solr down", nil)}

		n, err := NewHandler(store, indexer, quietLogger()).HandleBatch(context.Background(), batch)

		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})
}

func TestHandler_RunUntilClosed(t *testing.T) {
	store, root := newRecordsRoot(t)
	indexer := &MockIndexer{}
	h := NewHandler(store, indexer, quietLogger())

	events := make(chan []FileEvent, 2)
	events <- []FileEvent{{Path: attachmentPath(root, 1, "a.pdf"), Operation: OpCreate}}
	events <- []FileEvent{{Path: attachmentPath(root, 2, "c.pdf"), Operation: OpCreate}}
	close(events)

	require.NoError(t, h.Run(context.Background(), events))
	assert.Len(t, indexer.calls(), 2)
	assert.Equal(t, 2, indexer.CommitCalls)
}

func TestRecordsWatcher_EndToEnd(t *testing.T) {
	// Given: a watcher and handler on a records root
	store, root := newRecordsRoot(t)
	indexer := &MockIndexer{}
	w, err := New(root, Options{DebounceWindow: 50 * time.Millisecond}, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx) }()
	go func() { _ = NewHandler(store, indexer, quietLogger()).Run(ctx, w.Events()) }()
	time.Sleep(100 * time.Millisecond)

	// When: a new attachment is written, and a new record directory appears
	require.NoError(t, os.WriteFile(attachmentPath(root, 1, "new.pdf"), []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(attachmentPath(root, 1, ".new.pdf.swp"), []byte("x"), 0o644))

	// Then: the attachment is indexed, the swap file is not
	require.Eventually(t, func() bool {
		for _, c := range indexer.calls() {
			if c.Attachment == "new.pdf" {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)
	for _, c := range indexer.calls() {
		assert.NotEqual(t, ".new.pdf.swp", c.Attachment)
	}

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
