package bleve

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/filesearch/internal/backend"
	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
	"github.com/Aman-CERP/filesearch/internal/record"
	"github.com/Aman-CERP/filesearch/internal/search"
)

// MockExtractor returns canned text per file basename.
type MockExtractor struct {
	Texts map[string]string
	Err   error
	Calls int
}

func (m *MockExtractor) Extract(_ context.Context, path string) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.Texts[filepath.Base(path)], nil
}

func newTestAdapter(t *testing.T, texts map[string]string) (*Adapter, *MockExtractor) {
	t.Helper()
	ext := &MockExtractor{Texts: texts}
	a, err := New("", ext, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, ext
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))
	return path
}

func indexDoc(t *testing.T, a *Adapter, id, author int64, path string) {
	t.Helper()
	err := a.Index(context.Background(), record.Record{ID: id, AuthorRef: author}, path, backend.IndexOptions{
		Fields: map[string]string{search.FieldAuthorID: strconv.FormatInt(author, 10)},
	})
	require.NoError(t, err)
}

func TestNew_RequiresExtractor(t *testing.T) {
	_, err := New("", nil, nil)

	require.Error(t, err)
	assert.True(t, fserrors.IsFatal(err))
}

func TestAdapter_IndexAndQuery(t *testing.T) {
	dir := t.TempDir()
	a, _ := newTestAdapter(t, map[string]string{
		"budget.pdf":  "the annual budget for the department",
		"minutes.pdf": "minutes of the budget meeting",
		"other.pdf":   "nothing relevant here",
	})

	indexDoc(t, a, 1, 7, touch(t, dir, "budget.pdf"))
	indexDoc(t, a, 2, 7, touch(t, dir, "minutes.pdf"))
	indexDoc(t, a, 2, 7, touch(t, dir, "other.pdf"))

	result, err := a.Query(context.Background(), search.Query{
		Text:      "Budget",
		Highlight: search.Highlight{Enabled: true},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.Raw.NumFound)
	assert.Equal(t, []int64{1, 2}, result.RecordIDs())

	hit := result.HitsByRecord[1][0]
	assert.Equal(t, "1_budget.pdf", hit.ID)
	assert.Equal(t, "budget.pdf", hit.Name)
	require.NotEmpty(t, hit.Highlights)
	assert.Contains(t, hit.Highlights[0], "<mark>budget</mark>")
}

func TestAdapter_QueryRestrictedToRecords(t *testing.T) {
	dir := t.TempDir()
	a, _ := newTestAdapter(t, map[string]string{"a.pdf": "shared term", "b.pdf": "shared term"})

	indexDoc(t, a, 10, 7, touch(t, dir, "a.pdf"))
	indexDoc(t, a, 20, 7, touch(t, dir, "b.pdf"))

	result, err := a.Query(context.Background(), search.Query{Text: "shared", RecordIDs: []int64{20}})
	require.NoError(t, err)

	assert.Equal(t, []int64{20}, result.RecordIDs())
}

func TestAdapter_QueryMatchAll(t *testing.T) {
	dir := t.TempDir()
	a, _ := newTestAdapter(t, map[string]string{"a.pdf": "x", "b.pdf": "y"})
	indexDoc(t, a, 1, 7, touch(t, dir, "a.pdf"))
	indexDoc(t, a, 2, 7, touch(t, dir, "b.pdf"))

	result, err := a.Query(context.Background(), search.Query{Text: "*:*"})
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.Raw.NumFound)
}

func TestAdapter_QueryEmptyText(t *testing.T) {
	a, _ := newTestAdapter(t, nil)

	_, err := a.Query(context.Background(), search.Query{Text: "  "})

	assert.Equal(t, fserrors.ErrCodeInvalidQuery, fserrors.GetCode(err))
}

func TestAdapter_IndexPageUnit(t *testing.T) {
	dir := t.TempDir()
	a, _ := newTestAdapter(t, map[string]string{"page-2.pdf": "second page text"})

	err := a.Index(context.Background(), record.Record{ID: 5}, touch(t, dir, "page-2.pdf"), backend.IndexOptions{
		Fields:         map[string]string{search.FieldAuthorID: "3", search.FieldPageNum: "2"},
		FilenamePrefix: "manual.pdf_",
		Page:           2,
	})
	require.NoError(t, err)

	result, err := a.Query(context.Background(), search.Query{Text: "second"})
	require.NoError(t, err)

	hit := result.HitsByRecord[5][0]
	assert.Equal(t, "5_manual.pdf/page-2", hit.ID)
	assert.Equal(t, "manual.pdf_page-2.pdf", hit.Name)
	assert.Equal(t, 2, hit.PageNum)
}

func TestAdapter_IndexErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		a, ext := newTestAdapter(t, nil)
		err := a.Index(context.Background(), record.Record{ID: 1}, "/nonexistent.pdf", backend.IndexOptions{})

		assert.Equal(t, fserrors.ErrCodeFileNotFound, fserrors.GetCode(err))
		assert.Zero(t, ext.Calls)
	})

	t.Run("extractor failure", func(t *testing.T) {
		a, ext := newTestAdapter(t, nil)
		ext.Err = fserrors.ToolExecutionError("pdftotext", "Syntax Error", errors.New("exit status 1"))

		err := a.Index(context.Background(), record.Record{ID: 1}, touch(t, t.TempDir(), "a.pdf"), backend.IndexOptions{})

		assert.Equal(t, fserrors.ErrCodeToolFailed, fserrors.GetCode(err))
	})

	t.Run("non-numeric author", func(t *testing.T) {
		a, _ := newTestAdapter(t, map[string]string{"a.pdf": "x"})
		err := a.Index(context.Background(), record.Record{ID: 1}, touch(t, t.TempDir(), "a.pdf"), backend.IndexOptions{
			Fields: map[string]string{search.FieldAuthorID: "abc"},
		})

		assert.Equal(t, fserrors.ErrCodeInvalidInput, fserrors.GetCode(err))
	})
}

func TestAdapter_IsIndexed(t *testing.T) {
	dir := t.TempDir()
	a, _ := newTestAdapter(t, map[string]string{
		"a.pdf":      "alpha",
		"a.pdf.bak":  "backup",
		"page-1.pdf": "paged",
		"noauth.pdf": "orphan",
	})
	ctx := context.Background()
	rec := record.Record{ID: 12, AuthorRef: 7}

	indexDoc(t, a, 12, 7, touch(t, dir, "a.pdf.bak"))
	assert.False(t, a.IsIndexed(ctx, rec, record.Attachment{Name: "a.pdf"}), "a longer name must not match")

	indexDoc(t, a, 12, 7, touch(t, dir, "a.pdf"))
	assert.True(t, a.IsIndexed(ctx, rec, record.Attachment{Name: "a.pdf"}))
	assert.False(t, a.IsIndexed(ctx, record.Record{ID: 13}, record.Attachment{Name: "a.pdf"}))

	err := a.Index(ctx, rec, touch(t, dir, "page-1.pdf"), backend.IndexOptions{
		Fields:         map[string]string{search.FieldAuthorID: "7", search.FieldPageNum: "1"},
		FilenamePrefix: "paged.pdf_",
		Page:           1,
	})
	require.NoError(t, err)
	assert.True(t, a.IsIndexed(ctx, rec, record.Attachment{Name: "paged.pdf"}))

	require.NoError(t, a.Index(ctx, rec, touch(t, dir, "noauth.pdf"), backend.IndexOptions{}))
	assert.False(t, a.IsIndexed(ctx, rec, record.Attachment{Name: "noauth.pdf"}), "a unit without an author is not verified")
}

func TestAdapter_ClearAndPing(t *testing.T) {
	dir := t.TempDir()
	a, _ := newTestAdapter(t, map[string]string{"a.pdf": "x", "b.pdf": "y"})
	ctx := context.Background()
	indexDoc(t, a, 1, 7, touch(t, dir, "a.pdf"))
	indexDoc(t, a, 2, 7, touch(t, dir, "b.pdf"))

	require.NoError(t, a.Ping(ctx))
	require.NoError(t, a.Commit(ctx))
	require.NoError(t, a.Clear(ctx))

	n, err := a.DocCount()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAdapter_ClosedIndex(t *testing.T) {
	a, _ := newTestAdapter(t, nil)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	assert.Error(t, a.Ping(context.Background()))
	_, err := a.Query(context.Background(), search.Query{Text: "x"})
	assert.Error(t, err)
}

func TestAdapter_PersistsOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "units.bleve")
	ext := &MockExtractor{Texts: map[string]string{"a.pdf": "persisted words"}}

	a, err := New(path, ext, nil)
	require.NoError(t, err)
	indexDoc(t, a, 1, 7, touch(t, t.TempDir(), "a.pdf"))
	require.NoError(t, a.Close())

	reopened, err := New(path, ext, nil)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	result, err := reopened.Query(context.Background(), search.Query{Text: "persisted"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, result.RecordIDs())
}

func TestAdapter_RecoversCorruptedIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "units.bleve")
	require.NoError(t, os.MkdirAll(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "index_meta.json"), []byte("{broken"), 0o644))

	a, err := New(path, &MockExtractor{}, nil)
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	n, err := a.DocCount()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSortOrder(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"name asc", []string{"name"}},
		{"name desc", []string{"-name"}},
		{"pw_page_id desc, name asc", []string{"-pw_page_id", "name"}},
		{"score", []string{"score"}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sortOrder(tt.in))
		})
	}
}
