package record

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
)

// writeRecord creates <root>/<id>/record.yaml and the named attachments.
func writeRecord(t *testing.T, root string, id int64, yamlBody string, files ...string) {
	t.Helper()
	dir := filepath.Join(root, strconv.FormatInt(id, 10))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pdf_file"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetaFile), []byte(yamlBody), 0o644))
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "pdf_file", f), []byte("%PDF-1.4 "+f), 0o644))
	}
}

func newStore(t *testing.T) (*FSStore, string) {
	t.Helper()
	root := t.TempDir()
	writeRecord(t, root, 3, "title: Annual Report\ntemplate: report\nauthor_ref: 9\nfields:\n  year: \"2023\"\n", "a.pdf", "b.pdf")
	writeRecord(t, root, 12, "title: Minutes\ntemplate: minutes\n")
	writeRecord(t, root, 7, "title: Yearly Report\ntemplate: report\nauthor_ref: 4\nfields:\n  year: \"2021\"\n", "c.pdf")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-record"), 0o755))

	s, err := NewFSStore(root, "pdf_file")
	require.NoError(t, err)
	return s, root
}

func TestFSStore_Get(t *testing.T) {
	s, _ := newStore(t)

	rec, err := s.Get(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, int64(3), rec.ID)
	assert.Equal(t, "Annual Report", rec.Title)
	assert.Equal(t, int64(9), rec.AuthorRef)
	assert.True(t, rec.HasAuthor())
	assert.Equal(t, "2023", rec.Fields["year"])
	require.Len(t, rec.Attachments, 2)
	assert.Equal(t, "a.pdf", rec.Attachments[0].Name)
	assert.Equal(t, int64(len("%PDF-1.4 a.pdf")), rec.Attachments[0].Size)

	att, ok := rec.Attachment("b.pdf")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(s.AttachmentDir(3), "b.pdf"), att.Path)
}

func TestFSStore_Get_NotFound(t *testing.T) {
	s, _ := newStore(t)

	_, err := s.Get(context.Background(), 99)
	require.Error(t, err)
	assert.Equal(t, fserrors.ErrCodeRecordNotFound, fserrors.GetCode(err))

	_, err = s.Get(context.Background(), 0)
	assert.Equal(t, fserrors.ErrCodeInvalidInput, fserrors.GetCode(err))
}

func TestFSStore_Get_NoAttachments(t *testing.T) {
	s, _ := newStore(t)

	rec, err := s.Get(context.Background(), 12)
	require.NoError(t, err)
	assert.Empty(t, rec.Attachments)
	assert.False(t, rec.HasAuthor())
}

func TestFSStore_FindIDs(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	tests := []struct {
		selector string
		want     []int64
	}{
		{"", []int64{3, 7, 12}},
		{"template=report", []int64{3, 7}},
		{"files>0", []int64{3, 7}},
		{"files=0", []int64{12}},
		{"title%=report, year>=2022", []int64{3}},
		{"id=12|7", []int64{7, 12}},
		{"template!=report", []int64{12}},
		{"title^=year", []int64{7}},
		{"author_ref<5, files>=1", []int64{7}},
		{"template=brochure", nil},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			ids, err := s.FindIDs(ctx, MustParseSelector(tt.selector))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestParseSelector_Errors(t *testing.T) {
	for _, bad := range []string{"template", "=report", "files>many", "files>1|2"} {
		t.Run(bad, func(t *testing.T) {
			_, err := ParseSelector(bad)
			require.Error(t, err)
			assert.Equal(t, fserrors.ErrCodeInvalidSelector, fserrors.GetCode(err))
		})
	}
}

func TestParseSelector_OperatorPrecedence(t *testing.T) {
	sel, err := ParseSelector(" files >= 2 , title %= a|b ")
	require.NoError(t, err)
	require.Len(t, sel.Terms, 2)

	assert.Equal(t, Term{Key: "files", Op: OpGreaterEqual, Values: []string{"2"}}, sel.Terms[0])
	assert.Equal(t, Term{Key: "title", Op: OpContains, Values: []string{"a", "b"}}, sel.Terms[1])
}

func TestFSStore_ParseAttachmentPath(t *testing.T) {
	s, root := newStore(t)

	id, ok := s.ParseAttachmentPath(filepath.Join(root, "3", "pdf_file", "a.pdf"))
	assert.True(t, ok)
	assert.Equal(t, int64(3), id)

	_, ok = s.ParseAttachmentPath(filepath.Join(root, "3", MetaFile))
	assert.False(t, ok)
	_, ok = s.ParseAttachmentPath(filepath.Join(root, "x", "pdf_file", "a.pdf"))
	assert.False(t, ok)
	_, ok = s.ParseAttachmentPath("/elsewhere/3/pdf_file/a.pdf")
	assert.False(t, ok)
}

func TestNewFSStore_MissingRoot(t *testing.T) {
	_, err := NewFSStore(filepath.Join(t.TempDir(), "missing"), "pdf_file")

	require.Error(t, err)
	assert.True(t, fserrors.IsFatal(err))
}
