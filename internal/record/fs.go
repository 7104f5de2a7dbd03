package record

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
)

// MetaFile is the per-record metadata file name.
const MetaFile = "record.yaml"

// meta is the on-disk form of record.yaml.
type meta struct {
	Title     string            `yaml:"title"`
	Template  string            `yaml:"template"`
	AuthorRef int64             `yaml:"author_ref"`
	Fields    map[string]string `yaml:"fields"`
}

// FSStore reads records from a directory tree:
//
//	<root>/<id>/record.yaml
//	<root>/<id>/<fileField>/<attachment files>
type FSStore struct {
	root      string
	fileField string
}

var _ Store = (*FSStore)(nil)

// NewFSStore creates a store rooted at root. fileField names the
// per-record subdirectory holding attachments.
func NewFSStore(root, fileField string) (*FSStore, error) {
	// absolute, so watcher paths resolve against it
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fserrors.ConfigError(fmt.Sprintf("records root %s cannot be resolved", root), err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fserrors.ConfigError(fmt.Sprintf("records root %s is not accessible", root), err)
	}
	if !info.IsDir() {
		return nil, fserrors.ConfigError(fmt.Sprintf("records root %s is not a directory", root), nil)
	}
	return &FSStore{root: root, fileField: fileField}, nil
}

// Root returns the store's root directory.
func (s *FSStore) Root() string {
	return s.root
}

// AttachmentDir returns the directory holding record id's attachments.
func (s *FSStore) AttachmentDir(id int64) string {
	return filepath.Join(s.root, strconv.FormatInt(id, 10), s.fileField)
}

// ParseAttachmentPath maps a path under the root back to its record id.
// It returns false for paths that are not record attachments.
func (s *FSStore) ParseAttachmentPath(path string) (int64, bool) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return 0, false
	}
	parts := splitPath(rel)
	if len(parts) != 3 || parts[1] != s.fileField {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Get implements Store.
func (s *FSStore) Get(ctx context.Context, id int64) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, fserrors.ValidationError(fmt.Sprintf("invalid record id %d", id), nil)
	}

	dir := filepath.Join(s.root, strconv.FormatInt(id, 10))
	data, err := os.ReadFile(filepath.Join(dir, MetaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fserrors.New(fserrors.ErrCodeRecordNotFound, fmt.Sprintf("record %d not found", id), err)
		}
		return nil, fmt.Errorf("read record %d: %w", id, err)
	}

	var m meta
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse record %d: %w", id, err)
	}

	rec := &Record{
		ID:        id,
		Title:     m.Title,
		Template:  m.Template,
		AuthorRef: m.AuthorRef,
		Fields:    m.Fields,
	}

	rec.Attachments, err = s.attachments(id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *FSStore) attachments(id int64) ([]Attachment, error) {
	dir := s.AttachmentDir(id)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list attachments of record %d: %w", id, err)
	}

	var out []Attachment
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Attachment{
			Name:    e.Name(),
			Path:    filepath.Join(dir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return out, nil
}

// FindIDs implements Store.
func (s *FSStore) FindIDs(ctx context.Context, sel Selector) ([]int64, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	var ids []int64
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.IsDir() {
			continue
		}
		id, err := strconv.ParseInt(e.Name(), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		rec, err := s.Get(ctx, id)
		if err != nil {
			if fserrors.GetCode(err) == fserrors.ErrCodeRecordNotFound {
				continue
			}
			return nil, err
		}
		if sel.Matches(rec) {
			ids = append(ids, id)
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func splitPath(p string) []string {
	return strings.Split(filepath.ToSlash(filepath.Clean(p)), "/")
}
