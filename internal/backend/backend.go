// Package backend defines the capability set every search backend adapter
// implements, plus helpers shared by the adapters.
package backend

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/filesearch/internal/convert"
	"github.com/Aman-CERP/filesearch/internal/record"
	"github.com/Aman-CERP/filesearch/internal/search"
)

// Adapter indexes units into, and queries, one search backend.
type Adapter interface {
	// Name returns the registry selector of the adapter.
	Name() string

	// Index makes the file at path discoverable as one unit of rec. Writes
	// may not be visible to queries until Commit.
	Index(ctx context.Context, rec record.Record, path string, opts IndexOptions) error

	// IsIndexed reports whether att (or any of its pages) is verifiably in
	// the backend. Any error or inconsistency yields false.
	IsIndexed(ctx context.Context, rec record.Record, att record.Attachment) bool

	// Query runs q and groups the hits by owning record.
	Query(ctx context.Context, q search.Query) (*search.Result, error)

	// Clear removes every unit from the backend.
	Clear(ctx context.Context) error

	// Commit makes pending writes visible.
	Commit(ctx context.Context) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases adapter resources.
	Close() error
}

// IndexOptions carries the per-unit fields sent with an Index call.
type IndexOptions struct {
	// Fields are extra literal fields, e.g. pw_author_id and page_num.
	Fields map[string]string
	// FilenamePrefix is prepended to the file's basename to form the unit
	// name. Set to "<attachment>_" when indexing pages.
	FilenamePrefix string
	// Page is the 1-based page number for page units, zero otherwise.
	Page int
}

// Name returns the unit's display name.
func (o IndexOptions) Name(path string) string {
	return o.FilenamePrefix + filepath.Base(path)
}

// Key returns the unit key for indexing path as part of recordID.
func (o IndexOptions) Key(recordID int64, path string) search.UnitKey {
	if o.Page > 0 && o.FilenamePrefix != "" {
		return search.PageKey(recordID, strings.TrimSuffix(o.FilenamePrefix, "_"), o.Page)
	}
	return search.NewUnitKey(recordID, filepath.Base(path))
}

// Deps are the collaborators an adapter factory may use.
type Deps struct {
	Extractor convert.Extractor
	Logger    *slog.Logger
}

// IndexedIn applies the "already indexed" rule to the result of a key
// lookup: the first hit for rec must name rec as its owner and carry an
// author reference, and the backend must report at least one match.
func IndexedIn(result *search.Result, recordID int64) bool {
	if result == nil || result.Raw.NumFound <= 0 {
		return false
	}
	hits := result.HitsByRecord[recordID]
	if len(hits) == 0 {
		return false
	}
	first := hits[0]
	return first.RecordID == recordID && first.Has(search.FieldAuthorID)
}

// queryEscaper backslash-escapes Lucene query syntax characters.
var queryEscaper = strings.NewReplacer(
	`\`, `\\`, `+`, `\+`, `-`, `\-`, `!`, `\!`, `(`, `\(`, `)`, `\)`,
	`{`, `\{`, `}`, `\}`, `[`, `\[`, `]`, `\]`, `^`, `\^`, `"`, `\"`,
	`~`, `\~`, `*`, `\*`, `?`, `\?`, `:`, `\:`, `/`, `\/`, `&`, `\&`,
	`|`, `\|`, ` `, `\ `,
)

// EscapeTerm escapes s for literal use inside a query expression.
func EscapeTerm(s string) string {
	return queryEscaper.Replace(s)
}

// IndexedQuery returns the key lookup used by IsIndexed. The trailing
// wildcard also matches the page units of the attachment.
func IndexedQuery(key search.UnitKey) search.Query {
	return search.Query{
		Text:   search.FieldID + ":" + EscapeTerm(key.Document().String()) + "*",
		Fields: append([]string(nil), search.IndexedCheckFields...),
		Rows:   1,
	}
}
