// Package finder answers text queries scoped to the records a selector
// picks out.
package finder

import (
	"context"
	"log/slog"

	"github.com/Aman-CERP/filesearch/internal/backend"
	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
	"github.com/Aman-CERP/filesearch/internal/record"
	"github.com/Aman-CERP/filesearch/internal/search"
)

// Options are the query settings a caller may override.
type Options struct {
	Fields    []string
	Filter    string
	Sort      string
	Highlight search.Highlight
	Start     int
	Rows      int
}

// Page is one page of selected record ids.
type Page struct {
	// NumFound is the total number of selected records.
	NumFound  int64
	Start     int
	RecordIDs []int64
}

// Finder resolves selectors and runs scoped queries.
type Finder struct {
	store   record.Store
	adapter backend.Adapter
	logger  *slog.Logger
}

// New creates a Finder.
func New(store record.Store, adapter backend.Adapter, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{store: store, adapter: adapter, logger: logger}
}

// Find runs text against the units of the records matched by selector.
//
// Small candidate sets are sent to the backend as a record restriction.
// Larger ones are queried unrestricted and filtered afterwards, which keeps
// the request bounded but means a page can hold fewer than Rows hits.
func (f *Finder) Find(ctx context.Context, selector, text string, opts Options) (*search.Result, error) {
	q := search.Query{
		Text:      text,
		Filter:    opts.Filter,
		Fields:    opts.Fields,
		Sort:      opts.Sort,
		Highlight: opts.Highlight,
		Start:     opts.Start,
		Rows:      opts.Rows,
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	ids, err := f.candidates(ctx, selector)
	if err != nil {
		return nil, err
	}

	narrowed := len(ids) < search.RecordFilterLimit
	if narrowed {
		q.RecordIDs = ids
	}

	result, err := f.adapter.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if !narrowed {
		result = search.FilterRecords(result, ids)
	}

	f.logger.Debug("find_completed",
		slog.String("selector", selector),
		slog.Int("candidates", len(ids)),
		slog.Bool("narrowed", narrowed),
		slog.Int("hits", result.HitCount()))
	return result, nil
}

// Browse lists the records matched by selector without querying the
// backend.
func (f *Finder) Browse(ctx context.Context, selector string, start, rows int) (*Page, error) {
	if start < 0 || rows < 0 {
		return nil, fserrors.InvalidQueryError("start and rows must not be negative")
	}
	if rows == 0 {
		rows = search.DefaultRows
	}

	ids, err := f.candidates(ctx, selector)
	if err != nil {
		return nil, err
	}

	page := &Page{NumFound: int64(len(ids)), Start: start, RecordIDs: []int64{}}
	if start < len(ids) {
		end := min(start+rows, len(ids))
		page.RecordIDs = append(page.RecordIDs, ids[start:end]...)
	}
	return page, nil
}

func (f *Finder) candidates(ctx context.Context, selector string) ([]int64, error) {
	sel, err := record.ParseSelector(selector)
	if err != nil {
		return nil, err
	}
	ids, err := f.store.FindIDs(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fserrors.NoCandidatesError(selector)
	}
	return ids, nil
}
