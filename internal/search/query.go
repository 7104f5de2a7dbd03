package search

import (
	"strings"

	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
)

const (
	// DefaultRows is the page size used when a query does not set Rows.
	DefaultRows = 10

	// RecordFilterLimit is the fan-out threshold for query-time record
	// narrowing. Candidate sets smaller than this are sent to the backend as
	// an explicit filter; larger ones are filtered after the fact to keep
	// request sizes bounded.
	RecordFilterLimit = 10
)

// Highlight controls snippet highlighting.
type Highlight struct {
	Enabled bool
	// Text is highlighted instead of the query text when set.
	Text string
}

// Query is a backend-neutral search request.
type Query struct {
	// Text is the backend query expression. Required.
	Text string
	// Filter is a raw backend filter clause.
	Filter string
	// RecordIDs restricts hits to these owning records.
	RecordIDs []int64
	// Fields lists the returned fields. Empty means DefaultFields.
	Fields    []string
	Sort      string
	Highlight Highlight
	Start     int
	// Rows is the page size. Zero means DefaultRows.
	Rows int
}

// Validate rejects queries that must not reach a backend.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fserrors.InvalidQueryError("query text is empty")
	}
	if q.Start < 0 {
		return fserrors.InvalidQueryError("start must not be negative")
	}
	if q.Rows < 0 {
		return fserrors.InvalidQueryError("rows must not be negative")
	}
	return nil
}

// WithDefaults returns q with the default field list and page size filled in.
func (q Query) WithDefaults() Query {
	if len(q.Fields) == 0 {
		q.Fields = append([]string(nil), DefaultFields...)
	}
	if q.Rows == 0 {
		q.Rows = DefaultRows
	}
	return q
}

// HighlightText returns the text to highlight.
func (q Query) HighlightText() string {
	if q.Highlight.Text != "" {
		return q.Highlight.Text
	}
	return q.Text
}
