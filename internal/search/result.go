package search

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Response is a backend's answer to one query, before reconciliation.
type Response struct {
	NumFound int64
	Start    int64
	// Docs are the flat hit documents in backend order.
	Docs []map[string]any
	// Highlighting maps a document id to its snippets per field.
	Highlighting map[string]map[string][]string
	// Body is the raw response body, when the backend has one.
	Body json.RawMessage
}

// Hit is one backend document attributed to a record.
type Hit struct {
	ID       string
	Name     string
	RecordID int64
	// PageNum is zero for whole-document units.
	PageNum int
	// Fields is the untouched backend document.
	Fields map[string]any
	// Highlights are content snippets, when highlighting was requested.
	Highlights []string
}

// Has reports whether the backend returned field for this hit.
func (h Hit) Has(field string) bool {
	v, ok := h.Fields[field]
	return ok && v != nil
}

// Result groups hits by owning record. Raw keeps the backend response so
// callers retain totals and diagnostics.
type Result struct {
	Raw          Response
	HitsByRecord map[int64][]Hit
}

// RecordIDs returns the ids present in the result in ascending order.
func (r *Result) RecordIDs() []int64 {
	ids := make([]int64, 0, len(r.HitsByRecord))
	for id := range r.HitsByRecord {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// HitCount returns the number of attributed hits.
func (r *Result) HitCount() int {
	n := 0
	for _, hits := range r.HitsByRecord {
		n += len(hits)
	}
	return n
}

// FilterRecords returns a copy of r holding only hits owned by ids. Raw is
// always retained.
func FilterRecords(r *Result, ids []int64) *Result {
	keep := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}

	out := &Result{Raw: r.Raw, HitsByRecord: make(map[int64][]Hit)}
	for id, hits := range r.HitsByRecord {
		if _, ok := keep[id]; ok {
			out.HitsByRecord[id] = hits
		}
	}
	return out
}

// intValue reads an integer from a decoded JSON value. Backends return ids as
// numbers, numeric strings, or single-element arrays for multi-valued
// fields.
func intValue(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		return int64(x), x == float64(int64(x))
	case int:
		return int64(x), true
	case int64:
		return x, true
	case json.Number:
		n, err := x.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	case []any:
		if len(x) == 1 {
			return intValue(x[0])
		}
	}
	return 0, false
}

// stringValue reads a string from a decoded JSON value.
func stringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []any:
		if len(x) > 0 {
			return stringValue(x[0])
		}
		return ""
	default:
		return fmt.Sprint(x)
	}
}
