// Package bleve implements a local, in-process backend adapter on top of
// the bleve full-text library. Text is pulled out of each unit with the
// configured Extractor and indexed next to the same literal fields the Solr
// adapter sends, so both backends answer queries with identical documents.
package bleve

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	blevesearch "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/highlight/highlighter/html"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/filesearch/internal/backend"
	"github.com/Aman-CERP/filesearch/internal/convert"
	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
	"github.com/Aman-CERP/filesearch/internal/record"
	"github.com/Aman-CERP/filesearch/internal/search"
)

// Name is the registry selector of this adapter.
const Name = "bleve"

// clearBatchSize bounds the number of ids deleted per batch in Clear.
const clearBatchSize = 1000

// numericFields are indexed as numbers so record restrictions can use
// range queries.
var numericFields = map[string]bool{
	search.FieldRecordID: true,
	search.FieldPageNum:  true,
	search.FieldAuthorID: true,
}

// Adapter is a bleve-backed search index.
type Adapter struct {
	mu        sync.RWMutex
	index     blevesearch.Index
	path      string
	extractor convert.Extractor
	logger    *slog.Logger
	closed    bool
}

var _ backend.Adapter = (*Adapter)(nil)

// New opens the index at path, creating it when missing. An empty path
// creates an in-memory index.
func New(path string, extractor convert.Extractor, logger *slog.Logger) (*Adapter, error) {
	if extractor == nil {
		return nil, fserrors.ConfigError("bleve backend requires a text extractor", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	idx, err := openIndex(path, logger)
	if err != nil {
		return nil, err
	}

	return &Adapter{
		index:     idx,
		path:      path,
		extractor: extractor,
		logger:    logger,
	}, nil
}

func openIndex(path string, logger *slog.Logger) (blevesearch.Index, error) {
	m := newMapping()
	if path == "" {
		idx, err := blevesearch.NewMemOnly(m)
		if err != nil {
			return nil, fserrors.InternalError("create in-memory index", err)
		}
		return idx, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fserrors.ConfigError(fmt.Sprintf("create index directory for %s", path), err)
	}

	if err := checkIntegrity(path); err != nil {
		logger.Warn("bleve_index_corrupted",
			slog.String("path", path),
			slog.String("error", err.Error()))
		if err := os.RemoveAll(path); err != nil {
			return nil, fserrors.InternalError(fmt.Sprintf("remove corrupted index %s", path), err)
		}
	}

	idx, err := blevesearch.Open(path)
	if err == blevesearch.ErrorIndexPathDoesNotExist {
		idx, err = blevesearch.New(path, m)
	}
	if err != nil {
		return nil, fserrors.InternalError(fmt.Sprintf("open index %s", path), err)
	}
	return idx, nil
}

// checkIntegrity reports an index directory whose metadata is missing or
// unreadable. A missing directory is fine.
func checkIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(path, "index_meta.json"))
	if err != nil {
		return fmt.Errorf("index_meta.json unreadable: %w", err)
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

// newMapping stores every unit field. Ids and names are matched verbatim;
// only content is analyzed.
func newMapping() *mapping.IndexMappingImpl {
	keyword := blevesearch.NewKeywordFieldMapping()
	numeric := blevesearch.NewNumericFieldMapping()

	content := blevesearch.NewTextFieldMapping()
	content.Analyzer = standard.Name

	doc := blevesearch.NewDocumentMapping()
	doc.AddFieldMappingsAt(search.FieldID, keyword)
	doc.AddFieldMappingsAt(search.FieldName, keyword)
	doc.AddFieldMappingsAt(search.FieldContent, content)
	for field := range numericFields {
		doc.AddFieldMappingsAt(field, numeric)
	}

	m := blevesearch.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = standard.Name
	m.DefaultField = search.FieldContent
	return m
}

// Name implements backend.Adapter.
func (a *Adapter) Name() string {
	return Name
}

// Index implements backend.Adapter.
func (a *Adapter) Index(ctx context.Context, rec record.Record, path string, opts backend.IndexOptions) error {
	if _, err := os.Stat(path); err != nil {
		return fserrors.New(fserrors.ErrCodeFileNotFound, fmt.Sprintf("open %s", path), err)
	}

	text, err := a.extractor.Extract(ctx, path)
	if err != nil {
		return err
	}

	key := opts.Key(rec.ID, path)
	doc, err := document(rec.ID, key.String(), opts.Name(path), text, opts.Fields)
	if err != nil {
		return err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return fserrors.InternalError("index is closed", nil)
	}

	if err := a.index.Index(key.String(), doc); err != nil {
		return fserrors.New(fserrors.ErrCodeIndexFailed, fmt.Sprintf("index %s", key), err)
	}

	a.logger.Info("unit_indexed",
		slog.String("backend", Name),
		slog.String("key", key.String()),
		slog.String("name", opts.Name(path)),
		slog.Int64("record_id", rec.ID))
	return nil
}

// document builds the stored form of one unit.
func document(recordID int64, key, name, text string, fields map[string]string) (map[string]any, error) {
	doc := map[string]any{
		search.FieldID:       key,
		search.FieldName:     name,
		search.FieldRecordID: float64(recordID),
		search.FieldContent:  text,
	}
	for field, value := range fields {
		if !numericFields[field] {
			doc[field] = value
			continue
		}
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fserrors.ValidationError(fmt.Sprintf("field %s must be numeric, got %q", field, value), err)
		}
		doc[field] = n
	}
	return doc, nil
}

// IsIndexed implements backend.Adapter.
func (a *Adapter) IsIndexed(ctx context.Context, rec record.Record, att record.Attachment) bool {
	key := search.NewUnitKey(rec.ID, att.Name)
	doc := key.String()

	exact := blevesearch.NewTermQuery(doc)
	exact.SetField(search.FieldID)
	pages := blevesearch.NewPrefixQuery(doc + "/page-")
	pages.SetField(search.FieldID)

	q := search.Query{Fields: search.IndexedCheckFields, Rows: 1}
	result, err := a.run(ctx, blevesearch.NewDisjunctionQuery(exact, pages), q)
	if err != nil {
		a.logger.Warn("indexed_check_failed",
			slog.String("key", doc),
			slog.String("error", err.Error()))
		return false
	}
	return backend.IndexedIn(result, rec.ID)
}

// Query implements backend.Adapter. Text uses bleve's query string syntax;
// "*:*" and "*" match everything.
func (a *Adapter) Query(ctx context.Context, q search.Query) (*search.Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	clauses := []query.Query{textQuery(q.Text)}
	if q.Filter != "" {
		clauses = append(clauses, textQuery(q.Filter))
	}
	if len(q.RecordIDs) > 0 {
		clauses = append(clauses, recordQuery(q.RecordIDs))
	}

	var bq query.Query = clauses[0]
	if len(clauses) > 1 {
		bq = blevesearch.NewConjunctionQuery(clauses...)
	}
	return a.run(ctx, bq, q)
}

func textQuery(text string) query.Query {
	text = strings.TrimSpace(text)
	if text == "*:*" || text == "*" {
		return blevesearch.NewMatchAllQuery()
	}
	return blevesearch.NewQueryStringQuery(text)
}

// recordQuery matches units owned by any of ids.
func recordQuery(ids []int64) query.Query {
	inclusive := true
	clauses := make([]query.Query, 0, len(ids))
	for _, id := range ids {
		v := float64(id)
		rq := blevesearch.NewNumericRangeInclusiveQuery(&v, &v, &inclusive, &inclusive)
		rq.SetField(search.FieldRecordID)
		clauses = append(clauses, rq)
	}
	return blevesearch.NewDisjunctionQuery(clauses...)
}

// sortOrder converts "field asc, other desc" into bleve's "-field" form.
func sortOrder(s string) []string {
	var order []string
	for _, part := range strings.Split(s, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		field := fields[0]
		if len(fields) > 1 && strings.EqualFold(fields[1], "desc") {
			field = "-" + field
		}
		order = append(order, field)
	}
	return order
}

// run executes bq with the paging, fields, sort and highlighting of q.
func (a *Adapter) run(ctx context.Context, bq query.Query, q search.Query) (*search.Result, error) {
	q = q.WithDefaults()

	req := blevesearch.NewSearchRequestOptions(bq, q.Rows, q.Start, false)
	req.Fields = q.Fields
	if q.Sort != "" {
		req.SortBy(sortOrder(q.Sort))
	}
	if q.Highlight.Enabled {
		req.Highlight = blevesearch.NewHighlightWithStyle(html.Name)
		req.Highlight.AddField(search.FieldContent)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, fserrors.InternalError("index is closed", nil)
	}

	res, err := a.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fserrors.New(fserrors.ErrCodeBackendResponse, "bleve search failed", err)
	}

	resp := search.Response{
		NumFound:     int64(res.Total),
		Start:        int64(q.Start),
		Docs:         make([]map[string]any, 0, len(res.Hits)),
		Highlighting: make(map[string]map[string][]string),
	}
	for _, hit := range res.Hits {
		doc := make(map[string]any, len(hit.Fields)+1)
		for k, v := range hit.Fields {
			doc[k] = v
		}
		doc[search.FieldID] = hit.ID
		resp.Docs = append(resp.Docs, doc)

		if frags := hit.Fragments[search.FieldContent]; len(frags) > 0 {
			resp.Highlighting[hit.ID] = map[string][]string{search.FieldContent: frags}
		}
	}
	if body, err := json.Marshal(res); err == nil {
		resp.Body = body
	}

	a.logger.Debug("bleve_query",
		slog.String("q", q.Text),
		slog.Int64("num_found", resp.NumFound),
		slog.Int("docs", len(resp.Docs)))

	return search.Reconcile(resp, a.logger), nil
}

// Clear implements backend.Adapter.
func (a *Adapter) Clear(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return fserrors.InternalError("index is closed", nil)
	}

	removed := 0
	for {
		req := blevesearch.NewSearchRequestOptions(blevesearch.NewMatchAllQuery(), clearBatchSize, 0, false)
		res, err := a.index.SearchInContext(ctx, req)
		if err != nil {
			return fserrors.New(fserrors.ErrCodeBackendResponse, "list documents", err)
		}
		if len(res.Hits) == 0 {
			break
		}

		batch := a.index.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := a.index.Batch(batch); err != nil {
			return fserrors.New(fserrors.ErrCodeIndexFailed, "delete documents", err)
		}
		removed += len(res.Hits)
	}

	a.logger.Info("backend_cleared", slog.String("backend", Name), slog.Int("removed", removed))
	return nil
}

// Commit implements backend.Adapter. Bleve writes are visible as soon as
// Index returns.
func (a *Adapter) Commit(ctx context.Context) error {
	return nil
}

// Ping implements backend.Adapter.
func (a *Adapter) Ping(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return fserrors.InternalError("index is closed", nil)
	}
	if _, err := a.index.DocCount(); err != nil {
		return fserrors.New(fserrors.ErrCodeBackendUnavailable, "bleve index unavailable", err)
	}
	return nil
}

// DocCount returns the number of stored units.
func (a *Adapter) DocCount() (uint64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return 0, fserrors.InternalError("index is closed", nil)
	}
	return a.index.DocCount()
}

// Close implements backend.Adapter.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return a.index.Close()
}
