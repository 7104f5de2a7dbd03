// Package index makes record attachments discoverable in the search
// backend, either whole or page by page, inline or through the task
// scheduler.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/filesearch/internal/backend"
	"github.com/Aman-CERP/filesearch/internal/config"
	"github.com/Aman-CERP/filesearch/internal/convert"
	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
	"github.com/Aman-CERP/filesearch/internal/record"
	"github.com/Aman-CERP/filesearch/internal/search"
)

// Task kinds submitted by the indexer.
const (
	TaskIndexAll   = "index_all"
	TaskIndexPages = "index_pages"
)

// withAttachments selects every record owning at least one attachment.
var withAttachments = record.MustParseSelector("files>0")

// TaskRequest describes deferred work handed to the scheduler.
type TaskRequest struct {
	Kind  string
	Title string
	// RecordIDs are processed in this order.
	RecordIDs []int64
	Action    string
	// Attachment names the single attachment of an index_pages task.
	Attachment string
}

// TaskSubmitter queues deferred indexing work.
type TaskSubmitter interface {
	// Submit creates and activates a task, returning its id.
	Submit(ctx context.Context, req TaskRequest) (string, error)
}

// Dependencies are the collaborators of an Indexer. Submitter and Locker
// are optional.
type Dependencies struct {
	Store     record.Store
	Adapter   backend.Adapter
	Splitter  convert.Splitter
	Submitter TaskSubmitter
	Locker    Locker
	Logger    *slog.Logger
}

// Options are the indexing settings.
type Options struct {
	IndexPages bool
	// LargeFileThreshold is the size at which page indexing is deferred to a
	// task.
	LargeFileThreshold int64
	// InlineRecordLimit is the record count below which IndexAll runs
	// inline.
	InlineRecordLimit int
	FileField         string
	PageIndexField    string
	// WrittenCacheSize bounds the keys remembered between commits.
	WrittenCacheSize int
}

// OptionsFromConfig maps configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		IndexPages:         cfg.Indexing.IndexPages,
		LargeFileThreshold: cfg.Indexing.LargeFileThreshold,
		InlineRecordLimit:  cfg.Indexing.InlineRecordLimit,
		FileField:          cfg.Fields.FileField,
		PageIndexField:     cfg.Fields.PageIndexField,
		WrittenCacheSize:   cfg.Indexing.WrittenCacheSize,
	}
}

// RunOptions modify one indexing call.
type RunOptions struct {
	// Force reindexes units the backend already has.
	Force bool
}

// IndexAllResult reports how IndexAll handled the selected records.
type IndexAllResult struct {
	Action  string
	Records int
	// TaskID is set when the work was submitted instead of run inline.
	TaskID string
	Inline bool
}

// Indexer indexes record attachments into one backend.
type Indexer struct {
	store     record.Store
	adapter   backend.Adapter
	splitter  convert.Splitter
	submitter TaskSubmitter
	locker    Locker
	logger    *slog.Logger
	opts      Options

	// written holds document keys sent since the last commit or clear.
	// The backend cannot see them yet, so IsIndexed would miss them.
	written *lru.Cache[string, struct{}]
}

// New creates an Indexer.
func New(deps Dependencies, opts Options) (*Indexer, error) {
	if deps.Store == nil {
		return nil, fserrors.ConfigError("record store is required", nil)
	}
	if deps.Adapter == nil {
		return nil, fserrors.ConfigError("backend adapter is required", nil)
	}
	if opts.IndexPages && deps.Splitter == nil {
		return nil, fserrors.ConfigError("page splitter is required when page indexing is enabled", nil)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	if opts.LargeFileThreshold <= 0 {
		opts.LargeFileThreshold = config.DefaultLargeFileThreshold
	}
	if opts.WrittenCacheSize <= 0 {
		opts.WrittenCacheSize = 4096
	}
	written, err := lru.New[string, struct{}](opts.WrittenCacheSize)
	if err != nil {
		return nil, fserrors.InternalError("create written-key cache", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Indexer{
		store:     deps.Store,
		adapter:   deps.Adapter,
		splitter:  deps.Splitter,
		submitter: deps.Submitter,
		locker:    deps.Locker,
		logger:    logger,
		opts:      opts,
		written:   written,
	}, nil
}

func (o Options) validate() error {
	if o.FileField == "" || o.PageIndexField == "" {
		return fserrors.ConfigError("the module configuration is invalid: file_field and pageindex_field are required", nil)
	}
	if o.InlineRecordLimit < 0 {
		return fserrors.ConfigError(fmt.Sprintf("inline record limit must be non-negative, got %d", o.InlineRecordLimit), nil)
	}
	return nil
}

// Adapter returns the backend the indexer writes to.
func (ix *Indexer) Adapter() backend.Adapter {
	return ix.adapter
}

// IndexAttachment makes att discoverable. A unit the backend already has is
// reported as ErrAlreadyIndexed unless opts.Force is set; callers treat
// that as success.
func (ix *Indexer) IndexAttachment(ctx context.Context, rec record.Record, att record.Attachment, opts RunOptions) error {
	if err := ix.opts.validate(); err != nil {
		return err
	}

	key := search.NewUnitKey(rec.ID, att.Name).String()

	if ix.locker != nil {
		unlock, err := ix.locker.Lock(ctx, key)
		if err != nil {
			return fserrors.InternalError("lock unit", err).WithDetail("key", key)
		}
		defer unlock()
	}

	if !opts.Force {
		if ix.written.Contains(key) || ix.adapter.IsIndexed(ctx, rec, att) {
			ix.logger.Info("unit_skipped",
				slog.String("key", key),
				slog.String("reason", "already indexed"))
			return fserrors.AlreadyIndexed(key)
		}
	}

	if err := ix.indexUnit(ctx, rec, att); err != nil {
		return err
	}
	ix.written.Add(key, struct{}{})
	return nil
}

// indexUnit writes att whole, page by page, or as a deferred task.
func (ix *Indexer) indexUnit(ctx context.Context, rec record.Record, att record.Attachment) error {
	if !ix.opts.IndexPages {
		return ix.adapter.Index(ctx, rec, att.Path, backend.IndexOptions{
			Fields: authorFields(rec),
		})
	}

	if !rec.HasAuthor() {
		return missingAuthor(rec)
	}

	if att.Size < ix.opts.LargeFileThreshold || ix.submitter == nil {
		return ix.IndexPages(ctx, rec, att)
	}

	id, err := ix.submitter.Submit(ctx, TaskRequest{
		Kind:       TaskIndexPages,
		Title:      "Indexing pages in file " + att.Name,
		RecordIDs:  []int64{rec.ID},
		Attachment: att.Name,
	})
	if err != nil {
		return fmt.Errorf("submit page indexing for %s: %w", att.Name, err)
	}
	ix.logger.Info("pages_deferred",
		slog.Int64("record_id", rec.ID),
		slog.String("file", att.Name),
		slog.Int64("size", att.Size),
		slog.String("task_id", id))
	return nil
}

// IndexPages splits att and indexes every page as its own unit. The first
// failing page fails the attachment.
func (ix *Indexer) IndexPages(ctx context.Context, rec record.Record, att record.Attachment) error {
	if ix.splitter == nil {
		return fserrors.ConfigError("page splitter is not configured", nil)
	}
	if !rec.HasAuthor() {
		return missingAuthor(rec)
	}

	pages := 0
	err := ix.splitter.Split(ctx, rec.ID, att.Path, func(frag convert.PageFragment) error {
		ix.logger.Debug("page_indexing",
			slog.Int64("record_id", rec.ID),
			slog.String("file", att.Name),
			slog.Int("page", frag.Page))

		err := ix.adapter.Index(ctx, rec, frag.Path, backend.IndexOptions{
			Fields: map[string]string{
				search.FieldAuthorID: authorField(rec),
				search.FieldPageNum:  strconv.Itoa(frag.Page),
			},
			FilenamePrefix: att.Name + "_",
			Page:           frag.Page,
		})
		if err != nil {
			return fmt.Errorf("page %d of %s: %w", frag.Page, att.Name, err)
		}
		pages++
		return nil
	})
	if err != nil {
		return err
	}

	ix.logger.Info("pages_indexed",
		slog.Int64("record_id", rec.ID),
		slog.String("file", att.Name),
		slog.Int("pages", pages))
	return nil
}

// IndexAttachmentPages indexes the pages of one named attachment of record
// id. Deferred index_pages tasks run through here.
func (ix *Indexer) IndexAttachmentPages(ctx context.Context, id int64, name string) error {
	rec, err := ix.store.Get(ctx, id)
	if err != nil {
		return err
	}
	att, ok := rec.Attachment(name)
	if !ok {
		return fserrors.New(fserrors.ErrCodeFileNotFound,
			fmt.Sprintf("record %d has no attachment %q", id, name), nil)
	}
	return ix.IndexPages(ctx, *rec, att)
}

// IndexRecord indexes every attachment of rec in order and stops at the
// first failure. Skips count as success.
func (ix *Indexer) IndexRecord(ctx context.Context, rec record.Record, opts RunOptions) error {
	for _, att := range rec.Attachments {
		if err := ctx.Err(); err != nil {
			return err
		}
		ix.logger.Debug("attachment_processing",
			slog.Int64("record_id", rec.ID),
			slog.String("file", att.Path))

		if err := ix.IndexAttachment(ctx, rec, att, opts); err != nil && !fserrors.IsSkip(err) {
			return err
		}
	}
	return nil
}

// IndexRecordID looks up record id and indexes it.
func (ix *Indexer) IndexRecordID(ctx context.Context, id int64, opts RunOptions) error {
	rec, err := ix.store.Get(ctx, id)
	if err != nil {
		return err
	}
	return ix.IndexRecord(ctx, *rec, opts)
}

// IndexRecords indexes ids in order and stops at the first failure.
func (ix *Indexer) IndexRecords(ctx context.Context, ids []int64, opts RunOptions) error {
	for _, id := range ids {
		if err := ix.IndexRecordID(ctx, id, opts); err != nil {
			return fmt.Errorf("record %d: %w", id, err)
		}
	}
	return nil
}

// IndexAll runs a batch action over every record with attachments.
// "reset" clears the backend. Otherwise small batches run inline and
// larger ones are submitted as one index_all task.
func (ix *Indexer) IndexAll(ctx context.Context, action string) (IndexAllResult, error) {
	result := IndexAllResult{Action: action}

	switch action {
	case config.ActionReset:
		return result, ix.Reset(ctx)
	case config.ActionIndexAll, config.ActionIndexMissing:
	default:
		return result, fserrors.ConfigError(fmt.Sprintf("invalid action specified: %s", action), nil)
	}

	ids, err := ix.store.FindIDs(ctx, withAttachments)
	if err != nil {
		return result, fmt.Errorf("select records: %w", err)
	}
	result.Records = len(ids)
	opts := RunOptions{Force: action == config.ActionIndexAll}

	if len(ids) < ix.opts.InlineRecordLimit || ix.submitter == nil {
		result.Inline = true
		ix.logger.Info("index_all_inline", slog.String("action", action), slog.Int("records", len(ids)))
		return result, ix.IndexRecords(ctx, ids, opts)
	}

	ix.logger.Info("index_all_submitted", slog.String("action", action), slog.Int("records", len(ids)))
	result.TaskID, err = ix.submitter.Submit(ctx, TaskRequest{
		Kind:      TaskIndexAll,
		Title:     "Reindexing all files",
		RecordIDs: ids,
		Action:    action,
	})
	if err != nil {
		return result, fmt.Errorf("submit index_all task: %w", err)
	}
	return result, nil
}

// Commit makes pending backend writes visible.
func (ix *Indexer) Commit(ctx context.Context) error {
	if err := ix.adapter.Commit(ctx); err != nil {
		return err
	}
	ix.written.Purge()
	return nil
}

// Reset clears the backend and forgets pending writes.
func (ix *Indexer) Reset(ctx context.Context) error {
	if err := ix.adapter.Clear(ctx); err != nil {
		return err
	}
	ix.written.Purge()
	ix.logger.Info("index_reset", slog.String("backend", ix.adapter.Name()))
	return nil
}

func authorField(rec record.Record) string {
	return strconv.FormatInt(rec.AuthorRef, 10)
}

// authorFields omits the author of a record that has none, leaving the unit
// unverifiable so a later run indexes it again.
func authorFields(rec record.Record) map[string]string {
	if !rec.HasAuthor() {
		return map[string]string{}
	}
	return map[string]string{search.FieldAuthorID: authorField(rec)}
}

func missingAuthor(rec record.Record) error {
	return fserrors.ValidationError(
		fmt.Sprintf("missing author_ref on record %q [%d]", rec.Title, rec.ID), nil)
}
