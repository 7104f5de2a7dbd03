package watcher

import (
	"context"
	"log/slog"
	"path/filepath"

	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
	"github.com/Aman-CERP/filesearch/internal/index"
	"github.com/Aman-CERP/filesearch/internal/record"
)

// RecordLocator maps a changed path back to its record.
type RecordLocator interface {
	ParseAttachmentPath(path string) (int64, bool)
	Get(ctx context.Context, id int64) (*record.Record, error)
}

// AttachmentIndexer is the part of index.Indexer the watcher drives.
type AttachmentIndexer interface {
	IndexAttachment(ctx context.Context, rec record.Record, att record.Attachment, opts index.RunOptions) error
	Commit(ctx context.Context) error
}

// Handler indexes the attachments named by event batches.
type Handler struct {
	records RecordLocator
	indexer AttachmentIndexer
	logger  *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(records RecordLocator, indexer AttachmentIndexer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{records: records, indexer: indexer, logger: logger}
}

// Run handles batches until events is closed or ctx is done.
func (h *Handler) Run(ctx context.Context, events <-chan []FileEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := h.HandleBatch(ctx, batch); err != nil {
				return err
			}
		}
	}
}

// HandleBatch indexes each created or replaced attachment in order and
// commits once if anything was written. A replaced file is reindexed even
// when the backend already has its key. Only fatal errors are returned.
func (h *Handler) HandleBatch(ctx context.Context, batch []FileEvent) (int, error) {
	indexed := 0
	for _, ev := range batch {
		if ev.Operation == OpDelete {
			// the backend keeps stale units until the next reset
			h.logger.Debug("attachment_removed", slog.String("path", ev.Path))
			continue
		}

		id, ok := h.records.ParseAttachmentPath(ev.Path)
		if !ok {
			continue
		}
		rec, err := h.records.Get(ctx, id)
		if err != nil {
			h.logger.Warn("watch_record_unreadable",
				slog.Int64("record_id", id),
				slog.String("error", err.Error()))
			continue
		}
		att, ok := rec.Attachment(filepath.Base(ev.Path))
		if !ok {
			continue
		}

		err = h.indexer.IndexAttachment(ctx, *rec, att, index.RunOptions{Force: ev.Operation == OpModify})
		switch {
		case err == nil:
			indexed++
		case fserrors.IsSkip(err):
		case fserrors.IsFatal(err):
			return indexed, err
		default:
			h.logger.Warn("watch_index_failed",
				slog.Int64("record_id", id),
				slog.String("attachment", att.Name),
				slog.String("error", err.Error()))
		}
	}

	if indexed > 0 {
		if err := h.indexer.Commit(ctx); err != nil {
			if fserrors.IsFatal(err) {
				return indexed, err
			}
			h.logger.Warn("watch_commit_failed", slog.String("error", err.Error()))
			return indexed, nil
		}
		h.logger.Info("watch_batch_indexed", slog.Int("attachments", indexed))
	}
	return indexed, nil
}
