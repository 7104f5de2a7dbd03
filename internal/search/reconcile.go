package search

import (
	"log/slog"
)

// Reconcile groups a flat backend response by owning record.
//
// A hit without an owning-record field is attributed through a leading
// "<id>_" in its name (then its id), which is how older indexes named units;
// hits that cannot be attributed are dropped. Hit order within a record
// follows backend order.
func Reconcile(resp Response, logger *slog.Logger) *Result {
	if logger == nil {
		logger = slog.Default()
	}

	result := &Result{Raw: resp, HitsByRecord: make(map[int64][]Hit)}

	for _, doc := range resp.Docs {
		hit := Hit{
			ID:     stringValue(doc[FieldID]),
			Name:   stringValue(doc[FieldName]),
			Fields: doc,
		}
		if n, ok := intValue(doc[FieldPageNum]); ok {
			hit.PageNum = int(n)
		}

		id, ok := intValue(doc[FieldRecordID])
		if !ok || id <= 0 {
			id, ok = recoverRecordID(hit)
			if !ok {
				logger.Warn("hit_dropped",
					slog.String("id", hit.ID),
					slog.String("name", hit.Name),
					slog.String("reason", "no owning record"))
				continue
			}
			logger.Warn("hit_record_recovered",
				slog.String("id", hit.ID),
				slog.String("name", hit.Name),
				slog.Int64("record_id", id))
		}
		hit.RecordID = id

		if snippets, ok := resp.Highlighting[hit.ID]; ok {
			hit.Highlights = snippets[FieldContent]
		}

		result.HitsByRecord[id] = append(result.HitsByRecord[id], hit)
	}

	return result
}

func recoverRecordID(h Hit) (int64, bool) {
	if id, ok := RecordPrefix(h.Name); ok {
		return id, true
	}
	return RecordPrefix(h.ID)
}
