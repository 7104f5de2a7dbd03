package search

// Backend document fields.
const (
	FieldID       = "id"
	FieldName     = "name"
	FieldRecordID = "pw_page_id"
	FieldPageNum  = "page_num"
	FieldAuthorID = "pw_author_id"
	FieldContent  = "content"
)

// DefaultFields is returned when a query does not name its fields.
var DefaultFields = []string{FieldID, FieldName, FieldRecordID, FieldPageNum}

// IndexedCheckFields are requested when verifying that a unit is indexed.
var IndexedCheckFields = []string{FieldID, FieldName, FieldRecordID, FieldAuthorID}
