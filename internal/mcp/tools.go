package mcp

// SearchFilesInput defines the input schema for the search_files tool.
type SearchFilesInput struct {
	Selector  string `json:"selector" jsonschema:"record selector such as template=report,files>0"`
	Text      string `json:"text" jsonschema:"backend query text to run against the selected records' files"`
	Start     int    `json:"start,omitempty" jsonschema:"offset of the first hit, default 0"`
	Rows      int    `json:"rows,omitempty" jsonschema:"maximum number of hits, default 10"`
	Sort      string `json:"sort,omitempty" jsonschema:"backend sort clause, e.g. score desc"`
	Highlight bool   `json:"highlight,omitempty" jsonschema:"return highlighted content snippets"`
}

// SearchFilesOutput defines the output schema for the search_files tool.
type SearchFilesOutput struct {
	NumFound int64          `json:"num_found" jsonschema:"total hits reported by the backend before record filtering"`
	Records  []RecordOutput `json:"records" jsonschema:"matching records in ascending id order"`
}

// RecordOutput groups the hits of one record.
type RecordOutput struct {
	RecordID int64       `json:"record_id"`
	Hits     []HitOutput `json:"hits"`
}

// HitOutput is one matching file or page.
type HitOutput struct {
	ID         string   `json:"id" jsonschema:"backend unit key"`
	Name       string   `json:"name" jsonschema:"attachment file name"`
	Page       int      `json:"page,omitempty" jsonschema:"page number for page hits"`
	Highlights []string `json:"highlights,omitempty" jsonschema:"highlighted content snippets"`
}

// IndexRecordInput defines the input schema for the index_record tool.
type IndexRecordInput struct {
	RecordID int64 `json:"record_id" jsonschema:"id of the record whose attachments to index"`
	Force    bool  `json:"force,omitempty" jsonschema:"reindex attachments the backend already has"`
}

// IndexRecordOutput defines the output schema for the index_record tool.
type IndexRecordOutput struct {
	RecordID  int64 `json:"record_id"`
	Committed bool  `json:"committed"`
}

// IndexAllInput defines the input schema for the index_all tool.
type IndexAllInput struct {
	Action string `json:"action,omitempty" jsonschema:"indexmissing, indexall, or reset; defaults to the configured action"`
}

// IndexAllOutput defines the output schema for the index_all tool.
type IndexAllOutput struct {
	Action  string `json:"action"`
	Records int    `json:"records" jsonschema:"number of selected records"`
	Inline  bool   `json:"inline" jsonschema:"true when the records were indexed during the call"`
	TaskID  string `json:"task_id,omitempty" jsonschema:"id of the submitted task, poll it with task_status"`
}

// TaskStatusInput defines the input schema for the task_status tool.
type TaskStatusInput struct {
	TaskID string `json:"task_id,omitempty" jsonschema:"task id; omit to list every task"`
}

// TaskStatusOutput defines the output schema for the task_status tool.
type TaskStatusOutput struct {
	Tasks []TaskOutput `json:"tasks"`
}

// TaskOutput describes one task.
type TaskOutput struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Title      string `json:"title"`
	State      string `json:"state"`
	Processed  int    `json:"processed"`
	MaxRecords int    `json:"max_records"`
	Failed     int    `json:"failed"`
	Error      string `json:"error,omitempty"`
	UpdatedAt  string `json:"updated_at"`
}
