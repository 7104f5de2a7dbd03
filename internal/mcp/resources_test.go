package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/filesearch/internal/record"
	"github.com/Aman-CERP/filesearch/internal/task"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}
}

func TestParseRecordURI(t *testing.T) {
	tests := []struct {
		uri  string
		id   int64
		want bool
	}{
		{"filesearch://records/42", 42, true},
		{"filesearch://records/0", 0, false},
		{"filesearch://records/-3", 0, false},
		{"filesearch://records/abc", 0, false},
		{"filesearch://tasks", 0, false},
		{"file:///etc/passwd", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			id, ok := parseRecordURI(tt.uri)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestReadRecordResource(t *testing.T) {
	// Given: a record with two attachments
	srv := newTestServer(t)
	srv.records.Records[42] = &record.Record{
		ID: 42, Title: "Annual report", Template: "report", AuthorRef: 5,
		Attachments: []record.Attachment{
			{Name: "report.pdf", Size: 3 << 20, ModTime: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
			{Name: "notes.txt", Size: 512},
		},
	}

	// When: reading its resource
	res, err := srv.handleReadRecord(context.Background(), readRequest("filesearch://records/42"))

	// Then: the JSON body describes it
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, "application/json", res.Contents[0].MIMEType)

	var body RecordResource
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &body))
	assert.Equal(t, int64(42), body.ID)
	assert.Equal(t, "report", body.Template)
	require.Len(t, body.Attachments, 2)
	assert.Equal(t, AttachmentResource{
		Name: "report.pdf", Size: "3.0 MB", MIMEType: "application/pdf", Modified: "2026-02-01T00:00:00Z",
	}, body.Attachments[0])
	assert.Equal(t, "512 B", body.Attachments[1].Size)
}

func TestReadRecordResource_NotFound(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.handleReadRecord(context.Background(), readRequest("filesearch://records/9"))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeNotFound, mcpErr.Code)

	_, err = srv.handleReadRecord(context.Background(), readRequest("filesearch://records/x"))
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeNotFound, mcpErr.Code)
}

func TestReadTasksResource(t *testing.T) {
	srv := newTestServer(t)
	srv.tasks.Tasks = []*task.Task{{ID: "a", Kind: "index_all", State: task.StateRunning}}

	res, err := srv.handleReadTasks(context.Background(), readRequest(tasksURI))

	require.NoError(t, err)
	var body TaskStatusOutput
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &body))
	require.Len(t, body.Tasks, 1)
	assert.Equal(t, "running", body.Tasks[0].State)
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "100 B", humanSize(100))
	assert.Equal(t, "1.5 KB", humanSize(1536))
	assert.Equal(t, "2.0 MB", humanSize(2<<20))
	assert.Equal(t, "1.0 GB", humanSize(1<<30))
}
