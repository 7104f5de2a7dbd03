package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/filesearch/internal/record"
)

// Resource URIs.
const (
	recordURIPrefix   = "filesearch://records/"
	recordURITemplate = recordURIPrefix + "{id}"
	tasksURI          = "filesearch://tasks"
)

// RecordResource is the JSON body of a record resource.
type RecordResource struct {
	ID          int64                `json:"id"`
	Title       string               `json:"title"`
	Template    string               `json:"template,omitempty"`
	AuthorRef   int64                `json:"author_ref,omitempty"`
	Fields      map[string]string    `json:"fields,omitempty"`
	Attachments []AttachmentResource `json:"attachments"`
}

// AttachmentResource describes one attachment of a record resource.
type AttachmentResource struct {
	Name     string `json:"name"`
	Size     string `json:"size"`
	MIMEType string `json:"mime_type"`
	Modified string `json:"modified"`
}

func (s *Server) registerResources() {
	s.mcp.AddResourceTemplate(
		&mcp.ResourceTemplate{
			Name:        "record",
			URITemplate: recordURITemplate,
			Description: "Metadata and attachment list of one record",
			MIMEType:    "application/json",
		},
		s.handleReadRecord,
	)
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "tasks",
			URI:         tasksURI,
			Description: "All indexing tasks with their progress",
			MIMEType:    "application/json",
		},
		s.handleReadTasks,
	)
}

func (s *Server) handleReadRecord(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	id, ok := parseRecordURI(uri)
	if !ok {
		return nil, NewResourceNotFoundError(uri)
	}

	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, MapError(err)
	}
	return jsonResult(uri, toRecordResource(rec))
}

func (s *Server) handleReadTasks(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	out, err := s.handleTaskStatus(ctx, TaskStatusInput{})
	if err != nil {
		return nil, err
	}
	return jsonResult(tasksURI, out)
}

// parseRecordURI extracts the record id from filesearch://records/<id>.
func parseRecordURI(uri string) (int64, bool) {
	rest, ok := strings.CutPrefix(uri, recordURIPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func toRecordResource(rec *record.Record) RecordResource {
	out := RecordResource{
		ID:          rec.ID,
		Title:       rec.Title,
		Template:    rec.Template,
		AuthorRef:   rec.AuthorRef,
		Fields:      rec.Fields,
		Attachments: make([]AttachmentResource, 0, len(rec.Attachments)),
	}
	for _, a := range rec.Attachments {
		out.Attachments = append(out.Attachments, AttachmentResource{
			Name:     a.Name,
			Size:     humanSize(a.Size),
			MIMEType: MimeTypeForPath(a.Name),
			Modified: a.ModTime.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(content),
			},
		},
	}, nil
}

// humanSize formats bytes as a human-readable string.
func humanSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
