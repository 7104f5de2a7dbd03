package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/filesearch/internal/config"
	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
	"github.com/Aman-CERP/filesearch/internal/finder"
	"github.com/Aman-CERP/filesearch/internal/index"
	"github.com/Aman-CERP/filesearch/internal/record"
	"github.com/Aman-CERP/filesearch/internal/search"
	"github.com/Aman-CERP/filesearch/internal/task"
	"github.com/Aman-CERP/filesearch/pkg/version"
)

// serverName is reported to MCP clients.
const serverName = "filesearch"

// maxRows caps the page size a client may request.
const maxRows = 100

// Finder runs scoped queries.
type Finder interface {
	Find(ctx context.Context, selector, text string, opts finder.Options) (*search.Result, error)
}

// Indexer is the part of index.Indexer the tools drive.
type Indexer interface {
	IndexRecordID(ctx context.Context, id int64, opts index.RunOptions) error
	IndexAll(ctx context.Context, action string) (index.IndexAllResult, error)
	Commit(ctx context.Context) error
}

// TaskLookup reads task state.
type TaskLookup interface {
	Status(ctx context.Context, id string) (*task.Task, error)
	List(ctx context.Context) ([]*task.Task, error)
}

// Dependencies are the collaborators of a Server. Tasks may be nil, in
// which case task_status and the task resources report no tasks.
type Dependencies struct {
	Finder  Finder
	Indexer Indexer
	Records record.Store
	Tasks   TaskLookup
	Logger  *slog.Logger
}

// Server is the MCP server for filesearch.
type Server struct {
	mcp     *mcp.Server
	finder  Finder
	indexer Indexer
	records record.Store
	tasks   TaskLookup
	config  *config.Config
	logger  *slog.Logger

	// indexMu serializes index tools; the indexer's commit state is shared.
	indexMu sync.Mutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "search_files",
		Description: "Search the text of files attached to records. The selector picks the records (for example template=report,files>0), the text is the query run against their files. Results are grouped by record; page-level hits carry a page number.",
	},
	{
		Name:        "index_record",
		Description: "Index every attachment of one record and commit. Attachments the backend already has are skipped unless force is set.",
	},
	{
		Name:        "index_all",
		Description: "Run a batch action over all records with attachments: indexmissing, indexall, or reset. Large batches are queued as a task; poll it with task_status.",
	},
	{
		Name:        "task_status",
		Description: "Report the state and progress of an indexing task, or of all tasks when no id is given.",
	},
}

// NewServer creates a new MCP server.
func NewServer(deps Dependencies, cfg *config.Config) (*Server, error) {
	if deps.Finder == nil {
		return nil, errors.New("finder is required")
	}
	if deps.Indexer == nil {
		return nil, errors.New("indexer is required")
	}
	if deps.Records == nil {
		return nil, errors.New("record store is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Server{
		finder:  deps.Finder,
		indexer: deps.Indexer,
		records: deps.Records,
		tasks:   deps.Tasks,
		config:  cfg,
		logger:  deps.Logger,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		nil, // capabilities are inferred from registered tools and resources
	)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return serverName, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return append([]ToolInfo(nil), tools...)
}

// CallTool invokes a tool by name with JSON-style arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "search_files":
		var in SearchFilesInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.handleSearchFiles(ctx, in)
	case "index_record":
		var in IndexRecordInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.handleIndexRecord(ctx, in)
	case "index_all":
		var in IndexAllInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.handleIndexAll(ctx, in)
	case "task_status":
		var in TaskStatusInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.handleTaskStatus(ctx, in)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func decodeArgs(args map[string]any, v any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	if err := json.Unmarshal(data, v); err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

func (s *Server) handleSearchFiles(ctx context.Context, in SearchFilesInput) (*search.Result, error) {
	if strings.TrimSpace(in.Selector) == "" {
		return nil, NewInvalidParamsError("selector parameter is required")
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, NewInvalidParamsError("text parameter is required")
	}
	if in.Start < 0 {
		return nil, NewInvalidParamsError("start must not be negative")
	}

	start := time.Now()
	requestID := generateRequestID()
	opts := finder.Options{
		Sort:      in.Sort,
		Highlight: search.Highlight{Enabled: in.Highlight},
		Start:     in.Start,
		Rows:      clampRows(in.Rows, search.DefaultRows, maxRows),
	}

	s.logger.Info("search_started",
		slog.String("request_id", requestID),
		slog.String("selector", in.Selector),
		slog.String("text", in.Text),
		slog.Int("rows", opts.Rows))

	result, err := s.finder.Find(ctx, in.Selector, in.Text, opts)
	if err != nil {
		s.logger.Error("search_failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	s.logger.Info("search_completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("hits", result.HitCount()))
	return result, nil
}

func (s *Server) handleIndexRecord(ctx context.Context, in IndexRecordInput) (IndexRecordOutput, error) {
	if in.RecordID <= 0 {
		return IndexRecordOutput{}, NewInvalidParamsError("record_id must be a positive record id")
	}

	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	if err := s.indexer.IndexRecordID(ctx, in.RecordID, index.RunOptions{Force: in.Force}); err != nil {
		return IndexRecordOutput{}, MapError(err)
	}
	if err := s.indexer.Commit(ctx); err != nil {
		return IndexRecordOutput{}, MapError(err)
	}

	s.logger.Info("record_indexed", slog.Int64("record_id", in.RecordID), slog.Bool("force", in.Force))
	return IndexRecordOutput{RecordID: in.RecordID, Committed: true}, nil
}

func (s *Server) handleIndexAll(ctx context.Context, in IndexAllInput) (IndexAllOutput, error) {
	action := in.Action
	if action == "" {
		action = s.config.Indexing.Action
	}
	switch action {
	case config.ActionIndexMissing, config.ActionIndexAll, config.ActionReset:
	default:
		return IndexAllOutput{}, NewInvalidParamsError(fmt.Sprintf("unknown action %q (want indexmissing, indexall, or reset)", action))
	}

	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	res, err := s.indexer.IndexAll(ctx, action)
	if err != nil {
		return IndexAllOutput{}, MapError(err)
	}
	if res.Inline && action != config.ActionReset {
		if err := s.indexer.Commit(ctx); err != nil {
			return IndexAllOutput{}, MapError(err)
		}
	}

	return IndexAllOutput{
		Action:  res.Action,
		Records: res.Records,
		Inline:  res.Inline,
		TaskID:  res.TaskID,
	}, nil
}

func (s *Server) handleTaskStatus(ctx context.Context, in TaskStatusInput) (TaskStatusOutput, error) {
	out := TaskStatusOutput{Tasks: []TaskOutput{}}
	if s.tasks == nil {
		if in.TaskID != "" {
			return out, NewInvalidParamsError("task scheduling is not enabled")
		}
		return out, nil
	}

	if in.TaskID != "" {
		t, err := s.tasks.Status(ctx, in.TaskID)
		if err != nil {
			return out, MapError(err)
		}
		out.Tasks = append(out.Tasks, ToTaskOutput(t))
		return out, nil
	}

	all, err := s.tasks.List(ctx)
	if err != nil {
		return out, MapError(err)
	}
	for _, t := range all {
		out.Tasks = append(out.Tasks, ToTaskOutput(t))
	}
	return out, nil
}

func (s *Server) registerTools() {
	s.logger.Debug("registering_tools")

	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpSearchFilesHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpIndexRecordHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpIndexAllHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[3].Name, Description: tools[3].Description}, s.mcpTaskStatusHandler)

	s.logger.Info("tools_registered", slog.Int("count", len(tools)))
}

// mcpSearchFilesHandler returns structured hits plus a markdown rendering.
func (s *Server) mcpSearchFilesHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchFilesInput) (
	*mcp.CallToolResult,
	SearchFilesOutput,
	error,
) {
	result, err := s.handleSearchFiles(ctx, input)
	if err != nil {
		return nil, SearchFilesOutput{}, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatSearchResults(input.Text, result)}},
	}, ToSearchFilesOutput(result), nil
}

func (s *Server) mcpIndexRecordHandler(ctx context.Context, _ *mcp.CallToolRequest, input IndexRecordInput) (
	*mcp.CallToolResult,
	IndexRecordOutput,
	error,
) {
	out, err := s.handleIndexRecord(ctx, input)
	return nil, out, err
}

func (s *Server) mcpIndexAllHandler(ctx context.Context, _ *mcp.CallToolRequest, input IndexAllInput) (
	*mcp.CallToolResult,
	IndexAllOutput,
	error,
) {
	out, err := s.handleIndexAll(ctx, input)
	return nil, out, err
}

func (s *Server) mcpTaskStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, input TaskStatusInput) (
	*mcp.CallToolResult,
	TaskStatusOutput,
	error,
) {
	out, err := s.handleTaskStatus(ctx, input)
	return nil, out, err
}

// Serve runs the server on the given transport until ctx is done.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("server_starting", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("server_stopped", slog.String("error", err.Error()))
		} else {
			s.logger.Info("server_stopped")
		}
		return err
	default:
		return fserrors.ConfigError(fmt.Sprintf("unknown transport: %s (supported: stdio)", transport), nil)
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
