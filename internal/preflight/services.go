package preflight

import (
	"context"
	"fmt"
	"time"

	"github.com/Aman-CERP/filesearch/internal/record"
	"github.com/Aman-CERP/filesearch/internal/task"
)

// backendPingTimeout bounds the backend check.
const backendPingTimeout = 5 * time.Second

// withAttachments selects records owning at least one attachment.
var withAttachments = record.MustParseSelector("files>0")

// CheckTools checks the conversion tools the current settings need.
func (c *Checker) CheckTools() CheckResult {
	result := CheckResult{
		Name:     "tools",
		Required: true,
	}

	if err := c.cfg.CheckTools(); err != nil {
		result.Status = StatusFail
		result.Message = "required conversion tools are unavailable"
		result.Details = err.Error()
		return result
	}

	result.Status = StatusPass
	switch {
	case c.cfg.Indexing.IndexPages:
		result.Message = fmt.Sprintf("OK (pdfseparate: %s)", c.cfg.Tools.PDFSeparate)
	default:
		result.Message = "OK (page indexing off)"
	}
	return result
}

// CheckBackend pings the search backend.
func (c *Checker) CheckBackend(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:     "backend",
		Required: true,
	}

	if c.pinger == nil {
		result.Status = StatusWarn
		result.Message = "skipped (no backend configured for the check)"
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, backendPingTimeout)
	defer cancel()

	if err := c.pinger.Ping(ctx); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s unreachable", c.cfg.Backend.Engine)
		result.Details = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s reachable", c.cfg.Backend.Engine)
	return result
}

// CheckRecordsRoot checks that the records root can be read and counts the
// records with attachments.
func (c *Checker) CheckRecordsRoot(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:     "records",
		Required: true,
	}

	store, err := record.NewFSStore(c.cfg.Records.Root, c.cfg.Fields.FileField)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("records root %s is unusable", c.cfg.Records.Root)
		result.Details = err.Error()
		return result
	}

	ids, err := store.FindIDs(ctx, withAttachments)
	if err != nil {
		result.Status = StatusFail
		result.Message = "records could not be listed"
		result.Details = err.Error()
		return result
	}

	if len(ids) == 0 {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("no records with %s attachments under %s", c.cfg.Fields.FileField, store.Root())
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d records with attachments", len(ids))
	return result
}

// CheckTaskStore opens the task database and counts unfinished tasks.
// Task scheduling is optional, so failures only warn.
func (c *Checker) CheckTaskStore(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:     "task_store",
		Required: false,
	}

	store, err := task.OpenSQLiteStore(c.cfg.TaskDBPath())
	if err != nil {
		result.Status = StatusFail
		result.Message = "task database cannot be opened"
		result.Details = err.Error()
		return result
	}
	defer func() { _ = store.Close() }()

	pending, err := store.List(ctx, task.StateActive, task.StateRunning)
	if err != nil {
		result.Status = StatusFail
		result.Message = "task database cannot be read"
		result.Details = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("OK (%d unfinished tasks)", len(pending))
	if len(pending) > 0 {
		result.Status = StatusWarn
		result.Details = "Run 'filesearch task run' to finish them"
	}
	return result
}
