// Package mcp exposes search, indexing, and task inspection over the Model
// Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"

	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
)

// Custom MCP error codes for filesearch.
const (
	// ErrCodeBackendUnavailable indicates the search backend could not be reached.
	ErrCodeBackendUnavailable = -32001

	// ErrCodeNoCandidates indicates a selector matched no records.
	ErrCodeNoCandidates = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeNotFound indicates a record, attachment, or task does not exist.
	ErrCodeNotFound = -32004

	// ErrCodeToolFailed indicates an external conversion tool failed.
	ErrCodeToolFailed = -32005

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Sentinel errors for internal use.
var (
	// ErrToolNotFound indicates the requested tool does not exist.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("invalid parameters")

	// ErrResourceNotFound indicates the requested resource does not exist.
	ErrResourceNotFound = errors.New("resource not found")
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var fsErr *fserrors.FSError
	if errors.As(err, &fsErr) {
		return mapFSError(fsErr)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Tool not found."}
	case errors.Is(err, ErrInvalidParams):
		return &MCPError{Code: ErrCodeInvalidParams, Message: "Invalid parameters."}
	case errors.Is(err, ErrResourceNotFound):
		return &MCPError{Code: ErrCodeNotFound, Message: "Resource not found."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// NewResourceNotFoundError creates an error for unknown resources.
func NewResourceNotFoundError(uri string) *MCPError {
	return &MCPError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("Resource '%s' not found.", uri),
	}
}

func mapFSError(fe *fserrors.FSError) *MCPError {
	message := fe.Message
	if fe.Suggestion != "" {
		message = fmt.Sprintf("%s %s", fe.Message, fe.Suggestion)
	}

	switch fe.Category {
	case fserrors.CategoryNetwork:
		if fe.Code == fserrors.ErrCodeBackendResponse {
			return &MCPError{Code: ErrCodeInternalError, Message: message}
		}
		return &MCPError{Code: ErrCodeBackendUnavailable, Message: message}
	case fserrors.CategoryTool:
		switch fe.Code {
		case fserrors.ErrCodeFileNotFound, fserrors.ErrCodeRecordNotFound:
			return &MCPError{Code: ErrCodeNotFound, Message: message}
		default:
			return &MCPError{Code: ErrCodeToolFailed, Message: message}
		}
	case fserrors.CategoryValidation:
		if fe.Code == fserrors.ErrCodeNoCandidates {
			return &MCPError{Code: ErrCodeNoCandidates, Message: message}
		}
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default: // config, internal, and unknown
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
