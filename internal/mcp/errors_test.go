package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fserrors "github.com/Aman-CERP/filesearch/internal/errors"
)

func TestMapError_NilError(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError_ContextErrors(t *testing.T) {
	result := MapError(context.DeadlineExceeded)
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeTimeout, result.Code)
	assert.Contains(t, result.Message, "timed out")

	result = MapError(fmt.Errorf("query: %w", context.Canceled))
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeTimeout, result.Code)
	assert.Contains(t, result.Message, "canceled")
}

func TestMapError_Sentinels(t *testing.T) {
	assert.Equal(t, ErrCodeMethodNotFound, MapError(ErrToolNotFound).Code)
	assert.Equal(t, ErrCodeInvalidParams, MapError(ErrInvalidParams).Code)
	assert.Equal(t, ErrCodeNotFound, MapError(ErrResourceNotFound).Code)
}

func TestMapError_UnknownIsInternal(t *testing.T) {
	result := MapError(errors.New("something odd"))

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInternalError, result.Code)
	assert.NotContains(t, result.Message, "something odd")
}

func TestMapError_PassesMCPErrorThrough(t *testing.T) {
	orig := NewInvalidParamsError("record_id must be positive")

	result := MapError(fmt.Errorf("wrapped: %w", orig))

	assert.Same(t, orig, result)
}

func TestMapError_FSError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"backend down", fserrors.NetworkError("connection refused", nil), ErrCodeBackendUnavailable},
		{"backend status", fserrors.StatusError(503, "busy"), ErrCodeBackendUnavailable},
		{"bad response", fserrors.ParseError("not json", nil), ErrCodeInternalError},
		{"tool failed", fserrors.ToolExecutionError("pdfseparate", "boom", nil), ErrCodeToolFailed},
		{"record missing", fserrors.New(fserrors.ErrCodeRecordNotFound, "record 9 not found", nil), ErrCodeNotFound},
		{"empty query", fserrors.InvalidQueryError("query text is empty"), ErrCodeInvalidParams},
		{"no candidates", fserrors.NoCandidatesError("template=report"), ErrCodeNoCandidates},
		{"config", fserrors.ConfigError("bad engine", nil), ErrCodeInternalError},
		{"internal", fserrors.InternalError("oops", nil), ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MapError(fmt.Errorf("context: %w", tt.err))
			require.NotNil(t, result)
			assert.Equal(t, tt.code, result.Code)
		})
	}
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	err := fserrors.NetworkError("solr unreachable", nil).WithSuggestion("Start Solr or switch to the bleve engine.")

	result := MapError(err)

	assert.Equal(t, "solr unreachable Start Solr or switch to the bleve engine.", result.Message)
}

func TestMCPError_Error(t *testing.T) {
	err := &MCPError{Code: ErrCodeInvalidParams, Message: "bad"}
	assert.Equal(t, "MCP error -32602: bad", err.Error())
}

func TestNewErrors(t *testing.T) {
	assert.Equal(t, ErrCodeMethodNotFound, NewMethodNotFoundError("nope").Code)
	assert.Contains(t, NewMethodNotFoundError("nope").Message, "'nope'")
	assert.Equal(t, ErrCodeNotFound, NewResourceNotFoundError("filesearch://tasks/x").Code)
}
