// Package errors provides structured error handling for filesearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: External tool and file errors
//   - 3XX: Search backend errors
//   - 4XX: Query and input validation errors
//   - 5XX: Internal errors
//
// The 6XX range is reserved for outcomes that are reported through the error
// channel but mean success, such as skipping a unit that is already indexed.
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryTool indicates external tool and file errors.
	CategoryTool Category = "TOOL"
	// CategoryNetwork indicates search backend errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates query and input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
	// CategorySkip indicates a no-op that callers treat as success.
	CategorySkip Category = "SKIP"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid  = "ERR_101_CONFIG_INVALID"
	ErrCodeToolMissing    = "ERR_102_TOOL_MISSING"
	ErrCodeBackendUnknown = "ERR_103_BACKEND_UNKNOWN"
	ErrCodeConfigNotFound = "ERR_104_CONFIG_NOT_FOUND"

	// Tool and file errors (200-299)
	ErrCodeToolFailed     = "ERR_201_TOOL_FAILED"
	ErrCodeFileNotFound   = "ERR_202_FILE_NOT_FOUND"
	ErrCodeRecordNotFound = "ERR_203_RECORD_NOT_FOUND"
	ErrCodeScratchDir     = "ERR_204_SCRATCH_DIR"

	// Backend errors (300-399)
	ErrCodeBackendUnavailable = "ERR_301_BACKEND_UNAVAILABLE"
	ErrCodeBackendStatus      = "ERR_302_BACKEND_STATUS"
	ErrCodeBackendResponse    = "ERR_303_BACKEND_RESPONSE"

	// Validation errors (400-499)
	ErrCodeInvalidQuery    = "ERR_401_INVALID_QUERY"
	ErrCodeNoCandidates    = "ERR_402_NO_CANDIDATES"
	ErrCodeInvalidSelector = "ERR_403_INVALID_SELECTOR"
	ErrCodeInvalidInput    = "ERR_404_INVALID_INPUT"

	// Internal errors (500-599)
	ErrCodeInternal    = "ERR_501_INTERNAL"
	ErrCodeIndexFailed = "ERR_502_INDEX_FAILED"
	ErrCodeTaskFailed  = "ERR_503_TASK_FAILED"

	// Skips (600-699)
	ErrCodeAlreadyIndexed = "SKIP_601_ALREADY_INDEXED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	i := 0
	for i < len(code) && code[i] != '_' {
		i++
	}
	if i+1 >= len(code) {
		return CategoryInternal
	}

	// First digit after the prefix, e.g. "1" from "ERR_101_CONFIG_INVALID"
	switch code[i+1] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryTool
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	case '6':
		return CategorySkip
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryConfig:
		return SeverityFatal
	case CategorySkip:
		return SeverityInfo
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a transient failure.
// Nothing in filesearch retries automatically; the flag is surfaced to
// callers and logs so an operator can decide.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeBackendUnavailable, ErrCodeBackendStatus:
		return true
	default:
		return false
	}
}
