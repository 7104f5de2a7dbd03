package errors

import (
	stderrors "errors"
	"fmt"
)

// FSError is the structured error type for filesearch.
// It provides rich context for error handling, logging, and user presentation.
type FSError struct {
	// Code is the unique error code (e.g., "ERR_201_TOOL_FAILED").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Tool, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates the failure is likely transient.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// ErrAlreadyIndexed matches any AlreadyIndexed error through errors.Is.
var ErrAlreadyIndexed = &FSError{Code: ErrCodeAlreadyIndexed}

// Error implements the error interface.
func (e *FSError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *FSError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with FSError.
func (e *FSError) Is(target error) bool {
	if t, ok := target.(*FSError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *FSError) WithDetail(key, value string) *FSError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *FSError) WithSuggestion(suggestion string) *FSError {
	e.Suggestion = suggestion
	return e
}

// New creates a new FSError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *FSError {
	return &FSError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an FSError from an existing error.
// The error's message becomes the FSError message.
func Wrap(code string, err error) *FSError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration error. Configuration errors are fatal.
func ConfigError(message string, cause error) *FSError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ToolExecutionError reports an external tool that exited unsuccessfully.
// The captured tool output is kept in the "output" detail.
func ToolExecutionError(tool string, output string, cause error) *FSError {
	return New(ErrCodeToolFailed, fmt.Sprintf("%s failed", tool), cause).
		WithDetail("tool", tool).
		WithDetail("output", output)
}

// NetworkError creates a backend connectivity error.
func NetworkError(message string, cause error) *FSError {
	return New(ErrCodeBackendUnavailable, message, cause)
}

// StatusError reports a backend reply with an unexpected HTTP status.
func StatusError(status int, body string) *FSError {
	return New(ErrCodeBackendStatus, fmt.Sprintf("backend returned status %d", status), nil).
		WithDetail("status", fmt.Sprint(status)).
		WithDetail("body", body)
}

// ParseError reports a malformed backend response.
func ParseError(message string, cause error) *FSError {
	return New(ErrCodeBackendResponse, message, cause)
}

// InvalidQueryError reports a query rejected before reaching the backend.
func InvalidQueryError(message string) *FSError {
	return New(ErrCodeInvalidQuery, message, nil)
}

// NoCandidatesError reports a record selector that matched nothing.
func NoCandidatesError(selector string) *FSError {
	return New(ErrCodeNoCandidates, fmt.Sprintf("selector %q matched no records", selector), nil).
		WithDetail("selector", selector)
}

// ValidationError creates an input validation error.
func ValidationError(message string, cause error) *FSError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *FSError {
	return New(ErrCodeInternal, message, cause)
}

// AlreadyIndexed reports that a unit is verifiably present in the backend.
// It is a successful no-op; see IsSkip.
func AlreadyIndexed(key string) *FSError {
	return New(ErrCodeAlreadyIndexed, fmt.Sprintf("%s is already indexed", key), nil).
		WithDetail("key", key)
}

// as finds the first FSError in err's chain.
func as(err error) (*FSError, bool) {
	var fe *FSError
	if err == nil || !stderrors.As(err, &fe) {
		return nil, false
	}
	return fe, true
}

// IsRetryable checks if an error is likely transient.
func IsRetryable(err error) bool {
	if fe, ok := as(err); ok {
		return fe.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if fe, ok := as(err); ok {
		return fe.Severity == SeverityFatal
	}
	return false
}

// IsSkip reports whether err is a no-op that should be treated as success.
func IsSkip(err error) bool {
	if fe, ok := as(err); ok {
		return fe.Category == CategorySkip
	}
	return false
}

// GetCode extracts the error code from an FSError.
// Returns empty string if not an FSError.
func GetCode(err error) string {
	if fe, ok := as(err); ok {
		return fe.Code
	}
	return ""
}

// GetCategory extracts the category from an FSError.
// Returns empty string if not an FSError.
func GetCategory(err error) Category {
	if fe, ok := as(err); ok {
		return fe.Category
	}
	return ""
}
