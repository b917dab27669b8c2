package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Job file errors (JOB-001 to JOB-099)
	ErrCodeJobNotFound   ErrorCode = "JOB-001"
	ErrCodeJobInvalid    ErrorCode = "JOB-002"
	ErrCodeJobUnmarshal  ErrorCode = "JOB-003"
	ErrCodeJobReadFailed ErrorCode = "JOB-004"

	// Template graph errors (GRAPH-001 to GRAPH-099)
	ErrCodeGraphUnknownEntrypoint ErrorCode = "GRAPH-001"
	ErrCodeGraphUnknownTemplate   ErrorCode = "GRAPH-002"
	ErrCodeGraphCycle             ErrorCode = "GRAPH-003"

	// Task execution errors (EXEC-001 to EXEC-099)
	ErrCodeExecScratch ErrorCode = "EXEC-001"
	ErrCodeExecSpawn   ErrorCode = "EXEC-002"
	ErrCodeExecWait    ErrorCode = "EXEC-003"

	// Run outcome errors (RUN-001 to RUN-099)
	ErrCodeRunFailed     ErrorCode = "RUN-001"
	ErrCodeRunNothingRan ErrorCode = "RUN-002"

	// CLI errors (CLI-001 to CLI-099)
	ErrCodeCLIUsage  ErrorCode = "CLI-001"
	ErrCodeCLIConfig ErrorCode = "CLI-002"
)

// Category returns the prefix of the code, e.g. "GRAPH" for "GRAPH-003".
func (c ErrorCode) Category() string {
	if i := strings.IndexByte(string(c), '-'); i > 0 {
		return string(c[:i])
	}
	return string(c)
}

// JobbookError represents an enhanced error with code, suggestions, and documentation
type JobbookError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *JobbookError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)

	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			fmt.Fprintf(&b, "\n  • %s", suggestion)
		}
	}

	if e.DocsURL != "" {
		fmt.Fprintf(&b, "\n\nDocumentation: %s", e.DocsURL)
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *JobbookError) Unwrap() error {
	return e.Cause
}

// New creates a new JobbookError
func New(code ErrorCode, message string) *JobbookError {
	return &JobbookError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new JobbookError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *JobbookError {
	return &JobbookError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *JobbookError) WithSuggestion(suggestion string) *JobbookError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *JobbookError) WithSuggestions(suggestions ...string) *JobbookError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *JobbookError) WithDocs(url string) *JobbookError {
	e.DocsURL = url
	return e
}

// GetCode returns the code of the first JobbookError in err's chain, or "".
func GetCode(err error) ErrorCode {
	var je *JobbookError
	if errors.As(err, &je) {
		return je.Code
	}
	return ""
}

// HasCategory reports whether err carries a code in the given category.
func HasCategory(err error, category string) bool {
	code := GetCode(err)
	return code != "" && code.Category() == category
}

// Common error constructors for frequently used errors

// NewJobNotFoundError creates a job file not found error
func NewJobNotFoundError(path string) *JobbookError {
	return New(ErrCodeJobNotFound, fmt.Sprintf("job file not found: %s", path)).
		WithSuggestion("Check if the file path is correct").
		WithSuggestion("Pass the job file as the first argument, e.g. 'jobbook run job.yaml'")
}

// NewJobInvalidError creates a job validation error
func NewJobInvalidError(details string) *JobbookError {
	return New(ErrCodeJobInvalid, fmt.Sprintf("invalid job: %s", details)).
		WithSuggestion("Run 'jobbook validate <file>' to see validation errors").
		WithDocs("https://github.com/felixgeelhaar/jobbook#job-files")
}

// NewJobUnmarshalError creates a job parse error
func NewJobUnmarshalError(path string, cause error) *JobbookError {
	return Wrap(ErrCodeJobUnmarshal, fmt.Sprintf("failed to parse job file: %s", path), cause).
		WithSuggestion("Check the file syntax and format").
		WithSuggestion("Each task needs exactly one of 'script' or 'template'")
}

// NewUnknownEntrypointError creates an unknown entrypoint error
func NewUnknownEntrypointError(name string, cause error) *JobbookError {
	return Wrap(ErrCodeGraphUnknownEntrypoint, fmt.Sprintf("entrypoint %q is not a template", name), cause).
		WithSuggestion("Run 'jobbook templates <file>' to list the available templates")
}

// NewUnknownTemplateError creates an unknown template reference error
func NewUnknownTemplateError(name, from string, cause error) *JobbookError {
	return Wrap(ErrCodeGraphUnknownTemplate, fmt.Sprintf("template %q references unknown template %q", from, name), cause).
		WithSuggestion("Check the spelling of the 'template' field")
}

// NewCycleError creates a template reference cycle error
func NewCycleError(cause error) *JobbookError {
	return Wrap(ErrCodeGraphCycle, "template reference cycle", cause).
		WithSuggestion("Break the loop by moving the shared tasks into a template that references neither side")
}
