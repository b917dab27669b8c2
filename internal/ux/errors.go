package ux

import (
	"errors"
	"fmt"
	"io"
	"strings"

	jerrors "github.com/felixgeelhaar/jobbook/internal/errors"
	"github.com/felixgeelhaar/jobbook/internal/job"
)

// ErrorWithSuggestion wraps an error with helpful recovery suggestions
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\n💡 Suggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap provides access to the underlying error
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// NewErrorWithSuggestion creates a new error with a suggestion
func NewErrorWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// EnhanceError adds a suggestion to uncoded errors whose message matches a
// known problem. Coded errors carry their own suggestions and pass through.
func EnhanceError(err error) error {
	if err == nil {
		return nil
	}
	var coded *jerrors.JobbookError
	if errors.As(err, &coded) {
		return err
	}

	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "executable file not found"):
		return NewErrorWithSuggestion(err,
			"Install the interpreter or point the task's executor at an absolute path; 'jobbook doctor JOB.yaml' lists what is missing")
	case strings.Contains(errMsg, "permission denied"):
		return NewErrorWithSuggestion(err,
			"Check file permissions and ensure you have access to the required files/directories")
	case strings.Contains(errMsg, "unknown format"):
		return NewErrorWithSuggestion(err, "Use one of: "+strings.Join(Formats, ", "))
	}
	return err
}

// PrintError writes err for a human: code and message, then the problems of
// an invalid job, then suggestions.
func PrintError(w io.Writer, err error, s Styles) {
	if err == nil {
		return
	}
	err = EnhanceError(err)

	var coded *jerrors.JobbookError
	if !errors.As(err, &coded) {
		fmt.Fprintf(w, "%s %v\n", s.Failure.Render("Error:"), err)
		return
	}

	fmt.Fprintf(w, "%s %s\n", s.Failure.Render("Error ["+string(coded.Code)+"]:"), coded.Message)

	var invalid *job.ValidationError
	if errors.As(err, &invalid) {
		for _, p := range invalid.Problems {
			fmt.Fprintf(w, "  - %s\n", p)
		}
	} else if coded.Cause != nil {
		fmt.Fprintf(w, "  %s\n", coded.Cause)
	}

	for _, sug := range coded.Suggestions {
		fmt.Fprintf(w, "%s %s\n", s.Muted.Render("💡"), sug)
	}
	if coded.DocsURL != "" {
		fmt.Fprintf(w, "%s %s\n", s.Muted.Render("📖"), coded.DocsURL)
	}
}
