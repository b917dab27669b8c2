package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeJobNotFound, "test error message")

	if err.Code != ErrCodeJobNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeJobNotFound, err.Code)
	}

	if err.Message != "test error message" {
		t.Errorf("expected message 'test error message', got '%s'", err.Message)
	}

	if err.Cause != nil {
		t.Errorf("expected nil cause, got %v", err.Cause)
	}
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := Wrap(ErrCodeJobReadFailed, "failed to read file", cause)

	if err.Code != ErrCodeJobReadFailed {
		t.Errorf("expected code %s, got %s", ErrCodeJobReadFailed, err.Code)
	}

	if !errors.Is(err, cause) {
		t.Errorf("Wrap should support errors.Is")
	}
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name    string
		err     *JobbookError
		want    []string
		notWant []string
	}{
		{
			name:    "simple error",
			err:     New(ErrCodeJobInvalid, "invalid job"),
			want:    []string{"[JOB-002]", "invalid job"},
			notWant: []string{"Suggestions:", "Documentation:"},
		},
		{
			name: "error with cause",
			err:  Wrap(ErrCodeJobReadFailed, "read failed", fmt.Errorf("permission denied")),
			want: []string{"[JOB-004] read failed: permission denied"},
		},
		{
			name: "error with suggestions and docs",
			err: New(ErrCodeGraphCycle, "cycle").
				WithSuggestions("one", "two").
				WithDocs("https://example.invalid/docs"),
			want: []string{"Suggestions:", "• one", "• two", "Documentation: https://example.invalid/docs"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("Error() = %q, want substring %q", got, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("Error() = %q, did not want substring %q", got, w)
				}
			}
		})
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeGraphCycle, "GRAPH"},
		{ErrCodeJobInvalid, "JOB"},
		{ErrorCode("BARE"), "BARE"},
	}
	for _, tt := range tests {
		if got := tt.code.Category(); got != tt.want {
			t.Errorf("%s.Category() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestGetCode(t *testing.T) {
	inner := NewCycleError(fmt.Errorf("a -> a"))
	wrapped := fmt.Errorf("validate: %w", inner)

	if got := GetCode(wrapped); got != ErrCodeGraphCycle {
		t.Errorf("GetCode() = %q, want %q", got, ErrCodeGraphCycle)
	}
	if !HasCategory(wrapped, "GRAPH") {
		t.Error("HasCategory(GRAPH) = false, want true")
	}
	if HasCategory(fmt.Errorf("plain"), "GRAPH") {
		t.Error("plain errors carry no category")
	}
	if GetCode(nil) != "" {
		t.Error("GetCode(nil) should be empty")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *JobbookError
		code ErrorCode
	}{
		{"not found", NewJobNotFoundError("job.yaml"), ErrCodeJobNotFound},
		{"invalid", NewJobInvalidError("no templates"), ErrCodeJobInvalid},
		{"unmarshal", NewJobUnmarshalError("job.yaml", fmt.Errorf("bad")), ErrCodeJobUnmarshal},
		{"entrypoint", NewUnknownEntrypointError("main", nil), ErrCodeGraphUnknownEntrypoint},
		{"template", NewUnknownTemplateError("b", "a", nil), ErrCodeGraphUnknownTemplate},
		{"cycle", NewCycleError(nil), ErrCodeGraphCycle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("code = %s, want %s", tt.err.Code, tt.code)
			}
			if len(tt.err.Suggestions) == 0 {
				t.Error("expected at least one suggestion")
			}
		})
	}
}
