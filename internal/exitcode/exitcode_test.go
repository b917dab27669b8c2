package exitcode

import (
	"context"
	"errors"
	"fmt"
	"testing"

	jerrors "github.com/felixgeelhaar/jobbook/internal/errors"
	"github.com/felixgeelhaar/jobbook/internal/status"
)

func TestForPhase(t *testing.T) {
	tests := []struct {
		phase status.Phase
		want  int
	}{
		{status.Succeeded, Success},
		{status.Failed, JobFailed},
		{status.Skipped, NothingRan},
		{status.Running, JobFailed},
	}
	for _, tt := range tests {
		if got := ForPhase(tt.phase); got != tt.want {
			t.Errorf("ForPhase(%s) = %d, want %d", tt.phase, got, tt.want)
		}
	}
}

func TestDetermineExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error returns success", nil, Success},
		{"canceled", fmt.Errorf("run: %w", context.Canceled), Interrupted},
		{"job failed", jerrors.New(jerrors.ErrCodeRunFailed, "2 tasks failed"), JobFailed},
		{"nothing ran", jerrors.New(jerrors.ErrCodeRunNothingRan, "all skipped"), NothingRan},
		{"usage code", jerrors.New(jerrors.ErrCodeCLIUsage, "bad"), UsageError},
		{"cli config", jerrors.New(jerrors.ErrCodeCLIConfig, "bad config"), ConfigError},
		{"job invalid", jerrors.NewJobInvalidError("x"), ConfigError},
		{"cycle wrapped", fmt.Errorf("validate: %w", jerrors.NewCycleError(errors.New("a -> a"))), ConfigError},
		{"unknown flag", errors.New("unknown flag: --bogus"), UsageError},
		{"arg count", errors.New("accepts 1 arg(s), received 0"), UsageError},
		{"anything else", errors.New("disk full"), JobFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetermineExitCode(tt.err); got != tt.want {
				t.Errorf("DetermineExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestGetExitCodeDescription(t *testing.T) {
	for _, code := range []int{Success, JobFailed, UsageError, ConfigError, NothingRan, Interrupted} {
		if GetExitCodeDescription(code) == "Unknown error" {
			t.Errorf("code %d has no description", code)
		}
	}
	if GetExitCodeDescription(42) != "Unknown error" {
		t.Error("unexpected description for 42")
	}
}
