package exitcode

import (
	"context"
	"errors"
	"os"
	"strings"

	jerrors "github.com/felixgeelhaar/jobbook/internal/errors"
	"github.com/felixgeelhaar/jobbook/internal/status"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success means the job phase was succeeded.
	Success = 0

	// JobFailed means at least one task failed.
	JobFailed = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// ConfigError means the job file or its template graph was rejected
	// before anything ran.
	ConfigError = 3

	// NothingRan means every task was skipped.
	NothingRan = 4

	// Interrupted means the run was canceled by a signal.
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	Exit(DetermineExitCode(err))
}

// ForPhase maps a job phase to an exit code. Only succeeded is success.
func ForPhase(p status.Phase) int {
	switch p {
	case status.Succeeded:
		return Success
	case status.Skipped:
		return NothingRan
	default:
		return JobFailed
	}
}

// DetermineExitCode analyzes an error and returns the appropriate exit code
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}
	if errors.Is(err, context.Canceled) {
		return Interrupted
	}

	switch code := jerrors.GetCode(err); {
	case code == jerrors.ErrCodeRunFailed:
		return JobFailed
	case code == jerrors.ErrCodeRunNothingRan:
		return NothingRan
	case code == jerrors.ErrCodeCLIUsage:
		return UsageError
	case code == jerrors.ErrCodeCLIConfig:
		return ConfigError
	case code.Category() == "JOB", code.Category() == "GRAPH":
		return ConfigError
	}

	// cobra reports argument problems as plain errors
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"unknown command", "unknown flag", "unknown shorthand flag", "invalid argument", "accepts ", "requires at least", "required flag"} {
		if strings.Contains(msg, marker) {
			return UsageError
		}
	}

	return JobFailed
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case JobFailed:
		return "Job failed"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case ConfigError:
		return "Configuration error (job file or template graph)"
	case NothingRan:
		return "Nothing ran (every task was skipped)"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
