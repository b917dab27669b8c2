package cmd

import (
	"errors"
	"fmt"

	jerrors "github.com/felixgeelhaar/jobbook/internal/errors"
)

func usageError(msg string) error {
	return jerrors.New(jerrors.ErrCodeCLIUsage, msg).
		WithSuggestion("Run 'jobbook --help' for usage")
}

func configError(err error) error {
	var coded *jerrors.JobbookError
	if errors.As(err, &coded) {
		return err
	}
	return jerrors.Wrap(jerrors.ErrCodeCLIConfig, "invalid settings", err).
		WithSuggestion("Check --config, JOBBOOK_* environment variables and flag values")
}

// jobFailedError reports a settled run whose phase is not succeeded. The
// report has already been printed.
func jobFailedError(name string, failed int) error {
	return jerrors.New(jerrors.ErrCodeRunFailed, fmt.Sprintf("job %s failed: %d task(s) failed", name, failed))
}

func nothingRanError(name string) error {
	return jerrors.New(jerrors.ErrCodeRunNothingRan, fmt.Sprintf("job %s ran no tasks", name)).
		WithSuggestion("Check --tag and --exclude; every task was filtered out or skipped")
}

// IsReported reports whether err describes a run outcome that was already
// printed as a report, so callers only need the exit code.
func IsReported(err error) bool {
	return jerrors.HasCategory(err, "RUN")
}
