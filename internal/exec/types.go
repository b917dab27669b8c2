package exec

import (
	"io"
	"time"

	"github.com/felixgeelhaar/jobbook/internal/status"
)

// OutputMode selects what happens to a script's stdout.
type OutputMode int

const (
	// Capture buffers stdout into ExitInfo.Stdout.
	Capture OutputMode = iota
	// Inherit forwards stdout to Step.Stdout in real time, unmodified.
	Inherit
)

func (m OutputMode) String() string {
	if m == Inherit {
		return "inherit"
	}
	return "capture"
}

// Step represents one script invocation
type Step struct {
	ID           string
	Script       string
	Executor     string
	ExecutorArgs []string
	WorkingDir   string
	Env          map[string]string

	Output OutputMode
	// Stdout receives live output when Output is Inherit. Nil means os.Stdout.
	Stdout io.Writer
}

// ExitInfo is the outcome of running a Step. Phase is always terminal.
type ExitInfo struct {
	Phase status.Phase `json:"phase" yaml:"phase"`
	// ExitCode is nil when the process never started or died from a signal.
	ExitCode *int   `json:"exit_code,omitempty" yaml:"exit_code,omitempty"`
	Signal   string `json:"signal,omitempty" yaml:"signal,omitempty"`
	Stdout   string `json:"stdout,omitempty" yaml:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty" yaml:"stderr,omitempty"`
	// Reason explains a Failed phase: captured stderr, or the set-up error
	// when the process could not be spawned.
	Reason string `json:"failed_reason,omitempty" yaml:"failed_reason,omitempty"`

	Command   []string      `json:"command,omitempty" yaml:"command,omitempty"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}
