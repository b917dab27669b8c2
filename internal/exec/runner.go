// Package exec runs script tasks as local processes.
package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	osexec "os/exec"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	jerrors "github.com/felixgeelhaar/jobbook/internal/errors"
	"github.com/felixgeelhaar/jobbook/internal/log"
	"github.com/felixgeelhaar/jobbook/internal/status"
)

// scriptFile is the name of the materialized script inside its scratch dir.
const scriptFile = "script"

// Runner executes steps. The zero value is usable.
type Runner struct {
	// TempDir is the parent of per-invocation scratch directories.
	// Empty means os.TempDir().
	TempDir string
	// WaitDelay bounds how long a canceled process may take to exit after
	// being interrupted before it is killed, and how long output is still
	// read after the script exits.
	WaitDelay time.Duration

	logger *log.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithTempDir sets the scratch parent directory.
func WithTempDir(dir string) Option {
	return func(r *Runner) { r.TempDir = dir }
}

// WithLogger sets the logger used for spawn diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{WaitDelay: 5 * time.Second}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run writes the script to a private scratch directory, runs
// `executor args... <scriptfile>` from the working directory and waits for
// it to exit. It never returns an error: every failure, including set-up
// failures, is a Failed ExitInfo. The scratch directory is removed on every
// path.
func (r *Runner) Run(ctx context.Context, step Step) *ExitInfo {
	info := &ExitInfo{StartedAt: time.Now()}
	defer func() { info.Duration = time.Since(info.StartedAt) }()

	dir, err := os.MkdirTemp(r.TempDir, "jobbook-*")
	if err != nil {
		return info.fail(jerrors.Wrap(jerrors.ErrCodeExecScratch, "create scratch directory", err))
	}
	defer os.RemoveAll(dir)

	// The process runs from WorkingDir, so a relative TempDir must not leak
	// into the script path.
	path, err := filepath.Abs(filepath.Join(dir, scriptFile))
	if err != nil {
		return info.fail(jerrors.Wrap(jerrors.ErrCodeExecScratch, "resolve script path", err))
	}
	if err := os.WriteFile(path, []byte(step.Script), 0o700); err != nil {
		return info.fail(jerrors.Wrap(jerrors.ErrCodeExecScratch, "write script file", err))
	}

	executor := step.Executor
	if executor == "" {
		executor = "bash"
	}
	args := append(slices.Clone(step.ExecutorArgs), path)
	info.Command = append([]string{executor}, args...)

	cmd := osexec.CommandContext(ctx, executor, args...)
	cmd.Dir = step.WorkingDir
	cmd.Env = environ(step.Env)
	isolate(cmd)
	cmd.WaitDelay = r.WaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stderr = &stderr
	if step.Output == Inherit {
		cmd.Stdout = step.Stdout
		if cmd.Stdout == nil {
			cmd.Stdout = os.Stdout
		}
	} else {
		cmd.Stdout = &stdout
	}

	if err := cmd.Start(); err != nil {
		r.debug("spawn failed", "step", step.ID, "executor", executor, "error", err)
		return info.fail(jerrors.Wrap(jerrors.ErrCodeExecSpawn, "start "+executor, err))
	}
	r.debug("process started", "step", step.ID, "pid", cmd.Process.Pid, "dir", cmd.Dir)

	waitErr := cmd.Wait()
	info.Stdout = stdout.String()
	info.Stderr = stderr.String()

	var exitErr *osexec.ExitError
	switch {
	case waitErr == nil:
		code := 0
		info.ExitCode = &code
		info.Phase = status.Succeeded
	case errors.As(waitErr, &exitErr):
		info.Phase = status.Failed
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			info.Signal = ws.Signal().String()
		} else {
			code := exitErr.ExitCode()
			info.ExitCode = &code
		}
		info.Reason = info.Stderr
		if strings.TrimSpace(info.Reason) == "" {
			info.Reason = exitErr.String()
		}
	case errors.Is(waitErr, osexec.ErrWaitDelay) && cmd.ProcessState != nil && cmd.ProcessState.Success():
		// A background child still holds an output pipe. The script itself
		// exited 0; whatever was written before the pipes closed is kept.
		r.debug("output pipe left open by a child process", "step", step.ID, "wait_delay", r.WaitDelay)
		code := 0
		info.ExitCode = &code
		info.Phase = status.Succeeded
	default:
		// Output copying failed; the exit status may be unknown.
		info.Phase = status.Failed
		info.Reason = jerrors.Wrap(jerrors.ErrCodeExecWait, "wait for "+executor, waitErr).Error()
		if cmd.ProcessState != nil && cmd.ProcessState.Exited() {
			code := cmd.ProcessState.ExitCode()
			info.ExitCode = &code
		}
	}

	r.debug("process exited", "step", step.ID, "phase", info.Phase, "signal", info.Signal)
	return info
}

func (info *ExitInfo) fail(err *jerrors.JobbookError) *ExitInfo {
	info.Phase = status.Failed
	info.Reason = fmt.Sprintf("[%s] %s: %v", err.Code, err.Message, err.Cause)
	return info
}

func (r *Runner) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

// environ returns the engine's environment plus extra, sorted by key so the
// child sees a stable order.
func environ(extra map[string]string) []string {
	env := os.Environ()
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}
