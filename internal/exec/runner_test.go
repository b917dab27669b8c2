package exec

import (
	"bytes"
	"context"
	"os"
	osexec "os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/jobbook/internal/status"
)

func requireBash(t *testing.T) {
	t.Helper()
	if _, err := osexec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}
}

func newTestRunner(t *testing.T) (*Runner, string) {
	t.Helper()
	scratch := t.TempDir()
	r := NewRunner(WithTempDir(scratch))
	r.WaitDelay = time.Second
	return r, scratch
}

func assertScratchClean(t *testing.T, scratch string) {
	t.Helper()
	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch directories must be removed")
}

func TestRunCapturesStdout(t *testing.T) {
	requireBash(t)
	r, scratch := newTestRunner(t)

	info := r.Run(context.Background(), Step{Script: "echo hello", Executor: "bash", WorkingDir: "."})

	assert.Equal(t, status.Succeeded, info.Phase)
	assert.Equal(t, "hello\n", info.Stdout)
	require.NotNil(t, info.ExitCode)
	assert.Equal(t, 0, *info.ExitCode)
	assert.Empty(t, info.Reason)
	assert.Equal(t, "bash", info.Command[0])
	assertScratchClean(t, scratch)
}

func TestRunDefaultsToBash(t *testing.T) {
	requireBash(t)
	r, _ := newTestRunner(t)

	info := r.Run(context.Background(), Step{Script: `echo "$BASH_VERSION" | head -c 1`})
	assert.Equal(t, status.Succeeded, info.Phase)
	assert.NotEmpty(t, info.Stdout)
}

func TestRunNonZeroExit(t *testing.T) {
	requireBash(t)
	r, scratch := newTestRunner(t)

	info := r.Run(context.Background(), Step{Script: "echo boom >&2\nexit 3", Executor: "bash"})

	assert.Equal(t, status.Failed, info.Phase)
	require.NotNil(t, info.ExitCode)
	assert.Equal(t, 3, *info.ExitCode)
	assert.Equal(t, "boom\n", info.Stderr)
	assert.Equal(t, "boom\n", info.Reason)
	assertScratchClean(t, scratch)
}

func TestRunNonZeroExitWithoutStderr(t *testing.T) {
	requireBash(t)
	r, _ := newTestRunner(t)

	info := r.Run(context.Background(), Step{Script: "exit 1", Executor: "bash"})

	assert.Equal(t, status.Failed, info.Phase)
	assert.Equal(t, "exit status 1", info.Reason)
}

func TestRunSignal(t *testing.T) {
	requireBash(t)
	r, _ := newTestRunner(t)

	info := r.Run(context.Background(), Step{Script: "kill -TERM $$", Executor: "bash"})

	assert.Equal(t, status.Failed, info.Phase)
	assert.Nil(t, info.ExitCode)
	assert.Equal(t, "terminated", info.Signal)
	assert.NotEmpty(t, info.Reason)
}

func TestRunSpawnFailures(t *testing.T) {
	requireBash(t)

	tests := []struct {
		name string
		step Step
		want string
	}{
		{
			name: "executor not found",
			step: Step{Script: "echo", Executor: "definitely-not-an-interpreter"},
			want: "EXEC-002",
		},
		{
			name: "working directory missing",
			step: Step{Script: "echo", Executor: "bash", WorkingDir: "/nonexistent/jobbook/dir"},
			want: "EXEC-002",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, scratch := newTestRunner(t)
			info := r.Run(context.Background(), tt.step)

			assert.Equal(t, status.Failed, info.Phase)
			assert.Nil(t, info.ExitCode, "no exit code when the process never started")
			assert.Contains(t, info.Reason, tt.want)
			assertScratchClean(t, scratch)
		})
	}
}

func TestRunScratchFailure(t *testing.T) {
	r := NewRunner(WithTempDir(filepath.Join(t.TempDir(), "missing", "parent")))

	info := r.Run(context.Background(), Step{Script: "echo hi", Executor: "bash"})

	assert.Equal(t, status.Failed, info.Phase)
	assert.Contains(t, info.Reason, "EXEC-001")
	assert.Nil(t, info.ExitCode)
}

func TestRunWorkingDirAndArgs(t *testing.T) {
	requireBash(t)
	r, _ := newTestRunner(t)
	dir := t.TempDir()

	info := r.Run(context.Background(), Step{
		Script:       "pwd\nfalse\necho unreachable",
		Executor:     "bash",
		ExecutorArgs: []string{"-e"},
		WorkingDir:   dir,
	})

	assert.Equal(t, status.Failed, info.Phase, "-e should stop at false")
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(strings.TrimSpace(info.Stdout))
	require.NoError(t, err)
	assert.Equal(t, resolved, got)
	assert.NotContains(t, info.Stdout, "unreachable")
}

func TestRunEnv(t *testing.T) {
	requireBash(t)
	r, _ := newTestRunner(t)

	info := r.Run(context.Background(), Step{
		Script:   `printf '%s/%s' "$JOBBOOK_TASK" "$JOBBOOK_TEMPLATE"`,
		Executor: "bash",
		Env:      map[string]string{"JOBBOOK_TASK": "lint", "JOBBOOK_TEMPLATE": "main"},
	})

	assert.Equal(t, status.Succeeded, info.Phase)
	assert.Equal(t, "lint/main", info.Stdout)
}

func TestRunInheritForwardsToSink(t *testing.T) {
	requireBash(t)
	r, _ := newTestRunner(t)
	var sink bytes.Buffer

	info := r.Run(context.Background(), Step{
		Script:   "echo live",
		Executor: "bash",
		Output:   Inherit,
		Stdout:   &sink,
	})

	assert.Equal(t, status.Succeeded, info.Phase)
	assert.Equal(t, "live\n", sink.String())
	assert.Empty(t, info.Stdout, "inherited output is not captured")
}

func TestRunCanceled(t *testing.T) {
	requireBash(t)
	r, scratch := newTestRunner(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	info := r.Run(ctx, Step{Script: "sleep 30", Executor: "bash"})

	assert.Equal(t, status.Failed, info.Phase)
	assert.Less(t, time.Since(start), 10*time.Second)
	assertScratchClean(t, scratch)
}

func TestRunBackgroundChildHoldsOutput(t *testing.T) {
	requireBash(t)

	tests := []struct {
		name      string
		script    string
		wantPhase status.Phase
		wantCode  int
	}{
		{"clean exit", "sleep 2 &\necho done\nexit 0\n", status.Succeeded, 0},
		{"non-zero exit", "sleep 2 &\necho done\nexit 4\n", status.Failed, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, scratch := newTestRunner(t)
			r.WaitDelay = 300 * time.Millisecond

			start := time.Now()
			info := r.Run(context.Background(), Step{Script: tt.script, Executor: "bash"})

			assert.Equal(t, tt.wantPhase, info.Phase, info.Reason)
			require.NotNil(t, info.ExitCode)
			assert.Equal(t, tt.wantCode, *info.ExitCode)
			assert.Contains(t, info.Stdout, "done")
			assert.NotContains(t, info.Reason, "EXEC-003")
			assert.Less(t, time.Since(start), 2*time.Second, "output pipes are abandoned after WaitDelay")
			assertScratchClean(t, scratch)
		})
	}
}

func TestRunRelativeTempDir(t *testing.T) {
	requireBash(t)
	base := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(base, "scratch"), 0o755))
	t.Chdir(base)

	r := NewRunner(WithTempDir("scratch"))
	info := r.Run(context.Background(), Step{Script: "echo ok", Executor: "bash", WorkingDir: t.TempDir()})

	assert.Equal(t, status.Succeeded, info.Phase, info.Reason)
	assert.Equal(t, "ok\n", info.Stdout)
	require.NotEmpty(t, info.Command)
	assert.True(t, filepath.IsAbs(info.Command[len(info.Command)-1]))
}

func TestOutputModeString(t *testing.T) {
	assert.Equal(t, "capture", Capture.String())
	assert.Equal(t, "inherit", Inherit.String())
}
