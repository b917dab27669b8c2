package trace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/jobbook/internal/engine"
	"github.com/felixgeelhaar/jobbook/internal/job"
	"github.com/felixgeelhaar/jobbook/internal/status"
)

func emitRun(t *testing.T, l *Logger, runID string, start time.Time, final status.Phase) {
	t.Helper()
	code := 1
	events := []engine.Event{
		{Type: engine.EventJobStarted, RunID: runID, Job: "nightly", Time: start, Phase: status.Running},
		{Type: engine.EventTaskStarted, RunID: runID, Job: "nightly", Time: start, Task: "build", Kind: job.KindScript, Phase: status.Running},
		{Type: engine.EventTaskFinished, RunID: runID, Job: "nightly", Time: start, Task: "build", Kind: job.KindScript, Phase: final, ExitCode: &code, Reason: "boom"},
		{Type: engine.EventJobFinished, RunID: runID, Job: "nightly", Time: start, Phase: final, Duration: 3 * time.Second},
	}
	for _, e := range events {
		l.OnEvent(e)
	}
}

func TestLoggerWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir)
	require.NoError(t, err)
	assert.Empty(t, l.Path())

	emitRun(t, l, "run-1", time.Now(), status.Failed)
	assert.Equal(t, filepath.Join(dir, "run-1.jsonl"), l.Path())
	require.NoError(t, l.Close())

	events, err := ReadRun(dir, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.NotEmpty(t, events[0].ID)
	assert.NotEqual(t, events[0].ID, events[1].ID)
	assert.Equal(t, engine.EventTaskFinished, events[2].Type)
	assert.Equal(t, "script", events[2].Kind)
	assert.Equal(t, "failed", events[2].Phase)
	require.NotNil(t, events[2].ExitCode)
	assert.Equal(t, 1, *events[2].ExitCode)
	assert.Empty(t, events[0].Kind)
	assert.True(t, events[3].Finished())
	assert.False(t, events[0].Finished())
}

func TestLoggerStreamsLargeRuns(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir)
	require.NoError(t, err)

	const tasks = 2000
	l.OnEvent(engine.Event{Type: engine.EventJobStarted, RunID: "big", Job: "nightly", Time: time.Now(), Phase: status.Running})
	for i := 0; i < tasks; i++ {
		l.OnEvent(engine.Event{Type: engine.EventTaskSkipped, RunID: "big", Job: "nightly", Time: time.Now(),
			Task: "t", Kind: job.KindScript, Phase: status.Skipped, Reason: "filtered"})
	}
	require.NoError(t, l.Close())

	events, err := ReadRun(dir, "big")
	require.NoError(t, err)
	assert.Len(t, events, tasks+1)
	assert.Equal(t, "filtered", events[tasks].Reason)
}

func TestListRunsNewestFirst(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	older, err := NewLogger(dir)
	require.NoError(t, err)
	emitRun(t, older, "aaa-older", now.Add(-time.Hour), status.Succeeded)
	require.NoError(t, older.Close())

	newer, err := NewLogger(dir)
	require.NoError(t, err)
	emitRun(t, newer, "bbb-newer", now, status.Failed)
	require.NoError(t, newer.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	runs, err := ListRuns(dir)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "bbb-newer", runs[0].ID)
	assert.Equal(t, "failed", runs[0].Phase)
	assert.Equal(t, 3*time.Second, runs[0].Duration)
	assert.Equal(t, "aaa-older", runs[1].ID)
	assert.Equal(t, "succeeded", runs[1].Phase)
}

func TestListRunsMissingDir(t *testing.T) {
	runs, err := ListRuns(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestReadRunByPrefix(t *testing.T) {
	dir := t.TempDir()
	for _, id := range []string{"abc-1", "abd-2"} {
		l, err := NewLogger(dir)
		require.NoError(t, err)
		emitRun(t, l, id, time.Now(), status.Succeeded)
		require.NoError(t, l.Close())
	}

	events, err := ReadRun(dir, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc-1", events[0].RunID)

	_, err = ReadRun(dir, "ab")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = ReadRun(dir, "zzz")
	assert.ErrorContains(t, err, "no run log")
}

func TestLoggerMissingRunID(t *testing.T) {
	l, err := NewLogger(t.TempDir())
	require.NoError(t, err)
	l.OnEvent(engine.Event{Type: engine.EventJobStarted})
	assert.ErrorContains(t, l.Close(), "no run id")
}
