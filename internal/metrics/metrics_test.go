package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/jobbook/internal/engine"
	jerrors "github.com/felixgeelhaar/jobbook/internal/errors"
	"github.com/felixgeelhaar/jobbook/internal/job"
	"github.com/felixgeelhaar/jobbook/internal/status"
)

func TestObserverCounts(t *testing.T) {
	_, m := NewRegistry()
	obs := m.Observer()

	obs.OnEvent(engine.Event{Type: engine.EventTaskStarted, Kind: job.KindScript, Template: "main"})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksRunning))

	obs.OnEvent(engine.Event{Type: engine.EventTaskFinished, Kind: job.KindScript, Template: "main", Phase: status.Failed, Duration: time.Second})
	obs.OnEvent(engine.Event{Type: engine.EventTaskSkipped, Kind: job.KindScript, Reason: "fail-fast"})
	obs.OnEvent(engine.Event{Type: engine.EventTemplateFinished, Template: "main", Phase: status.Failed})
	obs.OnEvent(engine.Event{Type: engine.EventJobFinished, Job: "nightly", Phase: status.Failed, Duration: 2 * time.Second})

	assert.Equal(t, 0.0, testutil.ToFloat64(m.TasksRunning))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TaskRuns.WithLabelValues("script", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TaskSkips.WithLabelValues("fail-fast")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TemplateRuns.WithLabelValues("main", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRuns.WithLabelValues("nightly", "failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.TaskDuration))
}

func TestRecordError(t *testing.T) {
	_, m := NewRegistry()
	m.RecordError(jerrors.NewCycleError(nil))
	m.RecordError(errors.New("plain"))
	m.RecordError(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues("GRAPH-003")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues("unknown")))
}

func TestWriteTextfile(t *testing.T) {
	reg, m := NewRegistry()
	m.JobRuns.WithLabelValues("nightly", "succeeded").Inc()

	path := filepath.Join(t.TempDir(), "jobbook.prom")
	require.NoError(t, WriteTextfile(reg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `jobbook_job_runs_total{job="nightly",phase="succeeded"} 1`)
}

func TestServe(t *testing.T) {
	reg, m := NewRegistry()
	m.TasksRunning.Set(3)

	srv, err := Serve("127.0.0.1:0", reg)
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "jobbook_tasks_running 3")
}
