package health

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/jobbook/internal/job"
)

// mockChecker is a test double for health checks
type mockChecker struct {
	name   string
	result *Result
	delay  time.Duration
}

func (m *mockChecker) Name() string {
	return m.name
}

func (m *mockChecker) Check(ctx context.Context) *Result {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return Unhealthy("check cancelled").
				WithDetail("error", ctx.Err().Error())
		}
	}
	return m.result
}

func TestManagerKeepsOrderAndTimesOut(t *testing.T) {
	m := NewManager().WithTimeout(20 * time.Millisecond)
	m.AddChecker(&mockChecker{name: "slow", delay: time.Second, result: Healthy("late")})
	m.AddChecker(&mockChecker{name: "fast", result: Healthy("ok")})
	m.AddChecker(&mockChecker{name: "fast", result: Unhealthy("dup")})
	m.AddChecker(&mockChecker{name: "nil"})

	require.Equal(t, 3, m.Count())
	results := m.Check(context.Background())
	require.Len(t, results, 3)

	assert.Equal(t, "slow", results[0].Name)
	assert.Equal(t, StatusUnhealthy, results[0].Status)
	assert.Equal(t, "fast", results[1].Name)
	assert.Equal(t, StatusHealthy, results[1].Status)
	assert.Equal(t, "check returned no result", results[2].Message)
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name    string
		results []NamedResult
		want    Status
	}{
		{"empty", nil, StatusHealthy},
		{"healthy", []NamedResult{{Name: "a", Result: *Healthy("")}}, StatusHealthy},
		{"degraded", []NamedResult{{Name: "a", Result: *Healthy("")}, {Name: "b", Result: *Degraded("")}}, StatusDegraded},
		{"unhealthy wins", []NamedResult{{Name: "a", Result: *Degraded("")}, {Name: "b", Result: *Unhealthy("")}}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OverallStatus(tt.results))
		})
	}
}

func TestForJob(t *testing.T) {
	dir := t.TempDir()
	build := job.ScriptTask("build", "make")
	build.Script.WorkingDir = dir
	py := job.ScriptTask("", "print(1)")
	py.Script.Executor = "python3"

	spec := job.NewSpec("ci", "main",
		job.NewTemplate("main", job.Stage{build, py}, job.Stage{job.TemplateTask("", "lint")}),
		job.NewTemplate("lint", job.Stage{job.ScriptTask("vet", "go vet")}),
	)

	var names []string
	for _, c := range ForJob(spec) {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{
		"scratch-dir",
		"interpreter:bash",
		"interpreter:python3",
		"working-dir:" + dir,
	}, names)

	ic := ForJob(spec)[1].(*InterpreterChecker)
	assert.Equal(t, []string{"main/1/build", "lint/1/vet"}, ic.UsedBy)
}

func TestInterpreterChecker(t *testing.T) {
	missing := (&InterpreterChecker{Executor: "jobbook-no-such-interpreter"}).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, missing.Status)

	self, err := os.Executable()
	require.NoError(t, err)
	found := (&InterpreterChecker{Executor: self}).Check(context.Background())
	assert.Equal(t, StatusHealthy, found.Status)
}

func TestWorkingDirChecker(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	assert.Equal(t, StatusHealthy, (&WorkingDirChecker{Dir: dir}).Check(context.Background()).Status)
	assert.Equal(t, StatusUnhealthy, (&WorkingDirChecker{Dir: filepath.Join(dir, "nope")}).Check(context.Background()).Status)
	assert.Equal(t, "not a directory", (&WorkingDirChecker{Dir: file}).Check(context.Background()).Message)

	t.Chdir(dir)
	assert.Equal(t, StatusDegraded, (&WorkingDirChecker{Dir: "."}).Check(context.Background()).Status)
}

func TestScratchDirChecker(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, StatusHealthy, (&ScratchDirChecker{Dir: dir}).Check(context.Background()).Status)
	assert.Equal(t, StatusUnhealthy, (&ScratchDirChecker{Dir: filepath.Join(dir, "missing")}).Check(context.Background()).Status)
}
