package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/felixgeelhaar/jobbook/internal/job"
)

// InterpreterChecker verifies an executor can be resolved on PATH.
type InterpreterChecker struct {
	Executor string
	// UsedBy lists the tasks that run with this executor.
	UsedBy []string
}

func (c *InterpreterChecker) Name() string {
	return "interpreter:" + c.Executor
}

func (c *InterpreterChecker) Check(ctx context.Context) *Result {
	path, err := exec.LookPath(c.Executor)
	if err != nil {
		return Unhealthy(fmt.Sprintf("%s not found", c.Executor)).
			WithDetail("error", err.Error()).
			WithDetail("used_by", c.UsedBy)
	}
	return Healthy(path).WithDetail("used_by", c.UsedBy)
}

// WorkingDirChecker verifies a working directory exists. Relative paths are
// resolved against the current directory, as the runner does.
type WorkingDirChecker struct {
	Dir    string
	UsedBy []string
}

func (c *WorkingDirChecker) Name() string {
	return "working-dir:" + c.Dir
}

func (c *WorkingDirChecker) Check(ctx context.Context) *Result {
	info, err := os.Stat(c.Dir)
	switch {
	case err != nil:
		return Unhealthy("directory is missing").
			WithDetail("error", err.Error()).
			WithDetail("used_by", c.UsedBy)
	case !info.IsDir():
		return Unhealthy("not a directory").WithDetail("used_by", c.UsedBy)
	case !filepath.IsAbs(c.Dir):
		// Only holds when jobbook is started from the same directory.
		return Degraded("exists relative to the current directory").WithDetail("used_by", c.UsedBy)
	}
	return Healthy("exists")
}

// ScratchDirChecker verifies scripts can be written to the temp directory.
type ScratchDirChecker struct {
	Dir string
}

func (c *ScratchDirChecker) Name() string {
	return "scratch-dir"
}

func (c *ScratchDirChecker) Check(ctx context.Context) *Result {
	dir, err := os.MkdirTemp(c.Dir, "jobbook-doctor-*")
	if err != nil {
		return Unhealthy("cannot create script files").WithDetail("error", err.Error())
	}
	_ = os.RemoveAll(dir)
	if c.Dir == "" {
		return Healthy(os.TempDir())
	}
	return Healthy(c.Dir)
}

// ForJob returns the checks for every script in spec: one per distinct
// executor and one per distinct working directory, plus the scratch
// directory check.
func ForJob(spec *job.Spec) []Checker {
	executors := map[string][]string{}
	dirs := map[string][]string{}

	for _, name := range spec.TemplateNames() {
		tmpl, _ := spec.Template(name)
		for si, stage := range tmpl.Stages {
			for ti, task := range stage {
				if task.Script == nil {
					continue
				}
				where := fmt.Sprintf("%s/%d/%s", name, si+1, taskLabel(task, ti))
				executors[task.Script.Interpreter()] = append(executors[task.Script.Interpreter()], where)
				if task.Script.WorkingDir != "" && task.Script.WorkingDir != job.DefaultWorkingDir {
					dirs[task.Script.WorkingDir] = append(dirs[task.Script.WorkingDir], where)
				}
			}
		}
	}

	checkers := []Checker{&ScratchDirChecker{}}
	for _, e := range sortedKeys(executors) {
		checkers = append(checkers, &InterpreterChecker{Executor: e, UsedBy: executors[e]})
	}
	for _, d := range sortedKeys(dirs) {
		checkers = append(checkers, &WorkingDirChecker{Dir: d, UsedBy: dirs[d]})
	}
	return checkers
}

func taskLabel(t job.Task, index int) string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("#%d", index+1)
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
