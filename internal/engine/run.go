package engine

import (
	"time"

	"github.com/felixgeelhaar/jobbook/internal/exec"
	"github.com/felixgeelhaar/jobbook/internal/job"
	"github.com/felixgeelhaar/jobbook/internal/status"
)

// SkipReason says why a task never ran.
type SkipReason string

const (
	ReasonFiltered SkipReason = "filtered"
	ReasonFailFast SkipReason = "fail-fast"
	ReasonCanceled SkipReason = "canceled"
)

// JobRun is the root of a run tree. It is returned fully settled.
type JobRun struct {
	ID         string       `json:"id" yaml:"id"`
	Name       string       `json:"name" yaml:"name"`
	Entrypoint string       `json:"entrypoint" yaml:"entrypoint"`
	SpecHash   string       `json:"spec_hash,omitempty" yaml:"spec_hash,omitempty"`
	Include    []string     `json:"include,omitempty" yaml:"include,omitempty"`
	Exclude    []string     `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	Phase      status.Phase `json:"phase" yaml:"phase"`
	Root       *TemplateRun `json:"root" yaml:"root"`
	StartedAt  time.Time    `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time    `json:"finished_at" yaml:"finished_at"`
}

// Duration is the wall time of the whole run.
func (r *JobRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Walk visits every task in the tree depth-first, in stage order. depth is 0
// for tasks of the entrypoint template.
func (r *JobRun) Walk(fn func(t *TaskRun, depth int)) {
	if r == nil || r.Root == nil {
		return
	}
	r.Root.walk(fn, 0)
}

// Tasks returns every task in the tree, template references included.
func (r *JobRun) Tasks() []*TaskRun {
	var out []*TaskRun
	r.Walk(func(t *TaskRun, _ int) { out = append(out, t) })
	return out
}

// Counts tallies the phases of script tasks only.
func (r *JobRun) Counts() status.Counts {
	var c status.Counts
	r.Walk(func(t *TaskRun, _ int) {
		if t.Kind == job.KindScript {
			c.Add(t.Phase)
		}
	})
	return c
}

// Failures returns the failed script tasks, in tree order.
func (r *JobRun) Failures() []*TaskRun {
	var out []*TaskRun
	r.Walk(func(t *TaskRun, _ int) {
		if t.Kind == job.KindScript && t.Phase == status.Failed {
			out = append(out, t)
		}
	})
	return out
}

// TemplateRun is one instantiation of a template. The same template gets a
// separate TemplateRun for every reference that expands it.
type TemplateRun struct {
	Name      string        `json:"name" yaml:"name"`
	Path      string        `json:"path" yaml:"path"`
	Phase     status.Phase  `json:"phase" yaml:"phase"`
	Limit     int           `json:"limit,omitempty" yaml:"limit,omitempty"`
	Stages    []*StageRun   `json:"stages" yaml:"stages"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

func (t *TemplateRun) walk(fn func(*TaskRun, int), depth int) {
	for _, s := range t.Stages {
		for _, task := range s.Tasks {
			fn(task, depth)
			if task.Template != nil {
				task.Template.walk(fn, depth+1)
			}
		}
	}
}

// StageRun holds the tasks of one stage. Index is 1-based.
type StageRun struct {
	Index int          `json:"index" yaml:"index"`
	Phase status.Phase `json:"phase" yaml:"phase"`
	Tasks []*TaskRun   `json:"tasks" yaml:"tasks"`
}

func (s *StageRun) aggregate() status.Phase {
	phases := make([]status.Phase, len(s.Tasks))
	for i, t := range s.Tasks {
		phases[i] = t.Phase
	}
	return status.Aggregate(phases...)
}

// TaskRun wraps one task instance. Exit is set for script tasks that ran;
// Template is set for template references that expanded.
type TaskRun struct {
	Name       string         `json:"name" yaml:"name"`
	Path       string         `json:"path" yaml:"path"`
	Kind       job.Kind       `json:"kind" yaml:"kind"`
	Labels     []string       `json:"labels,omitempty" yaml:"labels,omitempty"`
	Phase      status.Phase   `json:"phase" yaml:"phase"`
	SkipReason SkipReason     `json:"skip_reason,omitempty" yaml:"skip_reason,omitempty"`
	Exit       *exec.ExitInfo `json:"exit,omitempty" yaml:"exit,omitempty"`
	Template   *TemplateRun   `json:"template,omitempty" yaml:"template,omitempty"`
	StartedAt  time.Time      `json:"started_at,omitzero" yaml:"started_at,omitempty"`
	Duration   time.Duration  `json:"duration,omitempty" yaml:"duration,omitempty"`

	spec job.Task
}

// FailedReason is the captured stderr or spawn error of a failed script.
func (t *TaskRun) FailedReason() string {
	if t.Exit == nil || t.Phase != status.Failed {
		return ""
	}
	return t.Exit.Reason
}

func (t *TaskRun) transition(to status.Phase) error {
	if t.Kind == job.KindTemplate {
		if !status.CanSettleComposite(t.Phase, to) {
			return &status.TransitionError{From: t.Phase, To: to}
		}
		t.Phase = to
		return nil
	}
	next, err := status.Transition(t.Phase, to)
	t.Phase = next
	return err
}
