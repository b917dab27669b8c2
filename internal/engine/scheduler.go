package engine

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/jobbook/internal/exec"
	"github.com/felixgeelhaar/jobbook/internal/job"
	"github.com/felixgeelhaar/jobbook/internal/log"
	"github.com/felixgeelhaar/jobbook/internal/plan"
	"github.com/felixgeelhaar/jobbook/internal/status"
)

// execution is the state of one ExecuteJob call. Its token pools live and
// die with the call.
type execution struct {
	engine   *Engine
	spec     *job.Spec
	run      *JobRun
	selector plan.Selector
	logger   *log.Logger
	stdout   io.Writer

	// leaves bounds running script tasks across the whole tree.
	leaves *gate
}

func (x *execution) emit(e Event) {
	e.RunID = x.run.ID
	e.Job = x.run.Name
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	x.engine.observers.OnEvent(e)
}

// executeTemplate runs one instantiation of a template. budget is the cap
// inherited from the enclosing scope; 0 means unbounded. The template's own
// parallelism, if set, replaces it for this template's children.
func (x *execution) executeTemplate(ctx context.Context, name, path string, budget int) *TemplateRun {
	tmpl := x.spec.Templates[name]
	limit := budget
	if tmpl.Parallelism != nil {
		limit = *tmpl.Parallelism
	}

	tr := &TemplateRun{Name: name, Path: path, Limit: limit, Phase: status.Pending, StartedAt: time.Now()}
	logger := x.logger.With("template", name, "path", path)

	ctx, span := x.engine.tracer.Start(ctx, "template "+name, trace.WithAttributes(templateAttributes(tr)...))
	defer span.End()

	tr.Phase = status.Running
	logger.Debug("template started", "stages", len(tmpl.Stages), "limit", limit)
	x.emit(Event{Type: EventTemplateStarted, Path: path, Template: name, Phase: status.Running})

	failed := false
	for i, stageSpec := range tmpl.Stages {
		sr := &StageRun{Index: i + 1, Phase: status.Pending, Tasks: make([]*TaskRun, len(stageSpec))}
		for j, ts := range stageSpec {
			sr.Tasks[j] = newTaskRun(path, sr.Index, j, ts)
		}
		tr.Stages = append(tr.Stages, sr)

		if failed {
			for _, task := range sr.Tasks {
				x.skip(task, name, sr.Index, ReasonFailFast)
			}
			sr.Phase = status.Skipped
			continue
		}

		x.emit(Event{Type: EventStageStarted, Path: path, Template: name, Stage: sr.Index, Phase: status.Running})
		x.runStage(ctx, tr, sr, stageSpec, limit)
		sr.Phase = sr.aggregate()
		x.emit(Event{Type: EventStageFinished, Path: path, Template: name, Stage: sr.Index, Phase: sr.Phase})
		logger.Debug("stage settled", "stage", sr.Index, "phase", sr.Phase)

		if sr.Phase == status.Failed {
			failed = true
			if i+1 < len(tmpl.Stages) {
				logger.Info("skipping remaining stages after failure", "failed_stage", sr.Index)
			}
		}
	}

	phases := make([]status.Phase, len(tr.Stages))
	for i, s := range tr.Stages {
		phases[i] = s.Phase
	}
	tr.Phase = status.Aggregate(phases...)
	tr.Duration = time.Since(tr.StartedAt)
	recordPhase(span, tr.Phase, "")

	logger.Debug("template settled", "phase", tr.Phase, "duration", tr.Duration)
	x.emit(Event{Type: EventTemplateFinished, Path: path, Template: name, Phase: tr.Phase, Duration: tr.Duration})
	return tr
}

// runStage dispatches the eligible tasks of one stage, at most limit at a
// time, and returns once every dispatched task has settled.
func (x *execution) runStage(ctx context.Context, tr *TemplateRun, sr *StageRun, stage job.Stage, limit int) {
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for j, ts := range stage {
		task := sr.Tasks[j]
		if !x.selector.Eligible(ts.Labels) {
			x.skip(task, tr.Name, sr.Index, ReasonFiltered)
			continue
		}
		if ctx.Err() != nil {
			x.skip(task, tr.Name, sr.Index, ReasonCanceled)
			continue
		}
		// Go blocks while the template's slots are all taken.
		g.Go(func() error {
			x.runTask(ctx, tr, sr.Index, task, limit)
			return nil
		})
	}
	_ = g.Wait()
}

// runTask runs a dispatched task while it holds its template slot.
func (x *execution) runTask(ctx context.Context, tr *TemplateRun, stage int, task *TaskRun, limit int) {
	if ctx.Err() != nil {
		x.skip(task, tr.Name, stage, ReasonCanceled)
		return
	}

	if task.Kind == job.KindTemplate {
		x.start(task, tr.Name, stage)
		child := x.executeTemplate(ctx, task.spec.Template.Name, task.Path, limit)
		task.Template = child
		x.finish(task, tr.Name, stage, child.Phase)
		return
	}

	if err := x.leaves.acquire(ctx); err != nil {
		x.skip(task, tr.Name, stage, ReasonCanceled)
		return
	}
	defer x.leaves.release()

	script := task.spec.Script
	ctx, span := x.engine.tracer.Start(ctx, "task "+task.Name, trace.WithAttributes(taskAttributes(task, script)...))
	defer span.End()

	x.start(task, tr.Name, stage)
	info := x.engine.runner.Run(ctx, exec.Step{
		ID:           task.Path,
		Script:       script.Source,
		Executor:     script.Interpreter(),
		ExecutorArgs: script.ExecutorArgs,
		WorkingDir:   script.Dir(),
		Env: map[string]string{
			"JOBBOOK_JOB":       x.run.Name,
			"JOBBOOK_RUN_ID":    x.run.ID,
			"JOBBOOK_TEMPLATE":  tr.Name,
			"JOBBOOK_TASK":      task.Name,
			"JOBBOOK_TASK_PATH": task.Path,
		},
		Output: x.engine.output,
		Stdout: x.stdout,
	})
	if info == nil {
		info = &exec.ExitInfo{Phase: status.Failed, Reason: "runner returned no result"}
	}
	if !info.Phase.IsTerminal() {
		info.Reason = fmt.Sprintf("runner returned non-terminal phase %s", info.Phase)
		info.Phase = status.Failed
	}
	task.Exit = info
	recordPhase(span, info.Phase, info.Reason)
	x.finish(task, tr.Name, stage, info.Phase)
}

func newTaskRun(parent string, stage, index int, ts job.Task) *TaskRun {
	name := ts.DisplayName()
	segment := ts.Name
	if segment == "" {
		segment = "#" + strconv.Itoa(index+1)
	}
	return &TaskRun{
		Name:   name,
		Path:   fmt.Sprintf("%s/%d/%s", parent, stage, segment),
		Kind:   ts.Kind(),
		Labels: ts.Labels,
		Phase:  status.Pending,
		spec:   ts,
	}
}

func (x *execution) skip(task *TaskRun, template string, stage int, reason SkipReason) {
	x.settle(task, status.Skipped)
	task.SkipReason = reason
	x.logger.Debug("task skipped", "task", task.Path, "reason", reason)
	x.emit(Event{
		Type:     EventTaskSkipped,
		Path:     task.Path,
		Template: template,
		Stage:    stage,
		Task:     task.Name,
		Kind:     task.Kind,
		Phase:    status.Skipped,
		Reason:   string(reason),
	})
}

func (x *execution) start(task *TaskRun, template string, stage int) {
	task.StartedAt = time.Now()
	x.settle(task, status.Running)
	x.emit(Event{
		Type:     EventTaskStarted,
		Path:     task.Path,
		Template: template,
		Stage:    stage,
		Task:     task.Name,
		Kind:     task.Kind,
		Phase:    status.Running,
	})
}

func (x *execution) finish(task *TaskRun, template string, stage int, phase status.Phase) {
	task.Duration = time.Since(task.StartedAt)
	x.settle(task, phase)

	ev := Event{
		Type:     EventTaskFinished,
		Path:     task.Path,
		Template: template,
		Stage:    stage,
		Task:     task.Name,
		Kind:     task.Kind,
		Phase:    phase,
		Duration: task.Duration,
	}
	if task.Exit != nil {
		ev.ExitCode = task.Exit.ExitCode
		ev.Reason = task.FailedReason()
	}
	if phase == status.Failed && task.Kind == job.KindScript {
		x.logger.Warn("task failed", "task", task.Path, "reason", task.FailedReason())
	} else {
		x.logger.Debug("task settled", "task", task.Path, "phase", phase, "duration", task.Duration)
	}
	x.emit(ev)
}

// settle moves task to phase. Only the goroutine owning task calls it.
func (x *execution) settle(task *TaskRun, phase status.Phase) {
	if err := task.transition(phase); err != nil {
		x.logger.Error("illegal phase change", "task", task.Path, "error", err)
	}
}
