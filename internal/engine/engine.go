// Package engine executes a job: it expands templates into a run tree, runs
// stages in order with their tasks in parallel, bounds concurrency per
// template and per job, skips later stages after a failure and folds task
// phases up into a single job phase.
package engine

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/jobbook/internal/exec"
	"github.com/felixgeelhaar/jobbook/internal/job"
	"github.com/felixgeelhaar/jobbook/internal/log"
	"github.com/felixgeelhaar/jobbook/internal/plan"
	"github.com/felixgeelhaar/jobbook/internal/status"
)

const tracerName = "github.com/felixgeelhaar/jobbook/internal/engine"

// TaskRunner runs one script step. *exec.Runner is the production
// implementation.
type TaskRunner interface {
	Run(ctx context.Context, step exec.Step) *exec.ExitInfo
}

// Engine executes jobs. It holds no per-run state and may run several jobs
// concurrently.
type Engine struct {
	runner    TaskRunner
	logger    *log.Logger
	observers multiObserver
	tracer    trace.Tracer
	output    exec.OutputMode
	stdout    io.Writer
}

// Option configures an Engine.
type Option func(*Engine)

// WithRunner replaces the process runner.
func WithRunner(r TaskRunner) Option {
	return func(e *Engine) { e.runner = r }
}

// WithLogger sets the engine logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithObserver adds observers; events fan out in the order given.
func WithObserver(obs ...Observer) Option {
	return func(e *Engine) {
		for _, o := range obs {
			if o != nil {
				e.observers = append(e.observers, o)
			}
		}
	}
}

// WithOutput selects capture or live forwarding of script stdout. w is the
// live sink for Inherit; nil means os.Stdout.
func WithOutput(mode exec.OutputMode, w io.Writer) Option {
	return func(e *Engine) {
		e.output = mode
		e.stdout = w
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// New creates an engine. By default it runs scripts with exec.NewRunner and
// captures their stdout.
func New(opts ...Option) *Engine {
	e := &Engine{output: exec.Capture}
	for _, opt := range opts {
		opt(e)
	}
	if e.runner == nil {
		e.runner = exec.NewRunner(exec.WithLogger(e.logger))
	}
	if e.logger == nil {
		e.logger = log.Discard()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	return e
}

// RunOptions selects what a run executes.
type RunOptions struct {
	// Entrypoint overrides the spec's entrypoint when non-empty.
	Entrypoint string
	Include    []string
	Exclude    []string
}

// ExecuteJob validates the template graph and, if it is sound, runs the
// entrypoint template to completion. Task failures are recorded in the
// returned run tree; the error is non-nil only for configuration problems,
// in which case nothing was executed.
//
// Canceling ctx interrupts running scripts and skips tasks that have not
// started yet.
func (e *Engine) ExecuteJob(ctx context.Context, spec *job.Spec, opts RunOptions) (*JobRun, error) {
	if err := plan.Validate(spec, opts.Entrypoint); err != nil {
		e.logger.LogError(ctx, "job rejected", err)
		return nil, err
	}

	entry := opts.Entrypoint
	if entry == "" {
		entry = spec.Entrypoint
	}
	selector := plan.NewSelector(opts.Include, opts.Exclude)

	hash, err := job.Hash(spec)
	if err != nil {
		e.logger.Warn("fingerprint job", "error", err)
	}

	run := &JobRun{
		ID:         uuid.NewString(),
		Name:       spec.Name,
		Entrypoint: entry,
		SpecHash:   hash,
		Include:    selector.Include(),
		Exclude:    selector.Exclude(),
		Phase:      status.Pending,
	}

	x := &execution{
		engine:   e,
		spec:     spec,
		run:      run,
		selector: selector,
		logger:   e.logger.With("run_id", run.ID, "job", spec.Name),
		stdout:   e.liveSink(),
	}

	budget := 0
	if spec.Parallelism != nil {
		budget = *spec.Parallelism
		x.leaves = newGate(budget)
	}

	ctx, span := e.tracer.Start(ctx, "job "+spec.Name, trace.WithAttributes(jobAttributes(run)...))
	defer span.End()

	run.StartedAt = time.Now()
	run.Phase = status.Running
	x.logger.Info("job started", "entrypoint", entry, "parallelism", budget)
	x.emit(Event{Type: EventJobStarted, Path: entry, Template: entry, Phase: status.Running})

	run.Root = x.executeTemplate(ctx, entry, entry, budget)

	run.Phase = run.Root.Phase
	run.FinishedAt = time.Now()
	recordPhase(span, run.Phase, "")

	counts := run.Counts()
	x.logger.Info("job finished",
		"phase", run.Phase,
		"succeeded", counts.Succeeded,
		"failed", counts.Failed,
		"skipped", counts.Skipped,
		"duration", run.Duration())
	x.emit(Event{
		Type:     EventJobFinished,
		Path:     entry,
		Template: entry,
		Phase:    run.Phase,
		Duration: run.Duration(),
	})
	return run, nil
}

// liveSink returns the writer for inherited stdout. Several processes may
// write at once, so anything other than a file is serialized.
func (e *Engine) liveSink() io.Writer {
	if e.output != exec.Inherit {
		return nil
	}
	switch w := e.stdout.(type) {
	case nil:
		return os.Stdout
	case *os.File:
		return w
	default:
		return &lockedWriter{w: w}
	}
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// TaskRunnerFunc adapts a function to TaskRunner.
type TaskRunnerFunc func(ctx context.Context, step exec.Step) *exec.ExitInfo

func (f TaskRunnerFunc) Run(ctx context.Context, step exec.Step) *exec.ExitInfo {
	return f(ctx, step)
}
