package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/jobbook/internal/engine"
	"github.com/felixgeelhaar/jobbook/internal/exec"
	"github.com/felixgeelhaar/jobbook/internal/exitcode"
	"github.com/felixgeelhaar/jobbook/internal/job"
	"github.com/felixgeelhaar/jobbook/internal/progress"
	"github.com/felixgeelhaar/jobbook/internal/telemetry"
	"github.com/felixgeelhaar/jobbook/internal/trace"
	"github.com/felixgeelhaar/jobbook/internal/tui"
	"github.com/felixgeelhaar/jobbook/internal/ux"
)

type runOptions struct {
	include    []string
	exclude    []string
	entrypoint string
	useTUI     bool
	selectRun  bool
	noTrace    bool
	showOutput bool
	quiet      bool
	verbose    bool
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}
	c := &cobra.Command{
		Use:   "run [JOB.yaml]",
		Short: "Run a job",
		Long: `Run a job file. Without an argument the job file is discovered as
jobbook.yaml in the current directory or a parent, up to the git root.

Tasks can be selected by label: --tag keeps only tasks carrying one of the
given labels, --exclude drops tasks carrying any of the given labels.
Exclusion wins over inclusion.

Examples:
  # Run the entrypoint template
  jobbook run build.yaml

  # Run only tasks labeled "unit" or "lint", except slow ones
  jobbook run build.yaml -t unit,lint -e slow

  # Start from another template and keep script output for the report
  jobbook run build.yaml --entrypoint package --capture --show-output
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd, args, opts)
		},
	}

	f := c.Flags()
	f.StringSliceVarP(&opts.include, "tag", "t", nil, "run only tasks with one of these labels")
	f.StringSliceVarP(&opts.exclude, "exclude", "e", nil, "skip tasks with any of these labels")
	f.StringVar(&opts.entrypoint, "entrypoint", "", "template to start from (default: the job's entrypoint)")
	f.Bool("capture", false, "capture script stdout instead of streaming it")
	f.BoolVar(&opts.useTUI, "tui", false, "show a live dashboard (implies --capture)")
	f.BoolVar(&opts.selectRun, "select", false, "choose the entrypoint and tags interactively")
	f.String("trace-dir", "", "directory for run event logs (default ~/.jobbook/runs)")
	f.BoolVar(&opts.noTrace, "no-trace", false, "do not write a run event log")
	f.String("metrics-textfile", "", "write Prometheus metrics to this file when the run ends")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	f.BoolVar(&opts.showOutput, "show-output", false, "include captured stdout in the text report")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "no live progress")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "show template and stage progress")
	return c
}

func runJob(cmd *cobra.Command, args []string, opts *runOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg := cmdCtx.Config
	logger := cmdCtx.Logger

	cleanup := setupTelemetry(cmd.Context(), cfg, logger)
	defer cleanup()

	ctx, span := telemetry.StartCommandSpan(cmd.Context(), "run",
		attribute.StringSlice("jobbook.include", opts.include),
		attribute.StringSlice("jobbook.exclude", opts.exclude),
	)
	defer span.End()

	err = executeRun(ctx, cmdCtx, args, opts)
	telemetry.RecordError(span, err)
	return err
}

func executeRun(ctx context.Context, cmdCtx *CommandContext, args []string, opts *runOptions) error {
	cfg := cmdCtx.Config
	logger := cmdCtx.Logger

	formatter, err := cmdCtx.Formatter()
	if err != nil {
		return err
	}

	path, err := jobPath(args)
	if err != nil {
		return err
	}
	spec, err := job.LoadFile(path)
	if err != nil {
		return err
	}

	runOpts := engine.RunOptions{
		Entrypoint: opts.entrypoint,
		Include:    opts.include,
		Exclude:    opts.exclude,
	}
	if opts.selectRun {
		if err := selectInteractively(spec, &runOpts); err != nil {
			return err
		}
	}
	if opts.useTUI && !tui.IsInteractive() {
		return usageError("--tui needs an interactive terminal")
	}

	rm, err := setupMetrics(cfg, logger)
	if err != nil {
		return err
	}
	defer rm.close()

	observers := []engine.Observer{rm.Observer()}

	var runLog *trace.Logger
	if !opts.noTrace && cfg.Run.TraceDir != "" {
		runLog, err = trace.NewLogger(cfg.Run.TraceDir)
		if err != nil {
			logger.Warn("Run log disabled", "error", err)
		} else {
			observers = append(observers, runLog)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var dashboard *tui.Adapter
	var indicator *progress.Indicator
	switch {
	case opts.useTUI:
		dashboard = tui.NewAdapter(spec.Name, cancel)
		observers = append(observers, dashboard)
	case !opts.quiet && cmdCtx.Text():
		indicator = progress.NewIndicator(progress.Config{
			Writer:      cmdCtx.Err,
			ShowSpinner: true,
			Verbose:     opts.verbose,
		})
		observers = append(observers, indicator)
	}

	mode := exec.Inherit
	if cfg.Run.Capture || opts.useTUI || !cmdCtx.Text() {
		mode = exec.Capture
	}

	eng := engine.New(
		engine.WithLogger(logger),
		engine.WithObserver(observers...),
		engine.WithOutput(mode, cmdCtx.Out),
	)

	if dashboard != nil {
		dashboard.Start()
	}
	if indicator != nil {
		indicator.Start()
	}

	run, err := eng.ExecuteJob(runCtx, spec, runOpts)

	if indicator != nil {
		indicator.Stop()
	}
	if dashboard != nil {
		if ferr := dashboard.Finish(run); ferr != nil {
			logger.Warn("Dashboard stopped", "error", ferr)
		}
	}
	logPath := ""
	if runLog != nil {
		logPath = runLog.Path()
		if cerr := runLog.Close(); cerr != nil {
			logger.Warn("Failed to write run log", "error", cerr)
		}
	}

	if err != nil {
		rm.RecordError(err)
		return err
	}
	oteltrace.SpanFromContext(ctx).SetAttributes(runAttributes(run)...)

	report := ux.NewReport(run)
	report.ShowOutput = opts.showOutput
	if err := formatter.Format(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if logPath != "" && cmdCtx.Text() {
		fmt.Fprintf(cmdCtx.Err, "run log: %s\n", logPath)
	}

	return runOutcome(runCtx, run)
}

// runOutcome maps the settled run to the command result. A canceled
// context wins over the phase.
func runOutcome(ctx context.Context, run *engine.JobRun) error {
	if ctx.Err() != nil {
		return fmt.Errorf("run %s interrupted: %w", run.ID, context.Canceled)
	}
	switch exitcode.ForPhase(run.Phase) {
	case exitcode.Success:
		return nil
	case exitcode.NothingRan:
		return nothingRanError(run.Name)
	default:
		return jobFailedError(run.Name, run.Counts().Failed)
	}
}

func jobPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	return ux.DiscoverJobFile(".")
}

func selectInteractively(spec *job.Spec, opts *engine.RunOptions) error {
	if !tui.IsInteractive() {
		return usageError("--select needs an interactive terminal")
	}

	def := opts.Entrypoint
	if def == "" {
		def = spec.Entrypoint
	}
	entry, err := tui.PromptForSelect("Entrypoint template", spec.TemplateNames(), def)
	if err != nil {
		return err
	}
	opts.Entrypoint = entry

	if len(opts.Include) == 0 {
		tags, err := tui.PromptForMultiSelect("Run only tasks labeled (none selects every task)", spec.Labels())
		if err != nil {
			return err
		}
		opts.Include = tags
	}
	return nil
}

func runAttributes(run *engine.JobRun) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("jobbook.run_id", run.ID),
		attribute.String("jobbook.phase", run.Phase.String()),
	}
}
