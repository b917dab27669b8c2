package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/jobbook/internal/engine"
	"github.com/felixgeelhaar/jobbook/internal/status"
	"github.com/felixgeelhaar/jobbook/internal/trace"
	"github.com/felixgeelhaar/jobbook/internal/ux"
)

// RunList is the output of logs --list.
type RunList struct {
	Dir  string             `json:"dir" yaml:"dir"`
	Runs []trace.RunSummary `json:"runs" yaml:"runs"`
}

// RenderText implements ux.TextRenderer.
func (l *RunList) RenderText(w io.Writer, s ux.Styles) error {
	if len(l.Runs) == 0 {
		_, err := fmt.Fprintf(w, "No run logs in %s\n", l.Dir)
		return err
	}
	for _, r := range l.Runs {
		phase, _ := status.ParsePhase(r.Phase)
		fmt.Fprintf(w, "%s  %-20s %s  %s  %s\n",
			r.ID,
			r.Job,
			s.ForPhase(phase).Render(fmt.Sprintf("%-9s", r.Phase)),
			r.StartedAt.Local().Format(time.DateTime),
			s.Muted.Render(r.Duration.Round(time.Millisecond).String()))
	}
	return nil
}

// RunEvents is the output of logs RUN_ID.
type RunEvents struct {
	RunID  string         `json:"run_id" yaml:"run_id"`
	Events []*trace.Event `json:"events" yaml:"events"`
}

// RenderText implements ux.TextRenderer.
func (r *RunEvents) RenderText(w io.Writer, s ux.Styles) error {
	for _, e := range r.Events {
		phase, _ := status.ParsePhase(e.Phase)
		line := fmt.Sprintf("%s %-17s %s",
			s.Muted.Render(e.Timestamp.Local().Format("15:04:05.000")),
			e.Type,
			eventSubject(e))
		if e.Finished() {
			line += " " + s.ForPhase(phase).Render(e.Phase)
		}
		if e.ExitCode != nil && *e.ExitCode != 0 {
			line += fmt.Sprintf(" exit %d", *e.ExitCode)
		}
		if e.Reason != "" {
			line += s.Muted.Render(": " + firstLine(e.Reason))
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func eventSubject(e *trace.Event) string {
	switch e.Type {
	case engine.EventJobStarted, engine.EventJobFinished:
		return e.Job
	default:
		return e.Path
	}
}

func newLogsCommand() *cobra.Command {
	var list bool
	c := &cobra.Command{
		Use:   "logs [RUN_ID]",
		Short: "Show run event logs",
		Long: `Show the event log of a run. Every run writes one JSON-lines file named
after its run id into the trace directory (default ~/.jobbook/runs).

Examples:
  # List recorded runs, newest first
  jobbook logs --list

  # Show the events of a run; a unique id prefix is enough
  jobbook logs 3f2a

  # Show the latest run
  jobbook logs
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			dir := cmdCtx.Config.Run.TraceDir
			f, err := cmdCtx.Formatter()
			if err != nil {
				return err
			}

			if list {
				runs, err := trace.ListRuns(dir)
				if err != nil {
					return err
				}
				return f.Format(&RunList{Dir: dir, Runs: runs})
			}

			id := ""
			if len(args) == 1 {
				id = args[0]
			} else {
				runs, err := trace.ListRuns(dir)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					return fmt.Errorf("no run logs in %s", dir)
				}
				id = runs[0].ID
			}

			events, err := trace.ReadRun(dir, id)
			if err != nil {
				return err
			}
			runID := id
			if len(events) > 0 {
				runID = events[0].RunID
			}
			return f.Format(&RunEvents{RunID: runID, Events: events})
		},
	}
	c.Flags().BoolVarP(&list, "list", "l", false, "list recorded runs")
	c.Flags().String("trace-dir", "", "directory holding run event logs (default ~/.jobbook/runs)")
	return c
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
