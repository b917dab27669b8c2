package ux

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/felixgeelhaar/jobbook/internal/engine"
	"github.com/felixgeelhaar/jobbook/internal/job"
	"github.com/felixgeelhaar/jobbook/internal/status"
)

// Report is the printable result of a run. It renders as a tree in text
// mode and as the full run tree in JSON and YAML.
type Report struct {
	Run *engine.JobRun `json:"run" yaml:"run"`
	// Summary counts script tasks only.
	Summary status.Counts `json:"summary" yaml:"summary"`
	// ShowOutput includes captured stdout of every script in text mode.
	ShowOutput bool `json:"-" yaml:"-"`
}

// NewReport builds a report for run.
func NewReport(run *engine.JobRun) *Report {
	return &Report{Run: run, Summary: run.Counts()}
}

// RenderText implements TextRenderer.
func (r *Report) RenderText(w io.Writer, s Styles) error {
	run := r.Run
	header := fmt.Sprintf("%s %s  %s  %s",
		s.Title.Render("job"),
		s.Title.Render(run.Name),
		s.Phase(run.Phase),
		s.Muted.Render(fmt.Sprintf("run %s, %s", run.ID, roundDuration(run.Duration()))),
	)
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}

	if run.Root != nil {
		t := r.templateTree(run.Root, s).
			Enumerator(tree.RoundedEnumerator).
			EnumeratorStyle(s.Tree)
		if _, err := fmt.Fprintln(w, t.String()); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w, r.summaryLine(s))
	return err
}

func (r *Report) templateTree(t *engine.TemplateRun, s Styles) *tree.Tree {
	label := s.Title.Render(t.Name)
	if t.Limit > 0 {
		label += s.Muted.Render(fmt.Sprintf(" (parallelism %d)", t.Limit))
	}
	root := tree.Root(label)
	for _, stage := range t.Stages {
		st := tree.Root(fmt.Sprintf("%s %s",
			s.ForPhase(stage.Phase).Render(Glyph(stage.Phase)),
			s.Muted.Render(fmt.Sprintf("stage %d", stage.Index))))
		for _, task := range stage.Tasks {
			if task.Template != nil {
				sub := r.templateTree(task.Template, s)
				sub.Root(r.taskLine(task, s) + " " + sub.Value())
				st.Child(sub)
				continue
			}
			st.Child(r.taskLine(task, s) + r.taskOutput(task, s))
		}
		root.Child(st)
	}
	return root
}

func (r *Report) taskLine(t *engine.TaskRun, s Styles) string {
	var b strings.Builder
	b.WriteString(s.ForPhase(t.Phase).Render(Glyph(t.Phase)))
	b.WriteString(" ")
	b.WriteString(t.Name)
	if len(t.Labels) > 0 {
		b.WriteString(s.Muted.Render(" [" + strings.Join(t.Labels, ",") + "]"))
	}

	switch {
	case t.Phase == status.Skipped && t.SkipReason != "":
		b.WriteString(s.Skipped.Render(" skipped: " + string(t.SkipReason)))
	case t.Kind == job.KindScript && t.Phase.IsTerminal():
		b.WriteString(s.Muted.Render(" " + roundDuration(t.Duration).String()))
		if t.Exit != nil && t.Exit.ExitCode != nil && *t.Exit.ExitCode != 0 {
			b.WriteString(s.Failure.Render(fmt.Sprintf(" exit %d", *t.Exit.ExitCode)))
		}
		if t.Exit != nil && t.Exit.Signal != "" {
			b.WriteString(s.Failure.Render(" signal " + t.Exit.Signal))
		}
	}
	return b.String()
}

func (r *Report) taskOutput(t *engine.TaskRun, s Styles) string {
	var b strings.Builder
	if r.ShowOutput && t.Exit != nil {
		b.WriteString(indent(t.Exit.Stdout, s.Output))
	}
	if reason := t.FailedReason(); reason != "" {
		b.WriteString(indent(reason, s.Failure))
	}
	return b.String()
}

func (r *Report) summaryLine(s Styles) string {
	c := r.Summary
	return fmt.Sprintf("%s, %s, %s %s",
		s.Success.Render(fmt.Sprintf("%d succeeded", c.Succeeded)),
		s.Failure.Render(fmt.Sprintf("%d failed", c.Failed)),
		s.Skipped.Render(fmt.Sprintf("%d skipped", c.Skipped)),
		s.Muted.Render(fmt.Sprintf("(%d tasks)", c.Total())),
	)
}

func indent(text string, style lipgloss.Style) string {
	text = strings.TrimRight(text, "\n")
	if strings.TrimSpace(text) == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = "  " + style.Render(l)
	}
	return "\n" + strings.Join(lines, "\n")
}

func roundDuration(d time.Duration) time.Duration {
	if d < time.Second {
		return d.Round(time.Millisecond)
	}
	return d.Round(10 * time.Millisecond)
}
