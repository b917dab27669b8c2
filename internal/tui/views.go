package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/jobbook/internal/status"
)

// renderMain renders the run header, running tasks, recent settlements and
// counts.
func (m Model) renderMain() string {
	var b strings.Builder

	title := fmt.Sprintf("jobbook · %s", m.jobName)
	b.WriteString(m.styles.Title.Render(title))
	b.WriteString("\n")
	if m.runID != "" {
		b.WriteString(m.styles.Muted.Render("run " + m.runID))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(m.running) > 0 {
		b.WriteString(m.styles.Status.Render(fmt.Sprintf("Running (%d)", len(m.running))))
		b.WriteString("\n")
		for _, t := range m.running {
			elapsed := ""
			if !t.started.IsZero() {
				elapsed = m.styles.Muted.Render(" " + time.Since(t.started).Round(time.Second).String())
			}
			fmt.Fprintf(&b, "  %s %s%s\n", m.spinner.View(), t.path, elapsed)
		}
		b.WriteString("\n")
	}

	if recent := m.visibleRecent(); len(recent) > 0 {
		for _, t := range recent {
			b.WriteString("  ")
			b.WriteString(m.renderTaskLine(t))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.renderCounts())
	b.WriteString("\n")

	if m.interrupted && !m.done {
		b.WriteString(m.styles.Warning.Render("interrupting, waiting for running tasks to stop..."))
		b.WriteString("\n")
	}
	b.WriteString(m.renderHelpLine())
	return b.String()
}

func (m Model) visibleRecent() []*taskLine {
	var out []*taskLine
	for _, t := range m.recent {
		if t.phase == status.Skipped && !m.verboseMode {
			continue
		}
		out = append(out, t)
	}
	if len(out) > maxRecent {
		out = out[len(out)-maxRecent:]
	}
	return out
}

func (m Model) renderTaskLine(t *taskLine) string {
	switch t.phase {
	case status.Succeeded:
		return fmt.Sprintf("%s %s %s", m.styles.Success.Render("✓"), t.path,
			m.styles.Muted.Render(t.duration.Round(time.Millisecond).String()))
	case status.Failed:
		line := fmt.Sprintf("%s %s", m.styles.Error.Render("✗"), t.path)
		if t.exitCode != nil {
			line += m.styles.Error.Render(fmt.Sprintf(" exit %d", *t.exitCode))
		}
		if r := firstLine(t.reason); r != "" {
			line += m.styles.Muted.Render(": " + r)
		}
		return line
	default:
		return fmt.Sprintf("%s %s %s", m.styles.Warning.Render("⊘"), t.path,
			m.styles.Muted.Render(t.reason))
	}
}

func (m Model) renderCounts() string {
	c := m.counts
	parts := []string{
		m.styles.Success.Render(fmt.Sprintf("✓ %d", c.Succeeded)),
		m.styles.Error.Render(fmt.Sprintf("✗ %d", c.Failed)),
		m.styles.Warning.Render(fmt.Sprintf("⊘ %d", c.Skipped)),
		m.styles.Muted.Render(m.elapsed.Round(time.Second).String()),
	}
	line := strings.Join(parts, "  ")
	if m.done {
		line = m.styles.Status.Render(m.phase.String()) + "  " + line
	}
	return line
}

func (m Model) renderHelpLine() string {
	if m.done {
		return ""
	}
	return m.styles.Key.Render(keys.Quit.Help().Key) + " " + m.styles.Help.Render(keys.Quit.Help().Desc) +
		m.styles.Help.Render(" • ") +
		m.styles.Key.Render(keys.Verbose.Help().Key) + " " + m.styles.Help.Render(keys.Verbose.Help().Desc)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
