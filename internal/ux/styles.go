package ux

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/jobbook/internal/status"
)

// Styles holds the lipgloss styles used by text output.
type Styles struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Failure lipgloss.Style
	Skipped lipgloss.Style
	Running lipgloss.Style
	Output  lipgloss.Style
	Tree    lipgloss.Style
}

// NewStyles returns styles bound to w's color profile. noColor yields
// plain styles.
func NewStyles(w io.Writer, noColor bool) Styles {
	r := lipgloss.NewRenderer(w)
	if noColor {
		return Styles{
			Title:   r.NewStyle(),
			Muted:   r.NewStyle(),
			Success: r.NewStyle(),
			Failure: r.NewStyle(),
			Skipped: r.NewStyle(),
			Running: r.NewStyle(),
			Output:  r.NewStyle(),
			Tree:    r.NewStyle(),
		}
	}
	return Styles{
		Title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),  // Purple
		Muted:   r.NewStyle().Foreground(lipgloss.Color("241")),            // Gray
		Success: r.NewStyle().Bold(true).Foreground(lipgloss.Color("46")),  // Green
		Failure: r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")), // Red
		Skipped: r.NewStyle().Foreground(lipgloss.Color("226")),            // Yellow
		Running: r.NewStyle().Foreground(lipgloss.Color("86")),             // Cyan
		Output:  r.NewStyle().Foreground(lipgloss.Color("245")),
		Tree:    r.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// Phase renders a phase glyph and name.
func (s Styles) Phase(p status.Phase) string {
	return s.ForPhase(p).Render(Glyph(p) + " " + p.String())
}

// ForPhase picks the style for p.
func (s Styles) ForPhase(p status.Phase) lipgloss.Style {
	switch p {
	case status.Succeeded:
		return s.Success
	case status.Failed:
		return s.Failure
	case status.Skipped:
		return s.Skipped
	case status.Running:
		return s.Running
	default:
		return s.Muted
	}
}

// Glyph returns the one-character marker for p.
func Glyph(p status.Phase) string {
	switch p {
	case status.Succeeded:
		return "✓"
	case status.Failed:
		return "✗"
	case status.Skipped:
		return "⊘"
	case status.Running:
		return "▶"
	default:
		return "·"
	}
}
