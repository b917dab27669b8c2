package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/jobbook/internal/engine"
	"github.com/felixgeelhaar/jobbook/internal/job"
	"github.com/felixgeelhaar/jobbook/internal/status"
)

// maxRecent bounds the finished-task list kept on screen.
const maxRecent = 8

// EventMsg carries one engine event into the program.
type EventMsg struct {
	Event engine.Event
}

// DoneMsg ends the program once the run has settled.
type DoneMsg struct {
	Run *engine.JobRun
}

type keyMap struct {
	Quit    key.Binding
	Verbose key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "interrupt"),
	),
	Verbose: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "toggle skipped"),
	),
}

// taskLine is a settled or running script task.
type taskLine struct {
	path     string
	phase    status.Phase
	reason   string
	exitCode *int
	started  time.Time
	duration time.Duration
}

// Model is the live run view.
type Model struct {
	jobName string
	runID   string
	phase   status.Phase

	running []*taskLine
	recent  []*taskLine
	counts  status.Counts

	startTime   time.Time
	elapsed     time.Duration
	verboseMode bool
	quitting    bool
	interrupted bool
	done        bool

	// interrupt is called once when the user asks to stop the run.
	interrupt func()

	spinner spinner.Model
	styles  Styles
}

// Styles contains lipgloss styles for the TUI
type Styles struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Status  lipgloss.Style
	Help    lipgloss.Style
	Key     lipgloss.Style
}

// DefaultStyles returns the default lipgloss styles
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")). // Purple
			MarginBottom(1),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")), // Gray
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")), // Green
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")), // Red
		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")), // Yellow
		Status: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")), // Cyan
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Key: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")),
	}
}

// NewModel creates the view for a run of jobName. interrupt may be nil.
func NewModel(jobName string, interrupt func()) Model {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("86"))),
	)
	return Model{
		jobName:   jobName,
		phase:     status.Pending,
		startTime: time.Now(),
		interrupt: interrupt,
		spinner:   s,
		styles:    DefaultStyles(),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.elapsed = time.Since(m.startTime)
		return m, cmd

	case EventMsg:
		m.apply(msg.Event)
		return m, nil

	case DoneMsg:
		m.done = true
		if msg.Run != nil {
			m.phase = msg.Run.Phase
			m.elapsed = msg.Run.Duration()
		}
		m.running = nil
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		if m.done {
			m.quitting = true
			return m, tea.Quit
		}
		if !m.interrupted {
			m.interrupted = true
			if m.interrupt != nil {
				m.interrupt()
			}
		}
	case key.Matches(msg, keys.Verbose):
		m.verboseMode = !m.verboseMode
	}
	return m, nil
}

func (m *Model) apply(e engine.Event) {
	switch e.Type {
	case engine.EventJobStarted:
		m.runID = e.RunID
		m.phase = status.Running
		if !e.Time.IsZero() {
			m.startTime = e.Time
		}

	case engine.EventTaskStarted:
		if e.Kind != job.KindScript {
			return
		}
		m.running = append(m.running, &taskLine{path: e.Path, phase: status.Running, started: e.Time})

	case engine.EventTaskFinished:
		if e.Kind != job.KindScript {
			return
		}
		m.removeRunning(e.Path)
		m.counts.Add(e.Phase)
		m.pushRecent(&taskLine{path: e.Path, phase: e.Phase, reason: e.Reason, exitCode: e.ExitCode, duration: e.Duration})

	case engine.EventTaskSkipped:
		if e.Kind == job.KindScript {
			m.counts.Add(status.Skipped)
		}
		m.pushRecent(&taskLine{path: e.Path, phase: status.Skipped, reason: e.Reason})

	case engine.EventJobFinished:
		m.phase = e.Phase
		m.elapsed = e.Duration
	}
}

func (m *Model) removeRunning(path string) {
	for i, t := range m.running {
		if t.path == path {
			m.running = append(m.running[:i], m.running[i+1:]...)
			return
		}
	}
}

func (m *Model) pushRecent(t *taskLine) {
	m.recent = append(m.recent, t)
}

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderMain()
}
