package tui

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/jobbook/internal/engine"
)

// Adapter bridges engine events into a running bubbletea program. It is an
// engine.Observer.
type Adapter struct {
	program *tea.Program
	done    chan error
}

// AdapterOption configures the underlying program.
type AdapterOption func(*[]tea.ProgramOption)

// WithIO overrides the program's terminal, for tests.
func WithIO(in io.Reader, out io.Writer) AdapterOption {
	return func(opts *[]tea.ProgramOption) {
		*opts = append(*opts, tea.WithInput(in), tea.WithOutput(out))
	}
}

// NewAdapter creates the program for jobName. interrupt is called when the
// user presses q during the run.
func NewAdapter(jobName string, interrupt func(), opts ...AdapterOption) *Adapter {
	var programOpts []tea.ProgramOption
	for _, opt := range opts {
		opt(&programOpts)
	}
	return &Adapter{
		program: tea.NewProgram(NewModel(jobName, interrupt), programOpts...),
		done:    make(chan error, 1),
	}
}

// Start runs the program in the background.
func (a *Adapter) Start() {
	go func() {
		_, err := a.program.Run()
		a.done <- err
	}()
}

// OnEvent implements engine.Observer.
func (a *Adapter) OnEvent(e engine.Event) {
	a.program.Send(EventMsg{Event: e})
}

// Finish hands the settled run to the program and waits for it to exit.
func (a *Adapter) Finish(run *engine.JobRun) error {
	a.program.Send(DoneMsg{Run: run})
	if err := <-a.done; err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
