// Package progress prints a live line-per-event view of a running job.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/felixgeelhaar/jobbook/internal/engine"
	"github.com/felixgeelhaar/jobbook/internal/job"
	"github.com/felixgeelhaar/jobbook/internal/status"
)

// Indicator is an engine observer that reports task starts and settlements
// as they happen. On a terminal it also keeps a spinner status line with
// running counts.
type Indicator struct {
	writer      io.Writer
	startTime   time.Time
	mu          sync.Mutex
	showSpinner bool
	spinnerIdx  int
	stopChan    chan struct{}
	stopOnce    sync.Once
	isCI        bool
	verbose     bool

	running int
	counts  status.Counts
}

// Config holds configuration for progress indicator
type Config struct {
	Writer      io.Writer
	ShowSpinner bool
	IsCI        bool // Set to true in CI/CD environments to disable fancy output
	// Verbose also prints template and stage boundaries.
	Verbose bool
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// NewIndicator creates a new progress indicator
func NewIndicator(cfg Config) *Indicator {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}

	if !cfg.IsCI {
		cfg.IsCI = os.Getenv("CI") == "true" || os.Getenv("GITHUB_ACTIONS") == "true"
	}

	return &Indicator{
		writer:      cfg.Writer,
		startTime:   time.Now(),
		showSpinner: cfg.ShowSpinner && !cfg.IsCI && isTerminal(cfg.Writer),
		stopChan:    make(chan struct{}),
		isCI:        cfg.IsCI,
		verbose:     cfg.Verbose,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Start begins the spinner, if enabled.
func (p *Indicator) Start() {
	if p.showSpinner {
		go p.spinnerLoop()
	}
}

// Stop stops the progress indicator
func (p *Indicator) Stop() {
	p.stopOnce.Do(func() {
		if p.showSpinner {
			close(p.stopChan)
			p.mu.Lock()
			p.clearLine()
			p.mu.Unlock()
		}
	})
}

func (p *Indicator) spinnerLoop() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.mu.Lock()
			p.spinnerIdx = (p.spinnerIdx + 1) % len(spinnerFrames)
			p.renderStatus()
			p.mu.Unlock()
		}
	}
}

func (p *Indicator) clearLine() {
	fmt.Fprintf(p.writer, "\r%s\r", strings.Repeat(" ", 80))
}

func (p *Indicator) renderStatus() {
	fmt.Fprintf(p.writer, "\r%s %d running | ✓ %d | ✗ %d | ⊘ %d | %s",
		spinnerFrames[p.spinnerIdx],
		p.running,
		p.counts.Succeeded,
		p.counts.Failed,
		p.counts.Skipped,
		formatDuration(time.Since(p.startTime)),
	)
}

// OnEvent implements engine.Observer.
func (p *Indicator) OnEvent(e engine.Event) {
	line := p.line(e)

	p.mu.Lock()
	defer p.mu.Unlock()

	if e.Kind == job.KindScript {
		switch e.Type {
		case engine.EventTaskStarted:
			p.running++
		case engine.EventTaskFinished:
			p.running--
			p.counts.Add(e.Phase)
		case engine.EventTaskSkipped:
			p.counts.Add(e.Phase)
		}
	}

	if line == "" {
		return
	}
	if p.showSpinner {
		p.clearLine()
	}
	fmt.Fprintln(p.writer, line)
	if p.showSpinner {
		p.renderStatus()
	}
}

func (p *Indicator) line(e engine.Event) string {
	switch e.Type {
	case engine.EventJobStarted:
		return fmt.Sprintf("▶ job %s (run %s)", e.Job, shortID(e.RunID))
	case engine.EventJobFinished:
		return fmt.Sprintf("%s job %s %s in %s", glyph(e.Phase), e.Job, e.Phase, formatDuration(e.Duration))
	case engine.EventTemplateStarted, engine.EventStageStarted:
		if p.verbose {
			return fmt.Sprintf("  ▶ %s", e.Path)
		}
	case engine.EventTemplateFinished, engine.EventStageFinished:
		if p.verbose {
			return fmt.Sprintf("  %s %s %s", glyph(e.Phase), e.Path, e.Phase)
		}
	case engine.EventTaskStarted:
		if e.Kind == job.KindScript {
			return fmt.Sprintf("  ▶ %s", e.Path)
		}
	case engine.EventTaskFinished:
		if e.Kind != job.KindScript {
			return ""
		}
		s := fmt.Sprintf("  %s %s (%s)", glyph(e.Phase), e.Path, formatDuration(e.Duration))
		if e.Phase == status.Failed {
			if e.ExitCode != nil {
				s += fmt.Sprintf(" exit %d", *e.ExitCode)
			}
			if r := firstLine(e.Reason); r != "" {
				s += ": " + r
			}
		}
		return s
	case engine.EventTaskSkipped:
		return fmt.Sprintf("  %s %s (%s)", glyph(status.Skipped), e.Path, e.Reason)
	}
	return ""
}

func glyph(p status.Phase) string {
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

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatDuration formats a duration in human-readable form
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
