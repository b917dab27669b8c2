// Package trace writes run event logs as JSON lines, one file per run, and
// reads them back for the logs command.
package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/jobbook/internal/engine"
)

const fileExt = ".jsonl"

// Logger is an engine observer that appends every event to
// <dir>/<run id>.jsonl. The file is opened on the first event, since the
// run ID is only known once the run starts.
type Logger struct {
	dir string

	// mu protects concurrent writes
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	err  error
}

// DefaultDir returns ~/.jobbook/runs.
func DefaultDir() string {
	homeDir, _ := os.UserHomeDir() // Best-effort, falls back to current directory
	return filepath.Join(homeDir, ".jobbook", "runs")
}

// NewLogger creates the log directory and returns a logger writing into it.
func NewLogger(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &Logger{dir: dir}, nil
}

// OnEvent implements engine.Observer. Write failures are kept and reported
// by Close; they never interrupt the run.
func (l *Logger) OnEvent(e engine.Event) {
	ev := FromEngine(e)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return
	}
	if l.file == nil {
		if err := l.open(ev.RunID); err != nil {
			l.err = err
			return
		}
	}
	if err := l.enc.Encode(ev); err != nil {
		l.err = fmt.Errorf("failed to write event: %w", err)
	}
}

func (l *Logger) open(runID string) error {
	if runID == "" {
		return fmt.Errorf("event has no run id")
	}
	path := filepath.Join(l.dir, runID+fileExt)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	l.file = f
	l.enc = json.NewEncoder(f)
	return nil
}

// Path returns the file being written, or "" before the first event.
func (l *Logger) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Close closes the file and returns the first write error, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		if err := l.file.Close(); err != nil && l.err == nil {
			l.err = err
		}
		l.file = nil
	}
	return l.err
}

// RunSummary describes one logged run.
type RunSummary struct {
	ID        string        `json:"id"`
	Job       string        `json:"job"`
	Phase     string        `json:"phase"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Events    int           `json:"events"`
	Path      string        `json:"path"`
}

// ListRuns summarizes every run log in dir, newest first. A missing
// directory yields no runs.
func ListRuns(dir string) ([]RunSummary, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read log directory: %w", err)
	}

	var runs []RunSummary
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		events, err := readFile(path)
		if err != nil || len(events) == 0 {
			continue
		}
		runs = append(runs, summarize(path, events))
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

func summarize(path string, events []*Event) RunSummary {
	first := events[0]
	s := RunSummary{
		ID:        first.RunID,
		Job:       first.Job,
		Phase:     "running",
		StartedAt: first.Timestamp,
		Events:    len(events),
		Path:      path,
	}
	last := events[len(events)-1]
	if last.Type == engine.EventJobFinished {
		s.Phase = last.Phase
		if last.Duration != nil {
			s.Duration = *last.Duration
		}
	}
	return s
}

// ReadRun loads the events of one run. id may be a unique prefix.
func ReadRun(dir, id string) ([]*Event, error) {
	path := filepath.Join(dir, id+fileExt)
	if _, err := os.Stat(path); err != nil {
		matches, _ := filepath.Glob(filepath.Join(dir, id+"*"+fileExt))
		switch len(matches) {
		case 0:
			return nil, fmt.Errorf("no run log for %q in %s", id, dir)
		case 1:
			path = matches[0]
		default:
			return nil, fmt.Errorf("run id %q is ambiguous (%d matches)", id, len(matches))
		}
	}
	return readFile(path)
}

func readFile(path string) ([]*Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []*Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if len(strings.TrimSpace(scanner.Text())) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		events = append(events, &ev)
	}
	return events, scanner.Err()
}
