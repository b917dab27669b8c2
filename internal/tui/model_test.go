package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/jobbook/internal/engine"
	"github.com/felixgeelhaar/jobbook/internal/job"
	"github.com/felixgeelhaar/jobbook/internal/status"
)

func send(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestNewModel(t *testing.T) {
	m := NewModel("nightly", nil)

	if m.jobName != "nightly" {
		t.Errorf("Expected job name 'nightly', got '%s'", m.jobName)
	}
	if m.phase != status.Pending {
		t.Errorf("Expected pending phase, got %v", m.phase)
	}
	if m.Init() == nil {
		t.Error("Expected Init to start the spinner")
	}
}

func TestTaskEvents(t *testing.T) {
	code := 3
	m := send(NewModel("nightly", nil),
		EventMsg{engine.Event{Type: engine.EventJobStarted, RunID: "run-1"}},
		EventMsg{engine.Event{Type: engine.EventTaskStarted, Kind: job.KindScript, Path: "main/1/a"}},
		EventMsg{engine.Event{Type: engine.EventTaskStarted, Kind: job.KindScript, Path: "main/1/b"}},
		EventMsg{engine.Event{Type: engine.EventTaskStarted, Kind: job.KindTemplate, Path: "main/1/@t"}},
	)

	if len(m.running) != 2 {
		t.Fatalf("Expected 2 running tasks, got %d", len(m.running))
	}
	if m.phase != status.Running {
		t.Errorf("Expected running phase, got %v", m.phase)
	}

	m = send(m,
		EventMsg{engine.Event{Type: engine.EventTaskFinished, Kind: job.KindScript, Path: "main/1/a", Phase: status.Succeeded, Duration: time.Second}},
		EventMsg{engine.Event{Type: engine.EventTaskFinished, Kind: job.KindScript, Path: "main/1/b", Phase: status.Failed, ExitCode: &code, Reason: "bad thing\nsecond"}},
		EventMsg{engine.Event{Type: engine.EventTaskSkipped, Kind: job.KindScript, Path: "main/2/c", Phase: status.Skipped, Reason: "fail-fast"}},
	)

	if len(m.running) != 0 {
		t.Errorf("Expected no running tasks, got %d", len(m.running))
	}
	if m.counts.Succeeded != 1 || m.counts.Failed != 1 || m.counts.Skipped != 1 {
		t.Errorf("Unexpected counts %+v", m.counts)
	}

	view := m.View()
	for _, want := range []string{"nightly", "run run-1", "main/1/a", "main/1/b", "exit 3", "bad thing"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q\n%s", want, view)
		}
	}
	if strings.Contains(view, "main/2/c") {
		t.Error("Expected skipped tasks to be hidden by default")
	}

	m = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("v")})
	if !strings.Contains(m.View(), "main/2/c") {
		t.Error("Expected skipped tasks after toggling verbose mode")
	}
}

func TestRecentIsBounded(t *testing.T) {
	m := NewModel("nightly", nil)
	for i := 0; i < maxRecent+5; i++ {
		m = send(m, EventMsg{engine.Event{Type: engine.EventTaskFinished, Kind: job.KindScript, Path: "p", Phase: status.Succeeded}})
	}
	if got := len(m.visibleRecent()); got != maxRecent {
		t.Errorf("Expected %d visible lines, got %d", maxRecent, got)
	}
}

func TestQuitInterruptsOnce(t *testing.T) {
	calls := 0
	m := NewModel("nightly", func() { calls++ })

	m = send(m, tea.KeyMsg{Type: tea.KeyCtrlC}, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	if calls != 1 {
		t.Errorf("Expected one interrupt, got %d", calls)
	}
	if !strings.Contains(m.View(), "interrupting") {
		t.Error("Expected interrupt notice in view")
	}
	if m.quitting {
		t.Error("Expected the view to stay up until the run settles")
	}
}

func TestDoneQuits(t *testing.T) {
	m := NewModel("nightly", nil)
	run := &engine.JobRun{Phase: status.Succeeded}

	next, cmd := m.Update(DoneMsg{Run: run})
	m = next.(Model)

	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
	if !strings.Contains(m.View(), "succeeded") {
		t.Error("Expected final phase in view")
	}
}

func TestAdapterRoundTrip(t *testing.T) {
	var out bytes.Buffer
	a := NewAdapter("nightly", nil, WithIO(nil, &out))
	a.Start()

	a.OnEvent(engine.Event{Type: engine.EventJobStarted, RunID: "run-9"})
	if err := a.Finish(&engine.JobRun{Phase: status.Succeeded}); err != nil {
		t.Fatalf("Finish: %v", err)
	}
}
