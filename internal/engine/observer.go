package engine

import (
	"sync"
	"time"

	"github.com/felixgeelhaar/jobbook/internal/job"
	"github.com/felixgeelhaar/jobbook/internal/status"
)

// EventType identifies a lifecycle event.
type EventType string

const (
	EventJobStarted       EventType = "job_started"
	EventJobFinished      EventType = "job_finished"
	EventTemplateStarted  EventType = "template_started"
	EventTemplateFinished EventType = "template_finished"
	EventStageStarted     EventType = "stage_started"
	EventStageFinished    EventType = "stage_finished"
	EventTaskStarted      EventType = "task_started"
	EventTaskFinished     EventType = "task_finished"
	EventTaskSkipped      EventType = "task_skipped"
)

// Event describes one lifecycle change. Events carry copies, never pointers
// into the run tree.
type Event struct {
	Type     EventType
	RunID    string
	Job      string
	Time     time.Time
	Path     string
	Template string
	Stage    int
	Task     string
	Kind     job.Kind
	Phase    status.Phase
	// Reason is the skip reason for skipped tasks and the failure reason for
	// failed scripts.
	Reason   string
	ExitCode *int
	Duration time.Duration
}

// Observer receives events. OnEvent is called from many goroutines at once
// and must not block for long.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

type multiObserver []Observer

func (m multiObserver) OnEvent(e Event) {
	for _, o := range m {
		o.OnEvent(e)
	}
}

// Recorder is an Observer that keeps every event, for tests and trace output.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) OnEvent(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events in arrival order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType filters recorded events.
func (r *Recorder) OfType(t EventType) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
