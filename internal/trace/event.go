package trace

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/jobbook/internal/engine"
)

// Event is one line of a run log.
type Event struct {
	// ID is a unique identifier for this event
	ID string `json:"id"`

	// Type is the engine event type
	Type engine.EventType `json:"type"`

	// Timestamp is when the event occurred
	Timestamp time.Time `json:"timestamp"`

	// RunID identifies the run this event belongs to
	RunID string `json:"run_id"`

	Job      string `json:"job"`
	Path     string `json:"path,omitempty"`
	Template string `json:"template,omitempty"`
	Stage    int    `json:"stage,omitempty"`
	Task     string `json:"task,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Phase    string `json:"phase"`

	// Reason is the skip or failure reason
	Reason   string `json:"reason,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`

	// Duration is set on finished events
	Duration *time.Duration `json:"duration,omitempty"`
}

// FromEngine converts an engine event into a log event with a fresh ID.
func FromEngine(e engine.Event) *Event {
	ev := &Event{
		ID:        uuid.NewString(),
		Type:      e.Type,
		Timestamp: e.Time,
		RunID:     e.RunID,
		Job:       e.Job,
		Path:      e.Path,
		Template:  e.Template,
		Stage:     e.Stage,
		Task:      e.Task,
		Phase:     e.Phase.String(),
		Reason:    e.Reason,
		ExitCode:  e.ExitCode,
	}
	if e.Task != "" {
		ev.Kind = e.Kind.String()
	}
	if e.Duration > 0 {
		d := e.Duration
		ev.Duration = &d
	}
	return ev
}

// ToJSON serializes the event as a single line
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Finished reports whether the event closes a job, template, stage or task.
func (e *Event) Finished() bool {
	switch e.Type {
	case engine.EventJobFinished, engine.EventTemplateFinished,
		engine.EventStageFinished, engine.EventTaskFinished, engine.EventTaskSkipped:
		return true
	}
	return false
}
