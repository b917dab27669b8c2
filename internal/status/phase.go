// Package status defines the lifecycle phases shared by every node of a run
// tree and the rules for combining child phases into a parent phase.
package status

import (
	"fmt"
	"strings"
)

// Phase is the lifecycle state of a task, stage, template or job.
type Phase int

const (
	Pending Phase = iota
	Running
	Succeeded
	Failed
	Skipped
)

var phaseNames = [...]string{
	Pending:   "pending",
	Running:   "running",
	Succeeded: "succeeded",
	Failed:    "failed",
	Skipped:   "skipped",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// ParsePhase converts a phase name back into a Phase.
func ParsePhase(s string) (Phase, error) {
	for i, name := range phaseNames {
		if strings.EqualFold(s, name) {
			return Phase(i), nil
		}
	}
	return Pending, fmt.Errorf("unknown phase %q", s)
}

// MarshalText implements encoding.TextMarshaler so phases render by name in
// JSON and YAML reports.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(b []byte) error {
	parsed, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// IsTerminal reports whether no further transition may leave p.
func (p Phase) IsTerminal() bool {
	return p == Succeeded || p == Failed || p == Skipped
}

// TransitionError is returned for a move the lifecycle does not allow.
type TransitionError struct {
	From, To Phase
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid phase transition %s -> %s", e.From, e.To)
}

// CanTransition reports whether a leaf node may move from one phase to another.
//
//	pending -> running -> succeeded | failed
//	pending -> skipped
func CanTransition(from, to Phase) bool {
	switch from {
	case Pending:
		return to == Running || to == Skipped
	case Running:
		return to == Succeeded || to == Failed
	default:
		return false
	}
}

// CanSettleComposite reports whether a node whose outcome is computed from
// children may move from one phase to another. Such a node starts running
// before it knows whether any child will run, so running -> skipped is legal.
func CanSettleComposite(from, to Phase) bool {
	if from == Running && to == Skipped {
		return true
	}
	return CanTransition(from, to)
}

// Transition validates a leaf transition and returns the new phase.
func Transition(from, to Phase) (Phase, error) {
	if !CanTransition(from, to) {
		return from, &TransitionError{From: from, To: to}
	}
	return to, nil
}

// Aggregate folds terminal child phases into a parent phase. Failed dominates,
// then Succeeded if any child succeeded, else Skipped. Zero children yields
// Skipped. The fold is commutative so settle order does not matter.
func Aggregate(phases ...Phase) Phase {
	out := Skipped
	for _, p := range phases {
		switch p {
		case Failed:
			return Failed
		case Succeeded:
			out = Succeeded
		}
	}
	return out
}

// Counts tallies phases by value.
type Counts struct {
	Pending   int `json:"pending,omitempty" yaml:"pending,omitempty"`
	Running   int `json:"running,omitempty" yaml:"running,omitempty"`
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`
	Skipped   int `json:"skipped" yaml:"skipped"`
}

// Add records one phase.
func (c *Counts) Add(p Phase) {
	switch p {
	case Pending:
		c.Pending++
	case Running:
		c.Running++
	case Succeeded:
		c.Succeeded++
	case Failed:
		c.Failed++
	case Skipped:
		c.Skipped++
	}
}

// Total returns the number of recorded phases.
func (c Counts) Total() int {
	return c.Pending + c.Running + c.Succeeded + c.Failed + c.Skipped
}
