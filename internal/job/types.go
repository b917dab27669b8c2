// Package job holds the in-memory job specification: named templates made of
// ordered stages, each stage a set of tasks that run concurrently.
package job

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultExecutor is the interpreter used when a script names none.
const DefaultExecutor = "bash"

// DefaultWorkingDir is the directory a script runs in when none is given.
const DefaultWorkingDir = "."

// Spec is a complete job: an entrypoint plus the templates it may reach.
// It is read-only once loaded.
type Spec struct {
	Name       string
	Entrypoint string
	// Parallelism caps concurrently running script tasks across the whole
	// run. Nil means unbounded.
	Parallelism *int
	Templates   map[string]*Template

	// order keeps templates in declaration order for listing.
	order []string
}

// NewSpec builds a Spec from templates in the given order.
func NewSpec(name, entrypoint string, templates ...*Template) *Spec {
	s := &Spec{
		Name:       name,
		Entrypoint: entrypoint,
		Templates:  make(map[string]*Template, len(templates)),
	}
	for _, t := range templates {
		s.AddTemplate(t)
	}
	return s
}

// AddTemplate registers t, replacing any template with the same name.
func (s *Spec) AddTemplate(t *Template) {
	if s.Templates == nil {
		s.Templates = make(map[string]*Template)
	}
	if _, exists := s.Templates[t.Name]; !exists {
		s.order = append(s.order, t.Name)
	}
	s.Templates[t.Name] = t
}

// WithParallelism sets the job-level cap and returns s.
func (s *Spec) WithParallelism(n int) *Spec {
	s.Parallelism = &n
	return s
}

// Template looks up a template by name.
func (s *Spec) Template(name string) (*Template, bool) {
	t, ok := s.Templates[name]
	return t, ok
}

// TemplateNames returns template names in declaration order. Templates added
// directly to the map without AddTemplate are appended in sorted order.
func (s *Spec) TemplateNames() []string {
	names := make([]string, 0, len(s.Templates))
	seen := make(map[string]bool, len(s.Templates))
	for _, name := range s.order {
		if _, ok := s.Templates[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range s.Templates {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	return append(names, rest...)
}

// Labels returns every label used by any task, sorted.
func (s *Spec) Labels() []string {
	set := make(map[string]struct{})
	for _, t := range s.Templates {
		for _, stage := range t.Stages {
			for _, task := range stage {
				for _, l := range task.Labels {
					set[l] = struct{}{}
				}
			}
		}
	}
	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

// Template is a named, reusable sequence of stages.
type Template struct {
	Name string
	// Parallelism caps concurrently running direct children. Nil inherits
	// the nearest enclosing cap.
	Parallelism *int
	Stages      []Stage
}

// NewTemplate builds a template from stages.
func NewTemplate(name string, stages ...Stage) *Template {
	return &Template{Name: name, Stages: stages}
}

// WithParallelism sets the template cap and returns t.
func (t *Template) WithParallelism(n int) *Template {
	t.Parallelism = &n
	return t
}

// TaskCount returns the number of tasks across all stages.
func (t *Template) TaskCount() int {
	n := 0
	for _, stage := range t.Stages {
		n += len(stage)
	}
	return n
}

// References returns the distinct template names referenced by t's tasks,
// in first-seen order.
func (t *Template) References() []string {
	var refs []string
	for _, stage := range t.Stages {
		for _, task := range stage {
			if task.Template != nil && !slices.Contains(refs, task.Template.Name) {
				refs = append(refs, task.Template.Name)
			}
		}
	}
	return refs
}

// Stage is a set of tasks that run concurrently.
type Stage []Task

// Kind tells the two task variants apart.
type Kind int

const (
	KindScript Kind = iota
	KindTemplate
)

func (k Kind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindTemplate:
		return "template"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText renders the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Task is one unit of a stage. Exactly one of Script or Template is set.
type Task struct {
	Name   string
	Labels []string

	Script   *Script
	Template *TemplateRef
}

// Kind reports which variant t holds.
func (t Task) Kind() Kind {
	if t.Template != nil {
		return KindTemplate
	}
	return KindScript
}

// DisplayName returns the task name, falling back to a short description
// of what it runs.
func (t Task) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	if t.Template != nil {
		return "@" + t.Template.Name
	}
	if t.Script != nil {
		line, _, _ := strings.Cut(strings.TrimSpace(t.Script.Source), "\n")
		if len(line) > 40 {
			line = line[:37] + "..."
		}
		return line
	}
	return "<empty>"
}

// Script runs Source through an interpreter as a local process.
type Script struct {
	Source       string
	Executor     string
	ExecutorArgs []string
	WorkingDir   string
}

// Interpreter returns the executor, defaulting to bash.
func (s *Script) Interpreter() string {
	if s.Executor == "" {
		return DefaultExecutor
	}
	return s.Executor
}

// Dir returns the working directory, defaulting to ".".
func (s *Script) Dir() string {
	if s.WorkingDir == "" {
		return DefaultWorkingDir
	}
	return s.WorkingDir
}

// TemplateRef expands another template in place of the task.
type TemplateRef struct {
	Name string
}

// ScriptTask is a shorthand constructor used by callers building specs in code.
func ScriptTask(name, source string, labels ...string) Task {
	return Task{Name: name, Labels: labels, Script: &Script{Source: source}}
}

// TemplateTask is a shorthand constructor for a template reference.
func TemplateTask(name, template string, labels ...string) Task {
	return Task{Name: name, Labels: labels, Template: &TemplateRef{Name: template}}
}
