// Package plan checks a job's template graph before anything runs and decides
// which tasks a tag selection lets through.
package plan

import (
	"fmt"
	"slices"
	"strings"

	jerrors "github.com/felixgeelhaar/jobbook/internal/errors"
	"github.com/felixgeelhaar/jobbook/internal/job"
)

// CycleError names the templates forming a reference loop. Path starts and
// ends with the same template.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "cycle: " + strings.Join(e.Path, " -> ")
}

// UnknownReferenceError reports a template name that does not exist. Template
// is the referring template, or empty when the entrypoint is unknown.
type UnknownReferenceError struct {
	Name     string
	Template string
}

func (e *UnknownReferenceError) Error() string {
	if e.Template == "" {
		return fmt.Sprintf("unknown entrypoint template %q", e.Name)
	}
	return fmt.Sprintf("unknown template %q referenced from %q", e.Name, e.Template)
}

// Validate checks that entrypoint (or the spec's own entrypoint when empty)
// exists, that every template reference resolves and that the reference graph
// is acyclic. It has no side effects.
//
// Errors are coded *errors.JobbookError values wrapping a *CycleError or
// *UnknownReferenceError.
func Validate(spec *job.Spec, entrypoint string) error {
	if spec == nil {
		return jerrors.NewJobInvalidError("no job loaded")
	}
	if entrypoint == "" {
		entrypoint = spec.Entrypoint
	}
	if _, ok := spec.Template(entrypoint); !ok {
		return jerrors.NewUnknownEntrypointError(entrypoint, &UnknownReferenceError{Name: entrypoint})
	}

	names := spec.TemplateNames()
	graph := make(map[string][]string, len(names))
	for _, name := range names {
		refs := spec.Templates[name].References()
		for _, ref := range refs {
			if _, ok := spec.Template(ref); !ok {
				return jerrors.NewUnknownTemplateError(ref, name, &UnknownReferenceError{Name: ref, Template: name})
			}
		}
		graph[name] = refs
	}

	if path := findCycle(names, graph); path != nil {
		return jerrors.NewCycleError(&CycleError{Path: path})
	}
	return nil
}

// findCycle runs a depth-first search tracking which templates are on the
// current path. A revisit of an on-path template closes a loop.
func findCycle(names []string, graph map[string][]string) []string {
	visited := make(map[string]bool, len(names))
	onPath := make(map[string]bool)
	var path []string

	var visit func(name string) []string
	visit = func(name string) []string {
		visited[name] = true
		onPath[name] = true
		path = append(path, name)

		for _, ref := range graph[name] {
			if onPath[ref] {
				start := slices.Index(path, ref)
				loop := slices.Clone(path[start:])
				return append(loop, ref)
			}
			if !visited[ref] {
				if loop := visit(ref); loop != nil {
					return loop
				}
			}
		}

		onPath[name] = false
		path = path[:len(path)-1]
		return nil
	}

	for _, name := range names {
		if !visited[name] {
			if loop := visit(name); loop != nil {
				return loop
			}
		}
	}
	return nil
}

// Reachable returns the templates reachable from entrypoint, entrypoint
// first, in depth-first order. The graph must already be valid.
func Reachable(spec *job.Spec, entrypoint string) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(string)
	walk = func(name string) {
		t, ok := spec.Template(name)
		if !ok || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
		for _, ref := range t.References() {
			walk(ref)
		}
	}
	walk(entrypoint)
	return out
}
