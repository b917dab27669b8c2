package plan

import (
	"slices"
	"strings"
)

// Selector decides task eligibility from include and exclude tag sets.
// The zero value admits every task.
type Selector struct {
	include map[string]struct{}
	exclude map[string]struct{}
}

// NewSelector builds a selector. Empty or blank tags are ignored.
func NewSelector(include, exclude []string) Selector {
	return Selector{include: toSet(include), exclude: toSet(exclude)}
}

func toSet(tags []string) map[string]struct{} {
	var set map[string]struct{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if set == nil {
			set = make(map[string]struct{})
		}
		set[t] = struct{}{}
	}
	return set
}

// Eligible reports whether a task with the given labels may run. A label in
// the exclude set always wins. With a non-empty include set, at least one
// label must be in it.
func (s Selector) Eligible(labels []string) bool {
	for _, l := range labels {
		if _, ok := s.exclude[l]; ok {
			return false
		}
	}
	if len(s.include) == 0 {
		return true
	}
	for _, l := range labels {
		if _, ok := s.include[l]; ok {
			return true
		}
	}
	return false
}

// Include returns the include tags, sorted.
func (s Selector) Include() []string { return sortedKeys(s.include) }

// Exclude returns the exclude tags, sorted.
func (s Selector) Exclude() []string { return sortedKeys(s.exclude) }

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
