package job

import (
	"fmt"
	"strings"

	jerrors "github.com/felixgeelhaar/jobbook/internal/errors"
)

// ValidationError lists every problem found in a spec.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// Validate checks the structural invariants of s: an entrypoint that names a
// template, positive caps, tasks holding exactly one variant and template
// references that resolve. Cycle detection lives in the plan package.
func (s *Spec) Validate() error {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(s.Templates) == 0 {
		addf("job defines no templates")
	}
	if s.Entrypoint == "" {
		addf("entrypoint is required")
	} else if _, ok := s.Templates[s.Entrypoint]; !ok && len(s.Templates) > 0 {
		addf("entrypoint %q does not name a template", s.Entrypoint)
	}
	if s.Parallelism != nil && *s.Parallelism < 1 {
		addf("job parallelism must be at least 1, got %d", *s.Parallelism)
	}

	for _, name := range s.TemplateNames() {
		t := s.Templates[name]
		if t == nil {
			addf("template %q is nil", name)
			continue
		}
		if name == "" || t.Name != name {
			addf("template registered as %q is named %q", name, t.Name)
		}
		if t.Parallelism != nil && *t.Parallelism < 1 {
			addf("template %q: parallelism must be at least 1, got %d", name, *t.Parallelism)
		}
		for si, stage := range t.Stages {
			for ti, task := range stage {
				where := fmt.Sprintf("template %q stage %d task %d", name, si+1, ti+1)
				switch {
				case task.Script != nil && task.Template != nil:
					addf("%s: has both script and template", where)
				case task.Script == nil && task.Template == nil:
					addf("%s: needs a script or a template", where)
				case task.Template != nil:
					if _, ok := s.Templates[task.Template.Name]; !ok {
						addf("%s: references unknown template %q", where, task.Template.Name)
					}
				case strings.TrimSpace(task.Script.Source) == "":
					addf("%s: script is empty", where)
				}
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return jerrors.Wrap(jerrors.ErrCodeJobInvalid, "invalid job", &ValidationError{Problems: problems}).
		WithSuggestion("Run 'jobbook validate <file>' to see every problem")
}
