package job

import (
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"
)

// Canonicalize returns a stable JSON form of the spec. Map keys are sorted by
// encoding/json, templates are keyed by name and labels keep declared order.
func Canonicalize(s *Spec) ([]byte, error) {
	templates := make(map[string]any, len(s.Templates))
	for name, t := range s.Templates {
		stages := make([]any, len(t.Stages))
		for i, stage := range t.Stages {
			tasks := make([]any, len(stage))
			for j, task := range stage {
				tasks[j] = canonicalTask(task)
			}
			stages[i] = tasks
		}
		tm := map[string]any{"stages": stages}
		if t.Parallelism != nil {
			tm["parallelism"] = *t.Parallelism
		}
		templates[name] = tm
	}

	data := map[string]any{
		"name":       s.Name,
		"entrypoint": s.Entrypoint,
		"templates":  templates,
	}
	if s.Parallelism != nil {
		data["parallelism"] = *s.Parallelism
	}
	return json.Marshal(data)
}

func canonicalTask(t Task) map[string]any {
	m := map[string]any{"name": t.Name}
	if len(t.Labels) > 0 {
		m["labels"] = t.Labels
	}
	if t.Template != nil {
		m["template"] = t.Template.Name
		return m
	}
	if t.Script != nil {
		m["script"] = t.Script.Source
		m["executor"] = t.Script.Interpreter()
		m["working_dir"] = t.Script.Dir()
		if len(t.Script.ExecutorArgs) > 0 {
			m["executor_args"] = t.Script.ExecutorArgs
		}
	}
	return m
}

// Hash computes the blake3 fingerprint of the canonical spec.
func Hash(s *Spec) (string, error) {
	canonical, err := Canonicalize(s)
	if err != nil {
		return "", fmt.Errorf("canonicalize job: %w", err)
	}

	hasher := blake3.New()
	if _, err := hasher.Write(canonical); err != nil {
		return "", fmt.Errorf("hash job: %w", err)
	}

	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}
