package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/jobbook/internal/job"
	"github.com/felixgeelhaar/jobbook/internal/plan"
	"github.com/felixgeelhaar/jobbook/internal/ux"
)

// TemplateSummary describes one template of a job.
type TemplateSummary struct {
	Name        string   `json:"name" yaml:"name"`
	Entrypoint  bool     `json:"entrypoint" yaml:"entrypoint"`
	Reachable   bool     `json:"reachable" yaml:"reachable"`
	Parallelism *int     `json:"parallelism,omitempty" yaml:"parallelism,omitempty"`
	Stages      int      `json:"stages" yaml:"stages"`
	Tasks       int      `json:"tasks" yaml:"tasks"`
	References  []string `json:"references,omitempty" yaml:"references,omitempty"`
	Labels      []string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// TemplateList is the output of the templates command.
type TemplateList struct {
	Job       string            `json:"job" yaml:"job"`
	Templates []TemplateSummary `json:"templates" yaml:"templates"`
}

// RenderText implements ux.TextRenderer.
func (l *TemplateList) RenderText(w io.Writer, s ux.Styles) error {
	fmt.Fprintf(w, "%s %s\n", s.Title.Render("job"), s.Title.Render(l.Job))
	for _, t := range l.Templates {
		marker := " "
		if t.Entrypoint {
			marker = "*"
		}
		line := fmt.Sprintf("%s %-20s %d stage(s), %d task(s)", marker, t.Name, t.Stages, t.Tasks)
		if t.Parallelism != nil {
			line += fmt.Sprintf(", parallelism %d", *t.Parallelism)
		}
		if !t.Reachable {
			line += s.Muted.Render(" (unreachable)")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		if len(t.References) > 0 {
			fmt.Fprintf(w, "    uses:   %s\n", strings.Join(t.References, ", "))
		}
		if len(t.Labels) > 0 {
			fmt.Fprintf(w, "    labels: %s\n", strings.Join(t.Labels, ", "))
		}
	}
	return nil
}

func newTemplatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "templates [JOB.yaml]",
		Short: "List the templates of a job",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			path, err := jobPath(args)
			if err != nil {
				return err
			}
			spec, err := job.LoadFile(path)
			if err != nil {
				return err
			}
			f, err := cmdCtx.Formatter()
			if err != nil {
				return err
			}
			return f.Format(listTemplates(spec))
		},
	}
}

func listTemplates(spec *job.Spec) *TemplateList {
	reachable := map[string]bool{}
	for _, name := range plan.Reachable(spec, spec.Entrypoint) {
		reachable[name] = true
	}

	list := &TemplateList{Job: spec.Name}
	for _, name := range spec.TemplateNames() {
		t, _ := spec.Template(name)
		list.Templates = append(list.Templates, TemplateSummary{
			Name:        name,
			Entrypoint:  name == spec.Entrypoint,
			Reachable:   reachable[name],
			Parallelism: t.Parallelism,
			Stages:      len(t.Stages),
			Tasks:       t.TaskCount(),
			References:  t.References(),
			Labels:      templateLabels(t),
		})
	}
	return list
}

func templateLabels(t *job.Template) []string {
	seen := map[string]bool{}
	var out []string
	for _, stage := range t.Stages {
		for _, task := range stage {
			for _, l := range task.Labels {
				if !seen[l] {
					seen[l] = true
					out = append(out, l)
				}
			}
		}
	}
	sort.Strings(out)
	return out
}
