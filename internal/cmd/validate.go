package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/jobbook/internal/job"
	"github.com/felixgeelhaar/jobbook/internal/plan"
	"github.com/felixgeelhaar/jobbook/internal/ux"
)

// ValidateResult summarizes a job that passed validation.
type ValidateResult struct {
	Job        string   `json:"job" yaml:"job"`
	File       string   `json:"file" yaml:"file"`
	Entrypoint string   `json:"entrypoint" yaml:"entrypoint"`
	Templates  int      `json:"templates" yaml:"templates"`
	Reachable  []string `json:"reachable" yaml:"reachable"`
	Tasks      int      `json:"tasks" yaml:"tasks"`
	Labels     []string `json:"labels,omitempty" yaml:"labels,omitempty"`
	SpecHash   string   `json:"spec_hash" yaml:"spec_hash"`
}

// RenderText implements ux.TextRenderer.
func (r *ValidateResult) RenderText(w io.Writer, s ux.Styles) error {
	_, err := fmt.Fprintf(w, "%s job %s is valid\n"+
		"  entrypoint:  %s\n"+
		"  templates:   %d (%d reachable)\n"+
		"  tasks:       %d\n"+
		"  fingerprint: %s\n",
		s.Success.Render("✓"), s.Title.Render(r.Job),
		r.Entrypoint, r.Templates, len(r.Reachable), r.Tasks, s.Muted.Render(r.SpecHash))
	return err
}

func newValidateCommand() *cobra.Command {
	var entrypoint string
	c := &cobra.Command{
		Use:   "validate [JOB.yaml]",
		Short: "Check a job file without running it",
		Long: `Load a job file and check its template graph: every referenced template
exists, the entrypoint exists and no template reaches itself.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			path, err := jobPath(args)
			if err != nil {
				return err
			}
			result, err := validateJob(path, entrypoint)
			if err != nil {
				cmdCtx.Logger.LogError(cmd.Context(), "validation failed", err)
				return err
			}
			f, err := cmdCtx.Formatter()
			if err != nil {
				return err
			}
			return f.Format(result)
		},
	}
	c.Flags().StringVar(&entrypoint, "entrypoint", "", "validate from this template instead of the job's entrypoint")
	return c
}

func validateJob(path, entrypoint string) (*ValidateResult, error) {
	spec, err := job.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(spec, entrypoint); err != nil {
		return nil, err
	}
	if entrypoint == "" {
		entrypoint = spec.Entrypoint
	}
	hash, err := job.Hash(spec)
	if err != nil {
		return nil, fmt.Errorf("fingerprint job: %w", err)
	}

	reachable := plan.Reachable(spec, entrypoint)
	tasks := 0
	for _, name := range reachable {
		t, _ := spec.Template(name)
		tasks += t.TaskCount()
	}

	return &ValidateResult{
		Job:        spec.Name,
		File:       path,
		Entrypoint: entrypoint,
		Templates:  len(spec.Templates),
		Reachable:  reachable,
		Tasks:      tasks,
		Labels:     spec.Labels(),
		SpecHash:   hash,
	}, nil
}
