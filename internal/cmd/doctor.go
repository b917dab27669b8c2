package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/jobbook/internal/health"
	"github.com/felixgeelhaar/jobbook/internal/job"
	"github.com/felixgeelhaar/jobbook/internal/ux"
)

// DoctorReport is the output of the doctor command.
type DoctorReport struct {
	Job    string               `json:"job" yaml:"job"`
	Status health.Status        `json:"status" yaml:"status"`
	Checks []health.NamedResult `json:"checks" yaml:"checks"`
}

// RenderText implements ux.TextRenderer.
func (r *DoctorReport) RenderText(w io.Writer, s ux.Styles) error {
	fmt.Fprintf(w, "%s %s\n", s.Title.Render("doctor"), s.Title.Render(r.Job))
	for _, c := range r.Checks {
		var icon string
		switch c.Status {
		case health.StatusHealthy:
			icon = s.Success.Render("✓")
		case health.StatusDegraded:
			icon = s.Skipped.Render("!")
		default:
			icon = s.Failure.Render("✗")
		}
		fmt.Fprintf(w, "%s %-32s %s\n", icon, c.Name, c.Message)
		if c.Status != health.StatusHealthy {
			if users, ok := c.Details["used_by"].([]string); ok && len(users) > 0 {
				fmt.Fprintf(w, "    used by: %v\n", users)
			}
		}
	}
	_, err := fmt.Fprintf(w, "overall: %s\n", r.Status)
	return err
}

func newDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor [JOB.yaml]",
		Short: "Check that a job's interpreters and directories are available",
		Long: `Check the environment a job needs: every executor its scripts name must be
on PATH, every working directory must exist and the temp directory must be
writable. The job is not run.`,
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
			spec, err := job.LoadFile(path)
			if err != nil {
				return err
			}

			manager := health.NewManager()
			for _, c := range health.ForJob(spec) {
				manager.AddChecker(c)
			}
			results := manager.Check(cmd.Context())
			report := &DoctorReport{
				Job:    spec.Name,
				Status: health.OverallStatus(results),
				Checks: results,
			}

			f, err := cmdCtx.Formatter()
			if err != nil {
				return err
			}
			if err := f.Format(report); err != nil {
				return err
			}
			if report.Status == health.StatusUnhealthy {
				return fmt.Errorf("doctor: job %s cannot run as configured", spec.Name)
			}
			return nil
		},
	}
}
