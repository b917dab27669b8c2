// Package cmd implements the jobbook command line.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/jobbook/internal/version"
)

// NewRootCommand builds the command tree. Every call returns fresh flag
// state.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "jobbook",
		Short: "Run staged, parallel script jobs described in YAML",
		Long: `jobbook runs jobs made of named templates. A template is an ordered list of
stages; the tasks in a stage run in parallel and the next stage starts only
after every task of the current one has settled. Tasks are scripts or
references to other templates.

The exit status is 0 only when the job succeeded.`,
		Version:       version.GetInfo().Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default ./.jobbook.yaml or $HOME/.jobbook/config.yaml)")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	flags.StringP("format", "o", "text", "output format: text, json or yaml")
	flags.Bool("no-color", false, "disable colored output")

	root.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return usageError(err.Error())
	})

	root.AddCommand(
		newRunCommand(),
		newValidateCommand(),
		newTemplatesCommand(),
		newDoctorCommand(),
		newLogsCommand(),
		newVersionCommand(),
		newCompletionCommand(root),
	)
	return root
}

// Execute runs the command line with ctx. Canceling ctx interrupts a run.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
