package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/jobbook/internal/version"
)

func newVersionCommand() *cobra.Command {
	var verbose bool
	c := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print version information including version number, git commit,
build date, Go version, and platform.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			info := version.GetInfo()

			if !cmdCtx.Text() {
				f, err := cmdCtx.Formatter()
				if err != nil {
					return err
				}
				return f.Format(info)
			}

			if verbose {
				fmt.Fprintln(cmdCtx.Out, info.String())
				return nil
			}
			fmt.Fprintf(cmdCtx.Out, "jobbook %s\n", info.Short())
			return nil
		},
	}
	c.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed version information")
	return c
}
