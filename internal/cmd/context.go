package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/jobbook/internal/config"
	"github.com/felixgeelhaar/jobbook/internal/log"
	"github.com/felixgeelhaar/jobbook/internal/ux"
)

// CommandContext holds the effective configuration of one command
// invocation. Commands build it at the start of RunE:
//
//	func runValidate(cmd *cobra.Command, args []string) error {
//		cmdCtx, err := NewCommandContext(cmd)
//		if err != nil {
//			return err
//		}
//		...
//	}
type CommandContext struct {
	Config *config.Config
	Logger *log.Logger

	Out io.Writer
	Err io.Writer
}

// flagKeys maps flags to the config keys they override. Flags missing on a
// command are skipped.
var flagKeys = map[string]string{
	"log-level":        "log.level",
	"log-format":       "log.format",
	"format":           "output.format",
	"no-color":         "output.no_color",
	"capture":          "run.capture",
	"trace-dir":        "run.trace_dir",
	"metrics-textfile": "run.metrics_textfile",
	"metrics-addr":     "run.metrics_addr",
}

// NewCommandContext loads configuration with the command's flags layered on
// top and installs the process logger.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	var bindings []config.FlagBinding
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			bindings = append(bindings, config.FlagBinding{Key: key, Flag: f})
		}
	}

	cfg, err := config.Load(configPath, bindings...)
	if err != nil {
		return nil, configError(err)
	}

	logger, err := setupLogging(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, configError(err)
	}

	return &CommandContext{
		Config: cfg,
		Logger: logger,
		Out:    cmd.OutOrStdout(),
		Err:    cmd.ErrOrStderr(),
	}, nil
}

// Formatter returns the report formatter for the configured output format.
func (c *CommandContext) Formatter() (ux.Formatter, error) {
	f, err := ux.NewFormatter(c.Config.Output.Format, &ux.FormatterOptions{
		Writer:  c.Out,
		NoColor: c.Config.Output.NoColor,
	})
	if err != nil {
		return nil, usageError(err.Error())
	}
	return f, nil
}

// Styles returns text styles for the command output.
func (c *CommandContext) Styles() ux.Styles {
	return ux.NewStyles(c.Out, c.Config.Output.NoColor)
}

// Text reports whether the output format is human-readable text.
func (c *CommandContext) Text() bool {
	return c.Config.Output.Format == "text"
}
