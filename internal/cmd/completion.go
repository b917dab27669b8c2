package cmd

import (
	"github.com/spf13/cobra"
)

func newCompletionCommand(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `To load completions:

Bash:
  $ source <(jobbook completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ jobbook completion bash > /etc/bash_completion.d/jobbook
  # macOS:
  $ jobbook completion bash > $(brew --prefix)/etc/bash_completion.d/jobbook

Zsh:
  $ jobbook completion zsh > "${fpath[1]}/_jobbook"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ jobbook completion fish | source

  # To load completions for each session, execute once:
  $ jobbook completion fish > ~/.config/fish/completions/jobbook.fish

PowerShell:
  PS> jobbook completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			default:
				return root.GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}
