package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// completionCommand emits completion scripts for the supported shells.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Print a completion script for the named shell to stdout.

Load it for the current session:

  $ source <(cookieforge completion bash)
  $ cookieforge completion fish | source
  PS> cookieforge completion powershell | Out-String | Invoke-Expression

Or install it permanently:

  $ cookieforge completion bash > /etc/bash_completion.d/cookieforge
  $ cookieforge completion zsh > "${fpath[1]}/_cookieforge"
  $ cookieforge completion fish > ~/.config/fish/completions/cookieforge.fish

Zsh needs compinit enabled (autoload -U compinit; compinit in ~/.zshrc)
before completions load.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}
