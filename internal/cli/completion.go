package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand prints shell completion scripts. Value completion for
// --role, --resolution and --format is registered on the commands themselves.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for incgraph.

Besides subcommands and flags, the scripts complete values that incgraph
knows about:

  --role          direct-includes, transitive-includes,
                  direct-included-by, transitive-included-by
  --resolution    first, every
  --format        dot, svg, png (render)
  file arguments  source and header paths

Load for the current shell:

  bash        source <(incgraph completion bash)
  zsh         source <(incgraph completion zsh)
  fish        incgraph completion fish | source
  powershell  incgraph completion powershell | Out-String | Invoke-Expression

To load on every start, write the script where your shell picks it up, e.g.
  incgraph completion bash > ~/.local/share/bash-completion/completions/incgraph
  incgraph completion zsh > "${fpath[1]}/_incgraph"
  incgraph completion fish > ~/.config/fish/completions/incgraph.fish
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(stdout, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(stdout)
			}
			return nil
		},
	}

	return cmd
}
