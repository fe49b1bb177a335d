package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/incgraph/pkg/io"
)

// scanCommand creates the scan command.
func (c *CLI) scanCommand() *cobra.Command {
	var (
		f      buildFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "scan [files...]",
		Short: "Build the include graph and print statistics",
		Long: `Scan follows the includes of every file in the project (and any files
given as arguments) and reports how many files and include edges it found.

With -o the graph is also written as JSON, which "render" and other tools
can read back.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, res, err := c.buildGraph(ctx, f, args)
			if err != nil {
				return err
			}
			defer s.close()

			name := s.project.Name
			if name == "" {
				name = s.project.RootDir()
			}
			printSuccess("Scanned %s", name)
			printStats(res)
			printKeyValue("root", s.project.RootDir())
			printKeyValue("top-level", fmt.Sprintf("%d files", res.Files))
			printKeyValue("cache", fmt.Sprintf("%d hits, %d misses", s.stats.hits.Load(), s.stats.misses.Load()))

			if output != "" {
				if err := io.ExportJSON(s.engine.Snapshot(), s.project.Name, output); err != nil {
					return fmt.Errorf("export: %w", err)
				}
				printFile(output)
				printNextStep("Render it", fmt.Sprintf("%s render -o graph.svg", appName))
			}
			return nil
		},
	}

	addBuildFlags(cmd, &f)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the graph as JSON to this file")
	return cmd
}
