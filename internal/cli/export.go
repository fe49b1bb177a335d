package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/incgraph/pkg/io"
)

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		f      buildFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "export [files...]",
		Short: "Write the include graph as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, res, err := c.buildGraph(cmd.Context(), f, args)
			if err != nil {
				return err
			}
			defer s.close()

			if output == "" || output == "-" {
				return io.WriteJSON(s.engine.Snapshot(), s.project.Name, stdout)
			}
			if err := io.ExportJSON(s.engine.Snapshot(), s.project.Name, output); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			printSuccess("Exported %d files, %d includes", res.Nodes, res.Edges)
			printFile(output)
			return nil
		},
	}

	addBuildFlags(cmd, &f)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}
