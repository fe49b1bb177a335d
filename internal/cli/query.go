package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	ierrors "github.com/matzehuels/incgraph/pkg/errors"
	"github.com/matzehuels/incgraph/pkg/incgraph"
)

// queryCommand creates the query command.
func (c *CLI) queryCommand() *cobra.Command {
	var (
		f        buildFlags
		roleName string
		exists   bool
		limit    int
		relative bool
	)

	cmd := &cobra.Command{
		Use:   "query <file> [files...]",
		Short: "List what a file includes or what includes it",
		Long: `Query builds the include graph, then answers a question about one file.

Roles:
  direct-includes          files the file includes itself
  transitive-includes      everything the file pulls in
  direct-included-by       files that include the file
  transitive-included-by   everything that pulls the file in

Extra files after the first are scanned too, which matters for the
included-by roles. With --exists only the first hop is checked and the
answer is printed as true or false.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := incgraph.ParseRole(roleName)
			if err != nil {
				return ierrors.Wrap(ierrors.ErrCodeInvalidRole, err, "--role")
			}
			if err := ierrors.ValidateSourcePath(args[0]); err != nil {
				return err
			}
			target, err := filepath.Abs(args[0])
			if err != nil {
				return ierrors.Wrap(ierrors.ErrCodeInvalidPath, err, "resolve %s", args[0])
			}

			s, _, err := c.buildGraph(cmd.Context(), f, args)
			if err != nil {
				return err
			}
			defer s.close()

			if _, ok := s.engine.Vertex(target); !ok {
				loggerFromContext(cmd.Context()).Warn("file is not in the graph", "file", target)
			}

			if exists {
				fmt.Fprintln(stdout, s.engine.HasDependency(target, role))
				return nil
			}

			root := s.project.RootDir()
			var visit incgraph.Visitor
			if limit > 0 {
				seen := 0
				visit = func(string) bool {
					seen++
					return seen < limit
				}
			}
			for _, p := range s.engine.CollectDependencies(target, role, visit) {
				fmt.Fprintln(stdout, displayPath(root, p, relative))
			}
			return nil
		},
	}

	addBuildFlags(cmd, &f)
	cmd.Flags().StringVarP(&roleName, "role", "r", incgraph.TransitiveIncludes.String(),
		"relation to follow: "+strings.Join(roleNames(), ", "))
	cmd.Flags().BoolVar(&exists, "exists", false, "only report whether any such file exists")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "stop after this many files (0 = no limit)")
	cmd.Flags().BoolVar(&relative, "relative", false, "print paths relative to the project root")
	_ = cmd.RegisterFlagCompletionFunc("role", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return roleNames(), cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func roleNames() []string {
	names := make([]string, 0, len(incgraph.Roles))
	for _, r := range incgraph.Roles {
		names = append(names, r.String())
	}
	return names
}

// displayPath returns p relative to root when requested and possible.
func displayPath(root, p string, relative bool) string {
	if !relative {
		return p
	}
	if rel, err := filepath.Rel(root, p); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return p
}
