package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	ierrors "github.com/matzehuels/incgraph/pkg/errors"
	"github.com/matzehuels/incgraph/pkg/incgraph"
	"github.com/matzehuels/incgraph/pkg/io"
	"github.com/matzehuels/incgraph/pkg/render/nodelink"
)

const (
	formatDOT = "dot"
	formatSVG = "svg"
	formatPNG = "png"
)

var renderFormats = []string{formatDOT, formatSVG, formatPNG}

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string // output file; format inferred from its extension
	format   string // explicit format, overrides the extension
	input    string // render a previously exported JSON graph instead of scanning
	detailed bool   // neighbor counts in labels
	focus    string // highlight this file and its dependencies
	roleName string // relation used with focus
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		f    buildFlags
		opts renderOpts
	)

	cmd := &cobra.Command{
		Use:   "render [files...]",
		Short: "Draw the include graph with Graphviz",
		Long: `Render draws the include graph as a node-link diagram.

The format is taken from --format or from the extension of --output
(dot, svg or png). With --input the graph is read from a JSON export
instead of being scanned. --focus highlights one file together with the
files reached from it through --role.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), f, opts, args)
		},
	}

	addBuildFlags(cmd, &f)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout, DOT)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: "+strings.Join(renderFormats, ", "))
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "render a JSON graph written by export")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show include counts in node labels")
	cmd.Flags().StringVar(&opts.focus, "focus", "", "highlight this file and its dependencies")
	cmd.Flags().StringVarP(&opts.roleName, "role", "r", incgraph.TransitiveIncludes.String(), "relation used with --focus")
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return renderFormats, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("role", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return roleNames(), cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func (c *CLI) runRender(ctx context.Context, f buildFlags, opts renderOpts, args []string) error {
	format, err := renderFormat(opts)
	if err != nil {
		return err
	}

	var (
		e    *incgraph.Engine
		base string
	)
	if opts.input != "" {
		g, err := io.ImportJSON(opts.input)
		if err != nil {
			return ierrors.Wrap(ierrors.ErrCodeInvalidInput, err, "read %s", opts.input)
		}
		e = incgraph.New(g.Resolver(), incgraph.Config{Logger: c.Logger})
		g.EnqueueInto(e)
		if _, err := e.Compute(ctx).Wait(ctx); err != nil {
			return err
		}
		c.Logger.Debug("replayed graph", "file", opts.input, "nodes", e.NodeCount(), "edges", g.EdgeCount())
	} else {
		s, _, err := c.buildGraph(ctx, f, args)
		if err != nil {
			return err
		}
		defer s.close()
		e = s.engine
		base = s.project.RootDir()
	}

	nopts := nodelink.Options{Base: base, Detailed: opts.detailed}
	if opts.focus != "" {
		role, err := incgraph.ParseRole(opts.roleName)
		if err != nil {
			return ierrors.Wrap(ierrors.ErrCodeInvalidRole, err, "--role")
		}
		focus, err := filepath.Abs(opts.focus)
		if err != nil {
			return ierrors.Wrap(ierrors.ErrCodeInvalidPath, err, "resolve %s", opts.focus)
		}
		nopts.Highlight = append([]string{focus}, e.CollectDependencies(focus, role, nil)...)
	}

	dot := nodelink.ToDOT(e.Snapshot(), nopts)
	data, err := renderDOT(ctx, dot, format)
	if err != nil {
		return err
	}

	if opts.output == "" || opts.output == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	printSuccess("Rendered %d files as %s", e.NodeCount(), strings.ToUpper(format))
	printFile(opts.output)
	return nil
}

// renderFormat picks the output format from the flag or the file extension.
func renderFormat(opts renderOpts) (string, error) {
	format := opts.format
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(opts.output)), ".")
		if format == "" || format == "gv" {
			format = formatDOT
		}
	}
	if err := ierrors.ValidateFormat(format, renderFormats...); err != nil {
		return "", err
	}
	return format, nil
}

func renderDOT(ctx context.Context, dot, format string) ([]byte, error) {
	switch format {
	case formatSVG:
		return nodelink.RenderSVG(ctx, dot)
	case formatPNG:
		return nodelink.RenderPNG(ctx, dot)
	default:
		return []byte(dot), nil
	}
}
