package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/incgraph/pkg/incgraph"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Base is trimmed from node labels. Node IDs keep the full path.
	Base string

	// Detailed adds neighbor counts to labels and multiplicity to edges.
	Detailed bool

	// Highlight lists files to draw filled.
	Highlight []string
}

// ToDOT converts a graph snapshot to Graphviz DOT source.
func ToDOT(vs []incgraph.Vertex, opts Options) string {
	highlight := make(map[string]bool, len(opts.Highlight))
	for _, p := range opts.Highlight {
		highlight[incgraph.Canonical(p)] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded\", fontname=\"Helvetica\", fontsize=12];\n")
	buf.WriteString("  edge [arrowsize=0.6];\n")
	buf.WriteString("\n")

	for _, v := range vs {
		attrs := fmtAttrs(v, fmtLabel(v, opts), highlight[v.Path])
		fmt.Fprintf(&buf, "  %q [%s];\n", v.Path, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, v := range vs {
		counts := make(map[string]int, len(v.Includes))
		for _, inc := range v.Includes {
			counts[inc]++
		}
		for _, inc := range v.Includes {
			n, ok := counts[inc]
			if !ok {
				continue
			}
			delete(counts, inc)
			if opts.Detailed && n > 1 {
				fmt.Fprintf(&buf, "  %q -> %q [label=\"x%d\"];\n", v.Path, inc, n)
				continue
			}
			fmt.Fprintf(&buf, "  %q -> %q;\n", v.Path, inc)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(v incgraph.Vertex, opts Options) string {
	label := v.Path
	if opts.Base != "" {
		if rel, err := filepath.Rel(opts.Base, v.Path); err == nil && !strings.HasPrefix(rel, "..") {
			label = rel
		}
	}
	if !opts.Detailed {
		return label
	}
	return fmt.Sprintf("%s\nincludes: %d\nincluded by: %d", label, len(v.Includes), len(v.IncludedBy))
}

func fmtAttrs(v incgraph.Vertex, label string, highlighted bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	style := "rounded"
	if len(v.IncludedBy) == 0 {
		style = ""
	}
	if highlighted {
		style = strings.TrimPrefix(style+",filled", ",")
		attrs = append(attrs, "fillcolor=\"#ffd866\"")
	}
	attrs = append(attrs, fmt.Sprintf("style=%q", style))
	return attrs
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	out, err := render(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG renders DOT source to PNG using Graphviz.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.PNG)
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the drawing scales with its
// container instead of carrying Graphviz's point-based size.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
