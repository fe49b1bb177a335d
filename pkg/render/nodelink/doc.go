// Package nodelink renders include graphs as node-link diagrams.
//
// # Usage
//
// Convert a snapshot to DOT, then render it in-process with Graphviz:
//
//	dot := nodelink.ToDOT(e.Snapshot(), nodelink.Options{Base: root})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot)
//
// # Options
//
//   - Base: path prefix trimmed from labels, usually the project root
//   - Detailed: labels carry include and included-by counts, and repeated
//     includes of the same file are labelled with their multiplicity
//   - Highlight: files drawn filled, typically the result of a query
//
// Repeated edges between the same two files are drawn once. Source files
// (nodes nothing includes) are drawn as boxes; headers as rounded boxes.
//
// # Dependencies
//
// Rendering uses [github.com/goccy/go-graphviz], which runs Graphviz as
// WebAssembly, so no system Graphviz install is needed.
package nodelink
