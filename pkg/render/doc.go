// Package render groups the visual output formats for include graphs.
//
// The engine itself has no notion of presentation. Renderers work on a
// [incgraph.Vertex] snapshot taken with [incgraph.Engine.Snapshot], so a
// render never holds the engine's lock.
//
// Subpackages:
//   - [nodelink]: Graphviz node-link diagrams (DOT, SVG, PNG)
//
// [incgraph.Vertex]: github.com/matzehuels/incgraph/pkg/incgraph.Vertex
// [incgraph.Engine.Snapshot]: github.com/matzehuels/incgraph/pkg/incgraph.Engine.Snapshot
// [nodelink]: github.com/matzehuels/incgraph/pkg/render/nodelink
package render
