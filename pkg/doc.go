// Package pkg holds the incgraph libraries.
//
// # Overview
//
// incgraph discovers which files a C-family translation unit pulls in,
// stores the result as a directed include graph, and answers "what does this
// file include" and "what includes this file" queries, directly or
// transitively.
//
// # Layout
//
//   - [incgraph]: the engine (graph store, builder, async compute, queries)
//   - [resolver]: include resolvers (source scanner, cached, static)
//   - [cache]: byte caches backing the cached resolver
//   - [project]: incgraph.toml project files
//   - [io]: JSON export and import of graph snapshots
//   - [render/nodelink]: Graphviz rendering
//   - [observability]: hooks for engine, resolver and cache events
//   - [errors]: structured error codes
//
// # Data Flow
//
//	incgraph.toml / command line
//	         ↓
//	    [project] (files + compile options)
//	         ↓
//	    [incgraph] Engine ←→ [resolver] (+ [cache])
//	         ↓
//	    queries, [io] JSON, [render/nodelink] DOT/SVG/PNG
//
// [incgraph]: github.com/matzehuels/incgraph/pkg/incgraph
// [resolver]: github.com/matzehuels/incgraph/pkg/resolver
// [cache]: github.com/matzehuels/incgraph/pkg/cache
// [project]: github.com/matzehuels/incgraph/pkg/project
// [io]: github.com/matzehuels/incgraph/pkg/io
// [render/nodelink]: github.com/matzehuels/incgraph/pkg/render/nodelink
// [observability]: github.com/matzehuels/incgraph/pkg/observability
// [errors]: github.com/matzehuels/incgraph/pkg/errors
package pkg
