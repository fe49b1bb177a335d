// Package io provides JSON import and export for include graphs.
//
// # Overview
//
// An exported graph is a plain list of files and include edges. It can be
// loaded by other tools, diffed between builds, or fed back into an engine
// with [Graph.Resolver] to rebuild the same graph without touching the
// source tree.
//
// # JSON Format
//
//	{
//	  "name": "firmware",
//	  "nodes": [
//	    {"id": "/src/main.c"},
//	    {"id": "/src/config.h"}
//	  ],
//	  "edges": [
//	    {"from": "/src/main.c", "to": "/src/config.h"}
//	  ]
//	}
//
// Nodes are listed in the order the engine discovered them. Edges are
// grouped by their source node and listed in include order; a file that
// includes the same header twice has two identical edges.
//
// # Replay
//
// Enqueueing [Graph.Files] in order against [Graph.Resolver] reproduces the
// exported vertex order and edge order exactly:
//
//	g, err := io.ImportJSON("graph.json")
//	if err != nil {
//	    return err
//	}
//	e := incgraph.New(g.Resolver(), incgraph.Config{})
//	g.EnqueueInto(e)
//	e.Compute(ctx).Wait(ctx)
package io
