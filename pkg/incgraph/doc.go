// Package incgraph builds and queries include-dependency graphs.
//
// # Overview
//
// Given a set of source files and the compile options each is built with,
// an [Engine] asks a [Resolver] which files each one includes directly,
// follows those includes transitively, and records the result as a directed
// graph with one vertex per canonical path. The engine never reads file
// contents itself; everything it knows comes from the resolver.
//
// # Basic Usage
//
// Queue files with [Engine.Enqueue], start a build with [Engine.Compute],
// wait for the returned [Computation], then query:
//
//	e := incgraph.New(resolver, incgraph.Config{})
//	e.Enqueue("src/main.c", incgraph.Options{"-Iinclude"})
//	res, err := e.Compute(ctx).Wait(ctx)
//	if err != nil {
//	    return err
//	}
//	headers := e.CollectDependencies("src/main.c", incgraph.TransitiveIncludes, nil)
//
// # Cycles
//
// Include graphs may contain cycles (a.h includes b.h includes a.h). The
// builder creates a file's vertex before descending into it, so a cycle is
// recorded as an ordinary pair of edges and expansion stops there. Queries
// keep a visited set, so transitive results list every file once.
//
// # Cancellation
//
// Only one computation runs at a time. [Engine.Cancel] stops it
// cooperatively and blocks until the worker has exited; Enqueue, Compute and
// DiscardAll cancel first, so the graph is never mutated from two places.
// Cancellation is checked before each pending file and before each include,
// and whatever was built up to that point stays in the graph.
//
// # Roles
//
// Queries take a [Role]: direct or transitive, following includes forward
// ([DirectIncludes], [TransitiveIncludes]) or backward ([DirectIncludedBy],
// [TransitiveIncludedBy]). [Engine.HasDependency] is a cheap existence check
// on the first hop; [Engine.CollectDependencies] lists the files.
package incgraph
