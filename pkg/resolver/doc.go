// Package resolver provides include resolvers for [incgraph.Engine].
//
// A resolver answers one question: which files does this file include
// directly under these compile options? The engine treats errors and empty
// answers alike, so resolvers report missing files by returning nothing.
//
//   - [Static]: fixed map, used for tests and for replaying exported graphs
//   - [Func]: adapts a plain function
//   - [Scanner]: scans C, C++ and Objective-C sources for #include and
//     #import directives and resolves them through -I style search paths
//   - [Cached]: memoizes another resolver in a [cache.Cache]
//
// [incgraph.Engine]: github.com/matzehuels/incgraph/pkg/incgraph
// [cache.Cache]: github.com/matzehuels/incgraph/pkg/cache
package resolver
