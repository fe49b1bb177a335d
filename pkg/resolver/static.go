package resolver

import (
	"context"
	"slices"

	"github.com/matzehuels/incgraph/pkg/incgraph"
)

// Static resolves includes from a fixed map of file to direct includes.
// Files absent from the map have no includes. Options are ignored.
type Static map[string][]string

// DirectIncludes returns a copy of the entry for path.
func (s Static) DirectIncludes(ctx context.Context, path string, opts incgraph.Options) ([]string, error) {
	return slices.Clone(s[path]), nil
}

// Func adapts an ordinary function to the incgraph.Resolver interface.
type Func func(ctx context.Context, path string, opts incgraph.Options) ([]string, error)

// DirectIncludes calls f.
func (f Func) DirectIncludes(ctx context.Context, path string, opts incgraph.Options) ([]string, error) {
	return f(ctx, path, opts)
}

var (
	_ incgraph.Resolver = Static(nil)
	_ incgraph.Resolver = Func(nil)
)
