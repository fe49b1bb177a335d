package incgraph

import (
	"fmt"
	"slices"
)

// Role selects the direction and depth of a dependency query.
type Role int

const (
	// DirectIncludes selects the files the reference file includes itself.
	DirectIncludes Role = iota
	// TransitiveIncludes selects every file reachable through includes.
	TransitiveIncludes
	// DirectIncludedBy selects the files that include the reference file.
	DirectIncludedBy
	// TransitiveIncludedBy selects every file that reaches the reference file.
	TransitiveIncludedBy
)

var roleNames = map[Role]string{
	DirectIncludes:       "direct-includes",
	TransitiveIncludes:   "transitive-includes",
	DirectIncludedBy:     "direct-included-by",
	TransitiveIncludedBy: "transitive-included-by",
}

// Roles lists every role in declaration order.
var Roles = []Role{DirectIncludes, TransitiveIncludes, DirectIncludedBy, TransitiveIncludedBy}

func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// ParseRole converts a role name such as "transitive-includes" to a Role.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if roleNames[r] == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// Outgoing reports whether the role follows include edges forward.
func (r Role) Outgoing() bool { return r == DirectIncludes || r == TransitiveIncludes }

// Transitive reports whether the role follows edges past the first hop.
func (r Role) Transitive() bool { return r == TransitiveIncludes || r == TransitiveIncludedBy }

// Visitor is called for each file discovered by [Engine.CollectDependencies].
// Returning false ends the traversal.
type Visitor func(path string) bool

// HasDependency reports whether path takes part in the role's relationship
// at all: for include roles, whether it includes anything; for included-by
// roles, whether anything includes it. Unknown files report false.
func (e *Engine) HasDependency(path string, role Role) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	h, ok := e.g.find(Canonical(path))
	if !ok {
		return false
	}
	return len(e.g.neighbors(h, role.Outgoing())) > 0
}

// CollectDependencies returns the files related to path by role, each at
// most once, in discovery order. Transitive roles are walked breadth-first
// and terminate on cyclic graphs; path itself is part of the result only if
// it is reachable from itself. visit may be nil.
func (e *Engine) CollectDependencies(path string, role Role, visit Visitor) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	h, ok := e.g.find(Canonical(path))
	if !ok {
		return nil
	}

	out := role.Outgoing()
	seen := make(map[Handle]bool)
	var result []string

	queue := slices.Clone(e.g.neighbors(h, out))
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true

		p := e.g.path(next)
		result = append(result, p)
		if visit != nil && !visit(p) {
			break
		}
		if role.Transitive() {
			queue = append(queue, e.g.neighbors(next, out)...)
		}
	}
	return result
}

// Vertex returns the handle of path's vertex, if one exists.
func (e *Engine) Vertex(path string) (Handle, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.g.find(Canonical(path))
}

// Path returns the file a handle refers to, or "" for an invalid handle.
func (e *Engine) Path(h Handle) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.g.valid(h) {
		return ""
	}
	return e.g.path(h)
}

// Includes returns a copy of h's outgoing edges in insertion order,
// repeats included.
func (e *Engine) Includes(h Handle) []Handle {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.g.valid(h) {
		return nil
	}
	return slices.Clone(e.g.nodes[h].includes)
}

// IncludedBy returns a copy of h's incoming edges in insertion order,
// repeats included.
func (e *Engine) IncludedBy(h Handle) []Handle {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.g.valid(h) {
		return nil
	}
	return slices.Clone(e.g.nodes[h].includedBy)
}

// NodeCount returns the number of vertices.
func (e *Engine) NodeCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.g.nodes)
}

// EdgeCount returns the number of edges, repeats included.
func (e *Engine) EdgeCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.g.edges
}

// Vertex is a point-in-time copy of one node and its neighbors.
type Vertex struct {
	Path       string
	Includes   []string
	IncludedBy []string
}

// Snapshot copies the graph in vertex creation order.
func (e *Engine) Snapshot() []Vertex {
	e.mu.RLock()
	defer e.mu.RUnlock()

	vs := make([]Vertex, len(e.g.nodes))
	for i, n := range e.g.nodes {
		vs[i] = Vertex{
			Path:       n.path,
			Includes:   e.paths(n.includes),
			IncludedBy: e.paths(n.includedBy),
		}
	}
	return vs
}

func (e *Engine) paths(hs []Handle) []string {
	ps := make([]string, len(hs))
	for i, h := range hs {
		ps[i] = e.g.path(h)
	}
	return ps
}
