package incgraph

import (
	"fmt"
	"path/filepath"
)

// Handle identifies a node in the graph. Handles are stable for the lifetime
// of the graph and become invalid after [Engine.DiscardAll].
type Handle int32

// node is one file in the arena. Adjacency lists hold handles in insertion
// order and may contain repeats when the resolver reports an include twice.
type node struct {
	path       string
	includes   []Handle
	includedBy []Handle
}

// store owns every node and the path index. It is not safe for concurrent
// use; the Engine serializes access.
type store struct {
	nodes []node
	index map[string]Handle
	edges int
}

func newStore() *store {
	return &store{index: make(map[string]Handle)}
}

// Canonical returns the identity used for a file path. Two paths name the
// same vertex iff their canonical forms are equal.
func Canonical(path string) string {
	return filepath.Clean(path)
}

func (s *store) find(path string) (Handle, bool) {
	h, ok := s.index[path]
	return h, ok
}

// insert creates a vertex for path. Inserting an existing path is a bug in
// the caller and panics.
func (s *store) insert(path string) Handle {
	if _, exists := s.index[path]; exists {
		panic(fmt.Sprintf("incgraph: duplicate vertex %q", path))
	}
	h := Handle(len(s.nodes))
	s.nodes = append(s.nodes, node{path: path})
	s.index[path] = h
	return h
}

// link records from→to in both adjacency lists.
func (s *store) link(from, to Handle) {
	s.nodes[from].includes = append(s.nodes[from].includes, to)
	s.nodes[to].includedBy = append(s.nodes[to].includedBy, from)
	s.edges++
}

func (s *store) valid(h Handle) bool {
	return h >= 0 && int(h) < len(s.nodes)
}

func (s *store) path(h Handle) string { return s.nodes[h].path }

func (s *store) neighbors(h Handle, out bool) []Handle {
	if out {
		return s.nodes[h].includes
	}
	return s.nodes[h].includedBy
}

func (s *store) reset() {
	s.nodes = nil
	s.index = make(map[string]Handle)
	s.edges = 0
}
