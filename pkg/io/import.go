package io

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/incgraph/pkg/project"
	"github.com/matzehuels/incgraph/pkg/resolver"
)

// Graph is an imported include graph.
type Graph struct {
	Name string

	// Files lists every node in export order.
	Files []string

	includes resolver.Static
	edges    int
}

// Resolver answers include lookups from the imported edges. Files without
// outgoing edges resolve to nothing.
func (g *Graph) Resolver() resolver.Static {
	return g.includes
}

// EdgeCount returns the number of imported edges, duplicates included.
func (g *Graph) EdgeCount() int { return g.edges }

// EnqueueInto enqueues every file, in order, with no options.
func (g *Graph) EnqueueInto(q project.Enqueuer) {
	for _, f := range g.Files {
		q.Enqueue(f, nil)
	}
}

// ReadJSON decodes a JSON graph from r.
//
// ReadJSON returns an error if:
//   - The JSON is malformed
//   - A node has an empty or duplicate ID
//   - An edge references an unknown node ID
//
// ReadJSON does not close r.
func ReadJSON(r io.Reader) (*Graph, error) {
	var data graph
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	g := &Graph{
		Name:     data.Name,
		Files:    make([]string, 0, len(data.Nodes)),
		includes: make(resolver.Static, len(data.Nodes)),
	}
	known := make(map[string]bool, len(data.Nodes))
	for _, n := range data.Nodes {
		if n.ID == "" {
			return nil, errors.New("node with empty id")
		}
		if known[n.ID] {
			return nil, fmt.Errorf("node %s: duplicate id", n.ID)
		}
		known[n.ID] = true
		g.Files = append(g.Files, n.ID)
	}
	for _, e := range data.Edges {
		if !known[e.From] || !known[e.To] {
			return nil, fmt.Errorf("edge %s->%s: unknown node", e.From, e.To)
		}
		g.includes[e.From] = append(g.includes[e.From], e.To)
		g.edges++
	}
	return g, nil
}

// ImportJSON reads a JSON file at path and returns the decoded graph.
func ImportJSON(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}
