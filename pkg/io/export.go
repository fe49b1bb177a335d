package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/incgraph/pkg/incgraph"
)

type graph struct {
	Name  string `json:"name,omitempty"`
	Nodes []node `json:"nodes"`
	Edges []edge `json:"edges"`
}

type node struct {
	ID string `json:"id"`
}

type edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// WriteJSON encodes a graph snapshot as JSON and writes it to w.
// name is optional and is stored as the top-level "name" field.
func WriteJSON(vs []incgraph.Vertex, name string, w io.Writer) error {
	out := graph{
		Name:  name,
		Nodes: make([]node, len(vs)),
		Edges: []edge{},
	}
	for i, v := range vs {
		out.Nodes[i] = node{ID: v.Path}
		for _, inc := range v.Includes {
			out.Edges = append(out.Edges, edge{From: v.Path, To: inc})
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes a graph snapshot to a JSON file at path.
func ExportJSON(vs []incgraph.Vertex, name, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(vs, name, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
