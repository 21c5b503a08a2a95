package graph

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/matzehuels/taskgraph/pkg/flow"
)

// =============================================================================
// Graph - Task Graph Structure
// =============================================================================

// Graph is the serialized structure of a task tree: every node, hidden or
// not, and every edge including ordering hints. Nodes are in creation order,
// so parents precede children.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// FromFlow converts a graph into its wire format. Sizes are included when
// the graph has been sized; positions when it has been laid out.
func FromFlow(g *flow.Graph) Graph {
	visible := g.Visibility()
	out := Graph{
		Nodes: make([]Node, 0, g.NodeCount()),
		Edges: make([]Edge, 0, g.EdgeCount()),
	}
	for _, n := range g.Nodes() {
		node := Node{
			ID:         n.ID,
			ParentID:   n.ParentID,
			Kind:       n.Kind.String(),
			Label:      n.Label,
			Condition:  n.Condition,
			OrderIndex: n.OrderIndex,
			Depth:      n.Depth,
			Hidden:     !visible[n.ID],
			Width:      n.Size.Width,
			Height:     n.Size.Height,
		}
		if n.Task != nil && n.Kind == flow.KindTask {
			node.TaskType = n.Task.Type
		}
		if n.Position != nil {
			node.X, node.Y = n.Position.X, n.Position.Y
		}
		out.Nodes = append(out.Nodes, node)
	}
	for _, e := range g.Edges() {
		out.Edges = append(out.Edges, edgeFrom(e))
	}
	return out
}

// WriteGraph writes a graph as indented JSON to an io.Writer.
func WriteGraph(g Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadGraph decodes a JSON graph from an io.Reader.
func ReadGraph(r io.Reader) (Graph, error) {
	var g Graph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return Graph{}, fmt.Errorf("decode: %w", err)
	}
	return g, nil
}
