package graph

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/matzehuels/taskgraph/pkg/flow"
	"github.com/matzehuels/taskgraph/pkg/layout"
)

// =============================================================================
// Layout - Positioned Diagram
// =============================================================================

// Layout is the serialized result of the layout pipeline.
type Layout struct {
	// Engine names the solver that produced the positions.
	Engine string `json:"engine"`

	// Width and Height are the size of the whole diagram.
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	// Theme holds the visual constants the layout was computed with.
	Theme flow.Theme `json:"theme"`

	// Nodes are the visible nodes, parents before children.
	Nodes []Node `json:"nodes"`
	// Edges are the renderable sequence edges between visible nodes.
	Edges []Edge `json:"edges"`
	// Hidden lists the node IDs the caller hid.
	Hidden []string `json:"hidden,omitempty"`
}

// FromRecords builds a layout from flattened records and the visible edges
// of the graph they came from.
func FromRecords(engine string, extent flow.Dimensions, theme flow.Theme, records []layout.Record, edges []flow.Edge) Layout {
	l := Layout{
		Engine: engine,
		Width:  extent.Width,
		Height: extent.Height,
		Theme:  theme,
		Nodes:  make([]Node, 0, len(records)),
		Edges:  make([]Edge, 0, len(edges)),
	}
	for _, r := range records {
		l.Nodes = append(l.Nodes, Node{
			ID:         r.ID,
			ParentID:   r.ParentID,
			Kind:       r.Kind.String(),
			Label:      r.Label,
			TaskType:   r.TaskType,
			Condition:  r.Condition,
			OrderIndex: r.OrderIndex,
			Depth:      r.Depth,
			X:          r.Position.X,
			Y:          r.Position.Y,
			Width:      r.Size.Width,
			Height:     r.Size.Height,
		})
	}
	for _, e := range edges {
		l.Edges = append(l.Edges, edgeFrom(e))
	}
	return l
}

// Validate checks that node IDs are unique, that every parent precedes its
// children and that every edge joins two listed nodes.
func (l *Layout) Validate() error {
	if l.Engine == "" {
		return fmt.Errorf("layout must name its engine")
	}
	seen := make(map[string]bool, len(l.Nodes))
	for _, n := range l.Nodes {
		if n.ID == "" {
			return fmt.Errorf("layout node without id")
		}
		if seen[n.ID] {
			return fmt.Errorf("duplicate layout node %s", n.ID)
		}
		if n.ParentID != "" && !seen[n.ParentID] {
			return fmt.Errorf("layout node %s precedes its parent %s", n.ID, n.ParentID)
		}
		seen[n.ID] = true
	}
	for _, e := range l.Edges {
		if !seen[e.Source] || !seen[e.Target] {
			return fmt.Errorf("layout edge %s references an unknown node", e.ID)
		}
	}
	return nil
}

// =============================================================================
// Layout Serialization API
// =============================================================================

// MarshalLayout serializes a Layout to pretty-printed JSON bytes.
func MarshalLayout(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalLayout deserializes JSON bytes into a Layout and validates it.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("unmarshal layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// WriteLayoutFile writes a Layout to a JSON file.
func WriteLayoutFile(l Layout, path string) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadLayoutFile reads a Layout from a JSON file.
func ReadLayoutFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalLayout(data)
}
