package graph

import (
	"github.com/matzehuels/taskgraph/pkg/flow"
)

// Edge kinds in serialized graphs.
const (
	EdgeKindSequence = "sequence"
	EdgeKindHint     = "hint"
)

// =============================================================================
// Node - Unified Node Type
// =============================================================================

// Node is the unified node type for both [Graph] and [Layout].
// Position and size fields are only populated in layouts.
type Node struct {
	ID         string  `json:"id"`
	ParentID   string  `json:"parent_id,omitempty"`
	Kind       string  `json:"kind"`
	Label      string  `json:"label,omitempty"`
	TaskType   string  `json:"task_type,omitempty"`
	Condition  string  `json:"condition,omitempty"`
	OrderIndex int     `json:"order_index"`
	Depth      int     `json:"depth"`
	Hidden     bool    `json:"hidden,omitempty"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// =============================================================================
// Edge - Connection Between Siblings
// =============================================================================

// Edge connects two sibling nodes.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind,omitempty"`
}

func edgeFrom(e flow.Edge) Edge {
	return Edge{ID: e.ID, Source: e.Source, Target: e.Target, Kind: e.Kind.String()}
}
