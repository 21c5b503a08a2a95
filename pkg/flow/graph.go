package flow

import (
	"errors"
	"fmt"

	"github.com/matzehuels/taskgraph/pkg/task"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same ID already exists. Node IDs are unique across the whole graph.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownParent is returned by [Graph.AddNode] when ParentID names a
	// node that has not been added yet. Parents must be added before children,
	// which keeps the graph a forest.
	ErrUnknownParent = errors.New("unknown parent node")

	// ErrLeafParent is returned by [Graph.AddNode] when ParentID names a plain task.
	ErrLeafParent = errors.New("plain tasks cannot have children")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when Source does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when Target does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrCrossScopeEdge is returned by [Graph.AddEdge] when the endpoints do
	// not share a parent. Every edge connects siblings.
	ErrCrossScopeEdge = errors.New("edge endpoints must share a parent")
)

// Kind tags what a [Node] represents. The set is closed; every switch over
// Kind in this module is exhaustive.
type Kind int

const (
	// KindTask is a plain leaf task.
	KindTask Kind = iota
	// KindLoop is a loop_sequential container holding the loop body.
	KindLoop
	// KindConditional is a conditional container holding arms side by side.
	KindConditional
	// KindArm is one condition branch of a conditional.
	KindArm
	// KindElse is the else-branch of a conditional.
	KindElse
)

var kindNames = map[Kind]string{
	KindTask:        "task",
	KindLoop:        "loop",
	KindConditional: "conditional",
	KindArm:         "arm",
	KindElse:        "else",
}

// String returns the lowercase kind name used in serialized layouts.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText encodes the kind as its name.
func (k Kind) MarshalText() ([]byte, error) {
	s, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown node kind %d", int(k))
	}
	return []byte(s), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown node kind %q", text)
}

// IsContainer reports whether the node's size is derived from its children.
func (k Kind) IsContainer() bool { return k != KindTask }

// Policy is the rule a container uses to arrange its children.
type Policy int

const (
	// PolicyFixed applies to leaves: a fixed minimum size, no children.
	PolicyFixed Policy = iota
	// PolicyStacked arranges children vertically.
	PolicyStacked
	// PolicySideBySide arranges children horizontally.
	PolicySideBySide
)

// Policy returns the sizing policy for the kind. ok is false for kinds
// outside the closed set.
func (k Kind) Policy() (p Policy, ok bool) {
	switch k {
	case KindTask:
		return PolicyFixed, true
	case KindLoop, KindArm, KindElse:
		return PolicyStacked, true
	case KindConditional:
		return PolicySideBySide, true
	default:
		return 0, false
	}
}

// EdgeKind distinguishes real flow edges from layout-only ordering hints.
type EdgeKind int

const (
	// EdgeSequence is sequential control flow between sibling tasks. It is rendered.
	EdgeSequence EdgeKind = iota
	// EdgeOrderingHint biases the layout solver into declaration order between
	// sibling arms. It carries no dependency and is never rendered.
	EdgeOrderingHint
)

// String returns "sequence" or "hint".
func (k EdgeKind) String() string {
	if k == EdgeOrderingHint {
		return "hint"
	}
	return "sequence"
}

// Dimensions is a width/height pair in pixels.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a position in pixels, relative to the parent's frame.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a leaf task or a structural container.
type Node struct {
	ID       string // Deterministic from tree position
	ParentID string // Empty for top-level nodes
	Kind     Kind
	Label    string // Task name, arm condition, or "else"

	// Task references the configuration entry the node was built from.
	// Arms and else-branches reference their conditional's task.
	Task *task.Task
	// Condition holds the arm expression (KindArm only).
	Condition string

	Size     Dimensions // Populated by [Size]
	Position *Point     // Populated once a layout has been flattened
	Hidden   bool

	OrderIndex int // Position among siblings
	Depth      int // 0 for top-level nodes
}

// IsTopLevel reports whether the node has no parent.
func (n *Node) IsTopLevel() bool { return n.ParentID == "" }

// Edge is a directed connection between two sibling nodes.
type Edge struct {
	ID     string // source + "-" + target
	Source string
	Target string
	Kind   EdgeKind

	// Scope is the parent shared by both endpoints ("" at top level).
	Scope string
	// Depth is the depth of the endpoints, used to order edges shallow-first.
	Depth int
}

// Hidden reports whether the edge is an ordering hint that must not be rendered.
func (e Edge) Hidden() bool { return e.Kind == EdgeOrderingHint }

// EdgeID returns the deterministic edge identifier for a source/target pair.
func EdgeID(source, target string) string { return source + "-" + target }

// Graph holds the nodes and edges of one task tree. Nodes live in an arena in
// creation order; parents always precede their children.
//
// The zero value is not usable - use [NewGraph] or [Build].
// Graph is not safe for concurrent use.
type Graph struct {
	nodes    []*Node
	index    map[string]*Node
	children map[string][]*Node // parent ID ("" = top level) -> ordered children
	edges    []Edge
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		index:    make(map[string]*Node),
		children: make(map[string][]*Node),
	}
}

// AddNode adds a node under its parent. OrderIndex and Depth are derived from
// the parent and the number of siblings already present.
func (g *Graph) AddNode(n Node) (*Node, error) {
	if n.ID == "" {
		return nil, ErrInvalidNodeID
	}
	if _, exists := g.index[n.ID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
	}
	n.Depth = 0
	if n.ParentID != "" {
		parent, ok := g.index[n.ParentID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownParent, n.ParentID)
		}
		if !parent.Kind.IsContainer() {
			return nil, fmt.Errorf("%w: %s", ErrLeafParent, n.ParentID)
		}
		n.Depth = parent.Depth + 1
	}
	n.OrderIndex = len(g.children[n.ParentID])

	node := &n
	g.nodes = append(g.nodes, node)
	g.index[node.ID] = node
	g.children[node.ParentID] = append(g.children[node.ParentID], node)
	return node, nil
}

// AddEdge connects two sibling nodes. ID, Scope and Depth are derived.
func (g *Graph) AddEdge(source, target string, kind EdgeKind) (Edge, error) {
	src, ok := g.index[source]
	if !ok {
		return Edge{}, fmt.Errorf("%w: %s", ErrUnknownSourceNode, source)
	}
	dst, ok := g.index[target]
	if !ok {
		return Edge{}, fmt.Errorf("%w: %s", ErrUnknownTargetNode, target)
	}
	if src.ParentID != dst.ParentID {
		return Edge{}, fmt.Errorf("%w: %s -> %s", ErrCrossScopeEdge, source, target)
	}
	e := Edge{
		ID:     EdgeID(source, target),
		Source: source,
		Target: target,
		Kind:   kind,
		Scope:  src.ParentID,
		Depth:  src.Depth,
	}
	g.edges = append(g.edges, e)
	return e, nil
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.index[id]
	return n, ok
}

// Nodes returns all nodes in creation order (parents before children).
func (g *Graph) Nodes() []*Node { return g.nodes }

// Edges returns all edges, ordering hints included, in creation order.
func (g *Graph) Edges() []Edge { return g.edges }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Children returns the ordered children of id. Use "" for top-level nodes.
func (g *Graph) Children(id string) []*Node { return g.children[id] }

// TopLevel returns the parentless nodes in declaration order.
func (g *Graph) TopLevel() []*Node { return g.children[""] }

// Visibility returns the effective visibility of every node: a node is
// visible when neither it nor any ancestor is hidden.
func (g *Graph) Visibility() map[string]bool {
	visible := make(map[string]bool, len(g.nodes))
	for _, n := range g.nodes {
		v := !n.Hidden
		if v && n.ParentID != "" {
			v = visible[n.ParentID]
		}
		visible[n.ID] = v
	}
	return visible
}

// IsVisible reports the effective visibility of a single node.
func (g *Graph) IsVisible(id string) bool {
	for n, ok := g.index[id]; ok; n, ok = g.index[n.ParentID] {
		if n.Hidden {
			return false
		}
		if n.ParentID == "" {
			return true
		}
	}
	return false
}

// SetHidden marks exactly the given IDs as hidden and all other nodes as
// visible. IDs that match no node are returned; they are typically stale
// entries left over from an earlier configuration.
func (g *Graph) SetHidden(ids []string) (unknown []string) {
	hidden := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := g.index[id]; !ok {
			unknown = append(unknown, id)
			continue
		}
		hidden[id] = true
	}
	for _, n := range g.nodes {
		n.Hidden = hidden[n.ID]
	}
	return unknown
}

// LayoutEdges returns the edges between visible nodes, ordering hints included,
// sorted shallow scope first and declaration order within a scope.
func (g *Graph) LayoutEdges() []Edge {
	visible := g.Visibility()
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		if visible[e.Source] && visible[e.Target] {
			out = append(out, e)
		}
	}
	sortByDepth(out)
	return out
}

// VisibleEdges returns the renderable edges: sequence edges between visible nodes.
func (g *Graph) VisibleEdges() []Edge {
	var out []Edge
	for _, e := range g.LayoutEdges() {
		if !e.Hidden() {
			out = append(out, e)
		}
	}
	return out
}

// sortByDepth orders edges by scope depth, keeping creation order within a depth.
func sortByDepth(edges []Edge) {
	// Insertion sort keyed on Depth is stable and edges are usually already ordered.
	for i := 1; i < len(edges); i++ {
		for j := i; j > 0 && edges[j-1].Depth > edges[j].Depth; j-- {
			edges[j-1], edges[j] = edges[j], edges[j-1]
		}
	}
}
