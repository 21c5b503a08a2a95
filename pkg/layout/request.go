package layout

import (
	"github.com/matzehuels/taskgraph/pkg/cache"
	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/flow"
)

// RootID is the ID of the synthetic box holding the top-level nodes.
// Node IDs never collide with it because they always start with "task-".
const RootID = "root"

// Direction is the axis a container arranges its children along.
type Direction string

const (
	// Vertical stacks children top to bottom.
	Vertical Direction = "vertical"
	// Horizontal places children left to right.
	Horizontal Direction = "horizontal"
)

// Padding is the space between a box's outer edge and its children.
type Padding struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Edge is an edge between two children of the same box.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	// Hint marks ordering-only edges that carry no flow.
	Hint bool `json:"hint,omitempty"`
}

// Box is one node of a layout request. Leaves have no children; containers
// hold their visible children and the edges between them.
type Box struct {
	ID string `json:"id"`
	// MinWidth and MinHeight are the sizes computed by flow.Size.
	// Solvers may grow a box but never shrink it.
	MinWidth  float64   `json:"min_width"`
	MinHeight float64   `json:"min_height"`
	Direction Direction `json:"direction,omitempty"`
	Padding   Padding   `json:"padding"`
	Spacing   float64   `json:"spacing,omitempty"`
	Children  []*Box    `json:"children,omitempty"`
	Edges     []Edge    `json:"edges,omitempty"`
}

// IsLeaf reports whether the box has no children to arrange.
func (b *Box) IsLeaf() bool { return len(b.Children) == 0 }

// Request is the input of a [Solver]: a tree of boxes under [RootID].
type Request struct {
	Root *Box `json:"root"`
}

// NewRequest converts a sized graph into a layout request.
//
// Only visible nodes become boxes. Conditionals arrange their arms
// horizontally; every other container (and the root) arranges vertically.
// Containers with visible children are padded by header plus inset on top and
// by the inset elsewhere; empty containers carry only the header and border.
//
// Edges are attached to the box of their scope, shallow scopes first and in
// declaration order within a scope. Ordering hints are included and tagged.
func NewRequest(g *flow.Graph, theme flow.Theme) (*Request, error) {
	if err := theme.Validate(); err != nil {
		return nil, err
	}
	root := &Box{ID: RootID, Direction: Vertical, Spacing: theme.NodeSpacing}
	boxes := map[string]*Box{"": root}
	visible := g.Visibility()
	hasChildren := make(map[string]bool)
	for _, n := range g.Nodes() {
		if visible[n.ID] && n.ParentID != "" {
			hasChildren[n.ParentID] = true
		}
	}

	// Nodes are in creation order, so parents are seen before children.
	for _, n := range g.Nodes() {
		if !visible[n.ID] {
			continue
		}
		parent, ok := boxes[n.ParentID]
		if !ok {
			return nil, errors.New(errors.ErrCodeInternal, "parent %q of %s has no box", n.ParentID, n.ID)
		}
		b := &Box{ID: n.ID, MinWidth: n.Size.Width, MinHeight: n.Size.Height}
		if n.Kind.IsContainer() {
			b.Direction = Vertical
			if n.Kind == flow.KindConditional {
				b.Direction = Horizontal
			}
			b.Spacing = theme.NodeSpacing
			b.Padding = containerPadding(theme, hasChildren[n.ID])
		}
		parent.Children = append(parent.Children, b)
		boxes[n.ID] = b
	}

	for _, e := range g.LayoutEdges() {
		b, ok := boxes[e.Scope]
		if !ok {
			return nil, errors.New(errors.ErrCodeInternal, "scope %q of edge %s has no box", e.Scope, e.ID)
		}
		b.Edges = append(b.Edges, Edge{ID: e.ID, Source: e.Source, Target: e.Target, Hint: e.Hidden()})
	}
	return &Request{Root: root}, nil
}

func containerPadding(theme flow.Theme, hasChildren bool) Padding {
	if !hasChildren {
		return Padding{
			Top:    theme.HeaderHeight + theme.BorderWidth,
			Right:  theme.BorderWidth,
			Bottom: theme.BorderWidth,
			Left:   theme.BorderWidth,
		}
	}
	inset := theme.Inset()
	return Padding{Top: theme.HeaderHeight + inset, Right: inset, Bottom: inset, Left: inset}
}

// Hash returns a content hash of the request, used as a memoization key.
func (r *Request) Hash() (string, error) {
	h, err := cache.HashJSON(r)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "hash layout request")
	}
	return h, nil
}

// BoxCount returns the number of boxes below the root.
func (r *Request) BoxCount() int {
	count := 0
	Walk(r.Root, func(b *Box) {
		if b != r.Root {
			count++
		}
	})
	return count
}

// Walk visits b and its descendants in pre-order without recursion.
func Walk(b *Box, fn func(*Box)) {
	if b == nil {
		return
	}
	stack := []*Box{b}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(cur)
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
}
