package layout

import (
	"math"

	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/flow"
	"github.com/matzehuels/taskgraph/pkg/task"
)

// Record is one positioned node, the unit consumed by renderers.
// Position is relative to the parent's top-left corner; top-level records
// are relative to the diagram origin.
type Record struct {
	ID         string          `json:"id"`
	ParentID   string          `json:"parent_id,omitempty"`
	Kind       flow.Kind       `json:"kind"`
	Label      string          `json:"label"`
	Position   flow.Point      `json:"position"`
	Size       flow.Dimensions `json:"size"`
	OrderIndex int             `json:"order_index"`
	Depth      int             `json:"depth"`
	Condition  string          `json:"condition,omitempty"`
	TaskType   string          `json:"task_type,omitempty"`

	// Task is the configuration entry the node was built from.
	Task *task.Task `json:"-"`
}

// Flatten converts a solver result into records, parents before children.
//
// Each record takes its position from the result and its kind and payload
// from the graph node with the same ID. Its size is the node's computed
// size, or the placed size where a solver grew the box. Hidden nodes never reach the
// solver and therefore produce no record. As a side effect the Position of
// every emitted graph node is set.
//
// A result that names an unknown node, a hidden node or the same node twice,
// places a node under the wrong parent, or leaves out a visible node fails
// with LAYOUT_SOLVER_FAILURE.
func Flatten(res *Result, g *flow.Graph) ([]Record, error) {
	if res == nil || res.Root == nil {
		return nil, errors.New(errors.ErrCodeLayoutSolver, "layout result is empty")
	}
	if res.Root.ID != RootID {
		return nil, errors.New(errors.ErrCodeLayoutSolver, "layout result root is %q, want %q", res.Root.ID, RootID)
	}

	type item struct {
		placed   *Placed
		parentID string
	}
	records := make([]Record, 0, g.NodeCount())
	seen := make(map[string]bool, g.NodeCount())
	stack := make([]item, 0, len(res.Root.Children))
	for i := len(res.Root.Children) - 1; i >= 0; i-- {
		stack = append(stack, item{res.Root.Children[i], ""})
	}

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		p := it.placed

		n, ok := g.Node(p.ID)
		if !ok {
			return nil, errors.New(errors.ErrCodeLayoutSolver, "layout result names unknown node %q", p.ID)
		}
		if n.ParentID != it.parentID {
			return nil, errors.New(errors.ErrCodeLayoutSolver, "layout result places %s under %q, want %q", n.ID, it.parentID, n.ParentID)
		}
		if !g.IsVisible(n.ID) {
			return nil, errors.New(errors.ErrCodeLayoutSolver, "layout result contains hidden node %s", n.ID)
		}
		if seen[n.ID] {
			return nil, errors.New(errors.ErrCodeLayoutSolver, "layout result places %s twice", n.ID)
		}
		seen[n.ID] = true

		pos := flow.Point{X: p.X, Y: p.Y}
		n.Position = &pos
		rec := Record{
			ID:         n.ID,
			ParentID:   n.ParentID,
			Kind:       n.Kind,
			Label:      n.Label,
			Position:   pos,
			Size:       grown(n.Size, p),
			OrderIndex: n.OrderIndex,
			Depth:      n.Depth,
			Condition:  n.Condition,
			Task:       n.Task,
		}
		if n.Task != nil {
			rec.TaskType = n.Task.Type
		}
		records = append(records, rec)

		for i := len(p.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{p.Children[i], n.ID})
		}
	}

	for _, n := range g.Nodes() {
		if !seen[n.ID] && g.IsVisible(n.ID) {
			return nil, errors.New(errors.ErrCodeLayoutSolver, "layout result is missing visible node %s", n.ID)
		}
	}
	return records, nil
}

// grown returns the computed size, enlarged where the solver grew the box.
func grown(size flow.Dimensions, p *Placed) flow.Dimensions {
	return flow.Dimensions{Width: math.Max(size.Width, p.Width), Height: math.Max(size.Height, p.Height)}
}

// Absolute returns a copy of records with positions relative to the diagram
// origin instead of the parent. records must list parents before children,
// as [Flatten] does.
func Absolute(records []Record) []Record {
	out := make([]Record, len(records))
	origin := make(map[string]flow.Point, len(records))
	for i, r := range records {
		if r.ParentID != "" {
			base := origin[r.ParentID]
			r.Position.X += base.X
			r.Position.Y += base.Y
		}
		origin[r.ID] = r.Position
		out[i] = r
	}
	return out
}

// Extent returns the width and height of the whole diagram.
func (r *Result) Extent() flow.Dimensions {
	if r == nil || r.Root == nil {
		return flow.Dimensions{}
	}
	return flow.Dimensions{Width: r.Root.Width, Height: r.Root.Height}
}
