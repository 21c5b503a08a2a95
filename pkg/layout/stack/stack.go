// Package stack provides a deterministic in-process layout solver.
//
// Children of each container are ordered topologically by the container's
// edges (declaration order breaks ties) and placed one after another along
// the container's direction, separated by its spacing. Cross-axis alignment
// is to the start of the content area.
//
// Because the placement rules mirror the sizing rules of package flow, the
// solver never grows a box: every placed size equals its computed size.
// That makes it suitable both as the "stack" engine and as a fake solver in
// tests of code that consumes layouts.
package stack

import (
	"context"
	"math"

	"github.com/matzehuels/taskgraph/pkg/flow"
	"github.com/matzehuels/taskgraph/pkg/layout"
)

// Engine is the name of this solver in configuration and cache keys.
const Engine = "stack"

// New returns a stack solver. Arranging is cheap, so a single worker is used.
func New() *layout.LevelSolver {
	return layout.NewLevelSolver(Arranger{}, 1)
}

// Arranger implements [layout.Arranger]. It is stateless and safe for
// concurrent use.
type Arranger struct{}

// Arrange places the children of box along its direction.
func (Arranger) Arrange(ctx context.Context, box *layout.Box, sizes []flow.Dimensions) (*layout.Frame, error) {
	frame := &layout.Frame{Positions: make([]flow.Point, len(box.Children))}
	var offset float64
	for n, i := range layout.TopoOrder(box) {
		if n > 0 {
			offset += box.Spacing
		}
		s := sizes[i]
		if box.Direction == layout.Horizontal {
			frame.Positions[i] = flow.Point{X: offset, Y: 0}
			offset += s.Width
			frame.Height = math.Max(frame.Height, s.Height)
		} else {
			frame.Positions[i] = flow.Point{X: 0, Y: offset}
			offset += s.Height
			frame.Width = math.Max(frame.Width, s.Width)
		}
	}
	if box.Direction == layout.Horizontal {
		frame.Width = offset
	} else {
		frame.Height = offset
	}
	return frame, nil
}

var _ layout.Arranger = Arranger{}
