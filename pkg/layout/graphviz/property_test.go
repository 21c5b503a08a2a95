package graphviz

import (
	"context"
	"math"
	"testing"

	"pgregory.net/rapid"

	"github.com/matzehuels/taskgraph/pkg/flow"
	"github.com/matzehuels/taskgraph/pkg/flow/flowtest"
	"github.com/matzehuels/taskgraph/pkg/layout"
)

// geomTolerance absorbs Graphviz's rounding to whole points.
const geomTolerance = 1.0

// Random trees with random hidden sets keep the geometry flow.Size promised:
// children inside their parent, along the parent's direction in declaration
// order without overlap, and top-level nodes of one width.
func TestProperty_Geometry(t *testing.T) {
	if testing.Short() {
		t.Skip("runs Graphviz")
	}
	ctx := context.Background()
	s, err := New(ctx, Options{Workers: 2})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer s.Close()
	theme := flow.DefaultTheme()

	rapid.Check(t, func(rt *rapid.T) {
		g, err := flow.Build(flowtest.Tasks(3).Draw(rt, "tasks"))
		if err != nil {
			rt.Fatalf("Build() error: %v", err)
		}
		g.SetHidden(flowtest.Hidden(rt, g))
		if err := flow.Size(g, theme); err != nil {
			rt.Fatalf("Size() error: %v", err)
		}
		req, err := layout.NewRequest(g, theme)
		if err != nil {
			rt.Fatalf("NewRequest() error: %v", err)
		}
		res, err := s.Solve(ctx, req)
		if err != nil {
			rt.Fatalf("Solve() error: %v", err)
		}

		directions := map[string]layout.Direction{}
		layout.Walk(req.Root, func(b *layout.Box) { directions[b.ID] = b.Direction })

		var check func(p *layout.Placed)
		check = func(p *layout.Placed) {
			for i, c := range p.Children {
				n, _ := g.Node(c.ID)
				if c.Width < n.Size.Width-1e-6 || c.Height < n.Size.Height-1e-6 {
					rt.Fatalf("%s placed %vx%v, smaller than computed %vx%v", c.ID, c.Width, c.Height, n.Size.Width, n.Size.Height)
				}
				if c.X < -geomTolerance || c.Y < -geomTolerance ||
					c.X+c.Width > p.Width+geomTolerance || c.Y+c.Height > p.Height+geomTolerance {
					rt.Fatalf("%s at (%v,%v) %vx%v overflows %s %vx%v", c.ID, c.X, c.Y, c.Width, c.Height, p.ID, p.Width, p.Height)
				}
				if i > 0 {
					prev := p.Children[i-1]
					if directions[p.ID] == layout.Horizontal {
						if c.X < prev.X+prev.Width-geomTolerance {
							rt.Fatalf("%s at x=%v overlaps or precedes %s ending at x=%v", c.ID, c.X, prev.ID, prev.X+prev.Width)
						}
					} else if c.Y < prev.Y+prev.Height-geomTolerance {
						rt.Fatalf("%s at y=%v overlaps or precedes %s ending at y=%v", c.ID, c.Y, prev.ID, prev.Y+prev.Height)
					}
				}
				check(c)
			}
		}
		check(res.Root)

		records, err := layout.Flatten(res, g)
		if err != nil {
			rt.Fatalf("Flatten() error: %v", err)
		}
		var widths []float64
		for _, r := range records {
			if r.ParentID == "" {
				widths = append(widths, r.Size.Width)
			}
		}
		for _, w := range widths {
			if math.Abs(w-widths[0]) > 1e-6 {
				rt.Fatalf("top-level widths differ: %v", widths)
			}
		}
	})
}
