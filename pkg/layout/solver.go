package layout

import (
	"context"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/flow"
)

// Solver positions the boxes of a request.
//
// Solve either returns a complete result or fails as a whole with
// LAYOUT_SOLVER_FAILURE; there are no partial results.
type Solver interface {
	Solve(ctx context.Context, req *Request) (*Result, error)
}

// SolverFunc adapts a function to the [Solver] interface.
type SolverFunc func(ctx context.Context, req *Request) (*Result, error)

// Solve calls f.
func (f SolverFunc) Solve(ctx context.Context, req *Request) (*Result, error) { return f(ctx, req) }

// Placed is a positioned box. X and Y are the top-left corner relative to
// the parent's top-left corner.
type Placed struct {
	ID       string    `json:"id"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Width    float64   `json:"width"`
	Height   float64   `json:"height"`
	Children []*Placed `json:"children,omitempty"`
}

// Result is the output of a [Solver]: the positioned box tree under [RootID].
type Result struct {
	Root *Placed `json:"root"`
}

// Frame is the arrangement of one container's children, as produced by an
// [Arranger]. Positions are relative to the container's content origin (the
// corner inside its padding) and align with the container's children.
type Frame struct {
	Positions []flow.Point
	// Width and Height are the extent of the arranged content.
	Width  float64
	Height float64
}

// Arranger arranges the children of a single container. sizes holds the
// final size of each child, in child order.
//
// Arrangers are called concurrently for containers at the same depth.
type Arranger interface {
	Arrange(ctx context.Context, box *Box, sizes []flow.Dimensions) (*Frame, error)
}

// LevelSolver solves a request one nesting level at a time, deepest first,
// so that every container is arranged with the final sizes of its children.
// Containers at the same depth are arranged concurrently.
type LevelSolver struct {
	arranger Arranger
	workers  int
}

// NewLevelSolver wraps an arranger. workers bounds concurrent Arrange calls;
// values below one mean runtime.NumCPU().
func NewLevelSolver(a Arranger, workers int) *LevelSolver {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &LevelSolver{arranger: a, workers: workers}
}

// snapTolerance is how far, in pixels, an arranged box may exceed its
// computed size and still be reported at exactly that size. It absorbs the
// rounding of solvers that work in other units.
const snapTolerance = 1.0

// snap returns min unless v exceeds it by more than snapTolerance.
func snap(v, min float64) float64 {
	if v <= min+snapTolerance {
		return min
	}
	return v
}

// solved is the outcome of arranging one box.
type solved struct {
	size  flow.Dimensions
	frame *Frame
}

// Solve implements [Solver].
func (s *LevelSolver) Solve(ctx context.Context, req *Request) (*Result, error) {
	if req == nil || req.Root == nil {
		return nil, errors.New(errors.ErrCodeLayoutSolver, "empty layout request")
	}

	levels := containerLevels(req.Root)
	results := make(map[*Box]*solved)
	Walk(req.Root, func(b *Box) {
		results[b] = &solved{size: flow.Dimensions{Width: b.MinWidth, Height: b.MinHeight}}
	})

	for d := len(levels) - 1; d >= 0; d-- {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers)
		for _, box := range levels[d] {
			g.Go(func() error { return s.arrange(gctx, box, results) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return &Result{Root: assemble(req.Root, results)}, nil
}

// arrange solves one container. It only writes results[box], whose entry
// was allocated before any goroutine started.
func (s *LevelSolver) arrange(ctx context.Context, box *Box, results map[*Box]*solved) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeLayoutSolver, err, "layout of %s canceled", box.ID)
	}
	sizes := make([]flow.Dimensions, len(box.Children))
	for i, c := range box.Children {
		sizes[i] = results[c].size
	}

	frame, err := s.arranger.Arrange(ctx, box, sizes)
	if err != nil {
		if errors.GetCode(err) == errors.ErrCodeLayoutSolver {
			return err
		}
		return errors.Wrap(errors.ErrCodeLayoutSolver, err, "arrange %s", box.ID)
	}
	if err := checkFrame(box, frame); err != nil {
		return err
	}

	r := results[box]
	r.frame = frame
	r.size = flow.Dimensions{
		Width:  snap(frame.Width+box.Padding.Left+box.Padding.Right, box.MinWidth),
		Height: snap(frame.Height+box.Padding.Top+box.Padding.Bottom, box.MinHeight),
	}
	return nil
}

func checkFrame(box *Box, f *Frame) error {
	if f == nil || len(f.Positions) != len(box.Children) {
		return errors.New(errors.ErrCodeLayoutSolver, "solver returned an incomplete frame for %s", box.ID)
	}
	bad := func(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }
	if bad(f.Width) || bad(f.Height) {
		return errors.New(errors.ErrCodeLayoutSolver, "solver returned a non-finite extent for %s", box.ID)
	}
	for i, p := range f.Positions {
		if bad(p.X) || bad(p.Y) {
			return errors.New(errors.ErrCodeLayoutSolver, "solver returned a non-finite position for %s", box.Children[i].ID)
		}
	}
	return nil
}

// containerLevels groups boxes that have children by depth, root at depth 0.
func containerLevels(root *Box) [][]*Box {
	type item struct {
		box   *Box
		depth int
	}
	var levels [][]*Box
	stack := []item{{root, 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.box.IsLeaf() {
			continue
		}
		for len(levels) <= it.depth {
			levels = append(levels, nil)
		}
		levels[it.depth] = append(levels[it.depth], it.box)
		for _, c := range it.box.Children {
			stack = append(stack, item{c, it.depth + 1})
		}
	}
	return levels
}

// assemble builds the placed tree from per-box results.
func assemble(root *Box, results map[*Box]*solved) *Placed {
	type item struct {
		box    *Box
		placed *Placed
	}
	rs := results[root]
	top := &Placed{ID: root.ID, Width: rs.size.Width, Height: rs.size.Height}
	stack := []item{{root, top}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		frame := results[it.box].frame
		for i, c := range it.box.Children {
			cs := results[c].size
			p := &Placed{ID: c.ID, Width: cs.Width, Height: cs.Height}
			if frame != nil {
				p.X = frame.Positions[i].X + it.box.Padding.Left
				p.Y = frame.Positions[i].Y + it.box.Padding.Top
			}
			it.placed.Children = append(it.placed.Children, p)
			stack = append(stack, item{c, p})
		}
	}
	return top
}

// TopoOrder returns the indices of box.Children ordered so that every edge
// source precedes its target. Ties, and children caught in a cycle, keep
// declaration order.
func TopoOrder(box *Box) []int {
	index := make(map[string]int, len(box.Children))
	for i, c := range box.Children {
		index[c.ID] = i
	}
	indeg := make([]int, len(box.Children))
	out := make([][]int, len(box.Children))
	for _, e := range box.Edges {
		s, ok1 := index[e.Source]
		t, ok2 := index[e.Target]
		if !ok1 || !ok2 || s == t {
			continue
		}
		out[s] = append(out[s], t)
		indeg[t]++
	}

	order := make([]int, 0, len(box.Children))
	done := make([]bool, len(box.Children))
	var ready []int
	for i := range box.Children {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}
	for len(order) < len(box.Children) {
		if len(ready) == 0 {
			// Cycle: release the first remaining child in declaration order.
			for i := range box.Children {
				if !done[i] {
					ready = append(ready, i)
					break
				}
			}
		}
		sort.Ints(ready)
		next := ready[0]
		ready = ready[1:]
		if done[next] {
			continue
		}
		done[next] = true
		order = append(order, next)
		for _, t := range out[next] {
			indeg[t]--
			if indeg[t] == 0 && !done[t] {
				ready = append(ready, t)
			}
		}
	}
	return order
}
