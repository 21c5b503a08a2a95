package flow

import (
	"math"

	"github.com/matzehuels/taskgraph/pkg/errors"
)

// Size computes the width and height of every node in place, bottom-up.
//
// Leaves get the theme's minimum node size. Stacked containers (loops, arms,
// else-branches) are as wide as their widest visible child and as tall as
// their visible children plus spacing. Side-by-side containers (conditionals)
// swap the two axes. Both add the theme's chrome. A container without visible
// children is header-only. Hidden nodes, and nodes under a hidden ancestor,
// get a zero size and take no spacing slot.
//
// A final pass widens every visible top-level node to the widest one. The
// extra width propagates down so the container rules above keep holding:
// stacked containers stretch their children, side-by-side containers split the
// extra width evenly across their visible children.
//
// Size walks the graph with an explicit worklist; the result depends only on
// the graph structure, hidden flags and theme.
func Size(g *Graph, theme Theme) error {
	if err := theme.Validate(); err != nil {
		return err
	}
	visible := g.Visibility()
	order := preorder(g)

	// Reverse pre-order visits every child before its parent.
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		if !visible[n.ID] {
			n.Size = Dimensions{}
			continue
		}
		size, err := measure(g, n, visible, theme)
		if err != nil {
			return err
		}
		if !finite(size) {
			return errors.New(errors.ErrCodeSizeOverflow, "size of %s is not finite (%vx%v)", n.ID, size.Width, size.Height)
		}
		n.Size = size
	}

	return normalize(g, visible, theme)
}

// measure applies the node's sizing policy to its already-sized children.
func measure(g *Graph, n *Node, visible map[string]bool, theme Theme) (Dimensions, error) {
	policy, ok := n.Kind.Policy()
	if !ok {
		return Dimensions{}, errors.New(errors.ErrCodeInternal, "node %s has unknown kind %s", n.ID, n.Kind)
	}
	if policy == PolicyFixed {
		return Dimensions{Width: theme.MinNodeWidth, Height: theme.MinNodeHeight}, nil
	}

	kids := visibleChildren(g, n.ID, visible)
	if len(kids) == 0 {
		return Dimensions{Width: theme.MinNodeWidth, Height: theme.EmptyHeight()}, nil
	}

	var sum, widest float64
	gaps := theme.NodeSpacing * float64(len(kids)-1)
	switch policy {
	case PolicyStacked:
		for _, c := range kids {
			sum += c.Size.Height
			widest = math.Max(widest, c.Size.Width)
		}
		return Dimensions{
			Width:  widest + theme.HChrome(),
			Height: sum + gaps + theme.VChrome(),
		}, nil
	case PolicySideBySide:
		for _, c := range kids {
			sum += c.Size.Width
			widest = math.Max(widest, c.Size.Height)
		}
		return Dimensions{
			Width:  sum + gaps + theme.HChrome(),
			Height: widest + theme.VChrome(),
		}, nil
	default:
		return Dimensions{}, errors.New(errors.ErrCodeInternal, "node %s has unknown policy %d", n.ID, policy)
	}
}

// widen is a pending request to grow a node to the given width.
type widen struct {
	node  *Node
	width float64
}

// normalize gives all visible top-level nodes the width of the widest one.
func normalize(g *Graph, visible map[string]bool, theme Theme) error {
	top := visibleChildren(g, "", visible)
	var widest float64
	for _, n := range top {
		widest = math.Max(widest, n.Size.Width)
	}

	var work []widen
	for _, n := range top {
		if n.Size.Width < widest {
			work = append(work, widen{node: n, width: widest})
		}
	}

	for len(work) > 0 {
		w := work[len(work)-1]
		work = work[:len(work)-1]

		n := w.node
		extra := w.width - n.Size.Width
		if extra <= 0 {
			continue
		}
		n.Size.Width = w.width

		kids := visibleChildren(g, n.ID, visible)
		if len(kids) == 0 {
			continue
		}
		policy, _ := n.Kind.Policy()
		switch policy {
		case PolicyStacked:
			inner := w.width - theme.HChrome()
			for _, c := range kids {
				work = append(work, widen{node: c, width: inner})
			}
		case PolicySideBySide:
			share := extra / float64(len(kids))
			for _, c := range kids {
				work = append(work, widen{node: c, width: c.Size.Width + share})
			}
		case PolicyFixed:
		}
		if math.IsInf(n.Size.Width, 0) || math.IsNaN(n.Size.Width) {
			return errors.New(errors.ErrCodeSizeOverflow, "width of %s is not finite", n.ID)
		}
	}
	return nil
}

// preorder returns all nodes reachable from the top level, parents first.
func preorder(g *Graph) []*Node {
	order := make([]*Node, 0, g.NodeCount())
	stack := reversed(g.TopLevel())
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, n)
		stack = append(stack, reversed(g.Children(n.ID))...)
	}
	return order
}

func reversed(nodes []*Node) []*Node {
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[len(nodes)-1-i] = n
	}
	return out
}

func visibleChildren(g *Graph, id string, visible map[string]bool) []*Node {
	var out []*Node
	for _, c := range g.Children(id) {
		if visible[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

func finite(d Dimensions) bool {
	return !math.IsInf(d.Width, 0) && !math.IsNaN(d.Width) &&
		!math.IsInf(d.Height, 0) && !math.IsNaN(d.Height)
}
