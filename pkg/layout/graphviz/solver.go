package graphviz

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"strconv"

	gv "github.com/goccy/go-graphviz"

	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/flow"
	"github.com/matzehuels/taskgraph/pkg/layout"
)

// Engine is the name of this solver in configuration and cache keys.
const Engine = "graphviz"

// plainFormat is Graphviz's line-oriented layout output.
const plainFormat gv.Format = "plain"

// Options configures the Graphviz solver.
type Options struct {
	// Workers is the number of Graphviz instances, and so the number of
	// containers solved concurrently. Values below one mean runtime.NumCPU().
	Workers int
}

// Solver is a [layout.Solver] backed by a pool of Graphviz instances.
// It is safe for concurrent use. Close releases the instances.
type Solver struct {
	*layout.LevelSolver
	pool chan *gv.Graphviz
	all  []*gv.Graphviz
}

// New creates a solver and starts its Graphviz instances.
func New(ctx context.Context, opts Options) (*Solver, error) {
	workers := opts.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	s := &Solver{pool: make(chan *gv.Graphviz, workers)}
	for i := 0; i < workers; i++ {
		g, err := gv.New(ctx)
		if err != nil {
			_ = s.Close()
			return nil, errors.Wrap(errors.ErrCodeLayoutSolver, err, "init graphviz")
		}
		s.all = append(s.all, g)
		s.pool <- g
	}
	s.LevelSolver = layout.NewLevelSolver(arranger{pool: s.pool}, workers)
	return s, nil
}

// Close releases all Graphviz instances.
func (s *Solver) Close() error {
	var first error
	for _, g := range s.all {
		if err := g.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.all = nil
	return first
}

// arranger runs one dot layout per container using a pooled instance.
type arranger struct {
	pool chan *gv.Graphviz
}

// Arrange implements [layout.Arranger].
func (a arranger) Arrange(ctx context.Context, box *layout.Box, sizes []flow.Dimensions) (*layout.Frame, error) {
	var inst *gv.Graphviz
	select {
	case inst = <-a.pool:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { a.pool <- inst }()

	dot, names := toDOT(box, sizes)
	g, err := gv.ParseBytes(dot)
	if err != nil {
		return nil, fmt.Errorf("parse dot for %s: %w", box.ID, err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := inst.Render(ctx, g, plainFormat, &buf); err != nil {
		return nil, fmt.Errorf("run dot for %s: %w", box.ID, err)
	}
	out, err := parsePlain(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("read dot output for %s: %w", box.ID, err)
	}
	points, extent, err := out.topLeft(names, sizes)
	if err != nil {
		return nil, err
	}
	return &layout.Frame{Positions: points, Width: extent.Width, Height: extent.Height}, nil
}

// toDOT writes the dot graph of one container. Children are renamed n0, n1,
// ... so that no quoting of node IDs is needed; names maps back by index.
//
// Consecutive children in [layout.TopoOrder] are chained with invisible edges
// so that every child gets its own rank along the container's direction, even
// where hiding a sibling removed the edges between its neighbours.
func toDOT(box *layout.Box, sizes []flow.Dimensions) ([]byte, []string) {
	names := make([]string, len(box.Children))
	index := make(map[string]string, len(box.Children))
	for i, c := range box.Children {
		names[i] = "n" + strconv.Itoa(i)
		index[c.ID] = names[i]
	}

	rankdir := "TB"
	if box.Direction == layout.Horizontal {
		rankdir = "LR"
	}
	sep := inches(box.Spacing)

	var buf bytes.Buffer
	buf.WriteString("digraph L {\n")
	fmt.Fprintf(&buf, "  graph [rankdir=%s, ranksep=%s, nodesep=%s, margin=0, pad=0];\n", rankdir, sep, sep)
	buf.WriteString("  node [shape=box, fixedsize=true, label=\"\"];\n")
	for i := range box.Children {
		fmt.Fprintf(&buf, "  %s [width=%s, height=%s];\n", names[i], inches(sizes[i].Width), inches(sizes[i].Height))
	}
	linked := make(map[[2]string]bool, len(box.Edges))
	for _, e := range box.Edges {
		src, ok1 := index[e.Source]
		dst, ok2 := index[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		linked[[2]string{src, dst}] = true
		if e.Hint {
			fmt.Fprintf(&buf, "  %s -> %s [style=invis];\n", src, dst)
		} else {
			fmt.Fprintf(&buf, "  %s -> %s;\n", src, dst)
		}
	}
	order := layout.TopoOrder(box)
	for i := 1; i < len(order); i++ {
		pair := [2]string{names[order[i-1]], names[order[i]]}
		if !linked[pair] {
			fmt.Fprintf(&buf, "  %s -> %s [style=invis];\n", pair[0], pair[1])
		}
	}
	buf.WriteString("}\n")
	return buf.Bytes(), names
}

func inches(px float64) string {
	return strconv.FormatFloat(px/pointsPerInch, 'f', 6, 64)
}

var _ layout.Solver = (*Solver)(nil)
