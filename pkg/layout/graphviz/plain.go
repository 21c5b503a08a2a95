package graphviz

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/taskgraph/pkg/flow"
)

// pointsPerInch converts between Graphviz inches and pixels.
const pointsPerInch = 72.0

// plainNode is a node read from plain output, in inches, center-anchored.
type plainNode struct {
	X, Y, Width, Height float64
}

// plainGraph is the parsed content of a plain-format layout.
type plainGraph struct {
	Width, Height float64
	Nodes         map[string]plainNode
}

// parsePlain reads Graphviz plain output. Only the graph and node
// statements are used; edge statements are skipped.
func parsePlain(data []byte) (*plainGraph, error) {
	g := &plainGraph{Nodes: make(map[string]plainNode)}
	sawGraph := false

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "graph":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: short graph statement", line)
			}
			vals, err := parseFloats(fields[2:4])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			g.Width, g.Height = vals[0], vals[1]
			sawGraph = true
		case "node":
			if len(fields) < 6 {
				return nil, fmt.Errorf("line %d: short node statement", line)
			}
			vals, err := parseFloats(fields[2:6])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			name := strings.Trim(fields[1], `"`)
			g.Nodes[name] = plainNode{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
		case "edge":
		case "stop":
			if !sawGraph {
				return nil, fmt.Errorf("missing graph statement")
			}
			return g, nil
		default:
			return nil, fmt.Errorf("line %d: unknown statement %q", line, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("unterminated plain output")
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", f)
		}
		out[i] = v
	}
	return out, nil
}

// topLeft converts the named nodes to top-left pixel positions and shifts
// them so the bounding box of the group starts at (0, 0). sizes are the
// pixel sizes the nodes were laid out with; they are used instead of the
// rounded sizes in the output. It returns the positions in names order and
// the group's extent.
func (g *plainGraph) topLeft(names []string, sizes []flow.Dimensions) ([]flow.Point, flow.Dimensions, error) {
	points := make([]flow.Point, len(names))
	if len(names) == 0 {
		return points, flow.Dimensions{}, nil
	}

	minX, minY := 0.0, 0.0
	for i, name := range names {
		n, ok := g.Nodes[name]
		if !ok {
			return nil, flow.Dimensions{}, fmt.Errorf("node %s missing from layout", name)
		}
		x := n.X*pointsPerInch - sizes[i].Width/2
		y := (g.Height-n.Y)*pointsPerInch - sizes[i].Height/2
		points[i] = flow.Point{X: x, Y: y}
		if i == 0 || x < minX {
			minX = x
		}
		if i == 0 || y < minY {
			minY = y
		}
	}

	var extent flow.Dimensions
	for i := range points {
		points[i].X -= minX
		points[i].Y -= minY
		extent.Width = max(extent.Width, points[i].X+sizes[i].Width)
		extent.Height = max(extent.Height, points[i].Y+sizes[i].Height)
	}
	return points, extent, nil
}
