// Package flowtest provides property-test generators for task trees.
package flowtest

import (
	"github.com/matzehuels/taskgraph/pkg/flow"
	"github.com/matzehuels/taskgraph/pkg/task"

	"pgregory.net/rapid"
)

var plainTypes = []string{"http", "script", "email", "wait"}

// Tasks generates task lists nested at most maxDepth containers deep.
// Every generated tree passes [flow.Build] without options.
func Tasks(maxDepth int) *rapid.Generator[[]task.Task] {
	return rapid.Custom(func(t *rapid.T) []task.Task {
		return drawList(t, maxDepth, 4)
	})
}

func drawList(t *rapid.T, depth, width int) []task.Task {
	n := rapid.IntRange(0, width).Draw(t, "len")
	out := make([]task.Task, n)
	for i := range out {
		out[i] = drawTask(t, depth)
	}
	return out
}

func drawTask(t *rapid.T, depth int) task.Task {
	kind := 0
	if depth > 0 {
		kind = rapid.IntRange(0, 2).Draw(t, "kind")
	}
	name := rapid.StringMatching(`[a-z]{1,6}`).Draw(t, "name")
	switch kind {
	case 1:
		return task.Task{Name: name, Type: task.TypeLoopSequential, Tasks: drawList(t, depth-1, 3)}
	case 2:
		arms := make([]task.Arm, rapid.IntRange(0, 3).Draw(t, "arms"))
		for i := range arms {
			arms[i] = task.Arm{
				Condition: rapid.StringMatching(`[a-z]+ [<>] [0-9]`).Draw(t, "condition"),
				Tasks:     drawList(t, depth-1, 3),
			}
		}
		tk := task.Task{Name: name, Type: task.TypeConditional, Conditions: arms}
		if rapid.Bool().Draw(t, "else") {
			tk.Else = drawList(t, depth-1, 2)
			if tk.Else == nil {
				tk.Else = []task.Task{}
			}
		}
		return tk
	default:
		return task.Task{Name: name, Type: rapid.SampledFrom(plainTypes).Draw(t, "type")}
	}
}

// Hidden draws a random subset of the graph's node IDs, roughly one in four.
func Hidden(t *rapid.T, g *flow.Graph) []string {
	var hidden []string
	for _, n := range g.Nodes() {
		if rapid.IntRange(0, 3).Draw(t, "hide") == 0 {
			hidden = append(hidden, n.ID)
		}
	}
	return hidden
}
