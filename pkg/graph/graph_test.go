package graph

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/taskgraph/pkg/flow"
	"github.com/matzehuels/taskgraph/pkg/layout"
	"github.com/matzehuels/taskgraph/pkg/layout/stack"
	"github.com/matzehuels/taskgraph/pkg/task"
)

var sampleTasks = []task.Task{
	{Name: "fetch", Type: "http"},
	{Name: "route", Type: task.TypeConditional, Conditions: []task.Arm{
		{Condition: "ok", Tasks: []task.Task{{Name: "store", Type: "script"}}},
		{Condition: "retry", Tasks: []task.Task{{Name: "wait", Type: "wait"}}},
	}},
}

func sampleLayout(t *testing.T, hidden ...string) (*flow.Graph, Layout) {
	t.Helper()
	theme := flow.DefaultTheme()
	g, err := flow.Build(sampleTasks)
	if err != nil {
		t.Fatal(err)
	}
	g.SetHidden(hidden)
	if err := flow.Size(g, theme); err != nil {
		t.Fatal(err)
	}
	req, err := layout.NewRequest(g, theme)
	if err != nil {
		t.Fatal(err)
	}
	res, err := stack.New().Solve(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	records, err := layout.Flatten(res, g)
	if err != nil {
		t.Fatal(err)
	}
	return g, FromRecords(stack.Engine, res.Extent(), theme, records, g.VisibleEdges())
}

func TestFromFlow(t *testing.T) {
	g, _ := sampleLayout(t, "task-1/arm-1")
	out := FromFlow(g)

	if len(out.Nodes) != g.NodeCount() || len(out.Edges) != g.EdgeCount() {
		t.Fatalf("FromFlow() = %d nodes %d edges, want %d %d", len(out.Nodes), len(out.Edges), g.NodeCount(), g.EdgeCount())
	}
	nodes := map[string]Node{}
	for _, n := range out.Nodes {
		nodes[n.ID] = n
	}
	if n := nodes["task-1/arm-1/task-0"]; !n.Hidden {
		t.Error("nodes under a hidden arm should be marked hidden")
	}
	if n := nodes["task-1/arm-0"]; n.Kind != "arm" || n.Condition != "ok" || n.Hidden {
		t.Errorf("arm node = %+v", n)
	}
	if n := nodes["task-0"]; n.TaskType != "http" || n.Width == 0 {
		t.Errorf("leaf node = %+v", n)
	}
	if n := nodes["task-1"]; n.TaskType != "" {
		t.Errorf("containers should not carry a task type, got %q", n.TaskType)
	}

	kinds := map[string]int{}
	for _, e := range out.Edges {
		kinds[e.Kind]++
	}
	if kinds[EdgeKindSequence] != 1 || kinds[EdgeKindHint] != 1 {
		t.Errorf("edge kinds = %v", kinds)
	}
}

func TestGraphRoundTrip(t *testing.T) {
	g, _ := sampleLayout(t)
	var buf bytes.Buffer
	if err := WriteGraph(FromFlow(g), &buf); err != nil {
		t.Fatalf("WriteGraph() error: %v", err)
	}
	back, err := ReadGraph(&buf)
	if err != nil {
		t.Fatalf("ReadGraph() error: %v", err)
	}
	if len(back.Nodes) != g.NodeCount() {
		t.Errorf("round trip nodes = %d, want %d", len(back.Nodes), g.NodeCount())
	}
	if _, err := ReadGraph(strings.NewReader("{")); err == nil {
		t.Error("ReadGraph() should reject invalid JSON")
	}
}

func TestFromRecords(t *testing.T) {
	_, l := sampleLayout(t)
	if l.Engine != stack.Engine || l.Width == 0 || l.Height == 0 {
		t.Errorf("layout header = %s %vx%v", l.Engine, l.Width, l.Height)
	}
	if len(l.Nodes) != 7 {
		t.Errorf("nodes = %d, want 7", len(l.Nodes))
	}
	if len(l.Edges) != 1 || l.Edges[0].ID != "task-0-task-1" {
		t.Errorf("edges = %+v, want only the sequence edge", l.Edges)
	}
	if err := l.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
		want   string
	}{
		{"no engine", Layout{}, "engine"},
		{"empty id", Layout{Engine: "stack", Nodes: []Node{{}}}, "without id"},
		{"duplicate", Layout{Engine: "stack", Nodes: []Node{{ID: "a"}, {ID: "a"}}}, "duplicate"},
		{"child first", Layout{Engine: "stack", Nodes: []Node{{ID: "a/b", ParentID: "a"}, {ID: "a"}}}, "precedes"},
		{"dangling edge", Layout{Engine: "stack", Nodes: []Node{{ID: "a"}}, Edges: []Edge{{ID: "a-b", Source: "a", Target: "b"}}}, "unknown node"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layout.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLayoutFileRoundTrip(t *testing.T) {
	_, l := sampleLayout(t, "task-1/arm-0")
	l.Hidden = []string{"task-1/arm-0"}
	path := filepath.Join(t.TempDir(), "flow.layout.json")

	if err := WriteLayoutFile(l, path); err != nil {
		t.Fatalf("WriteLayoutFile() error: %v", err)
	}
	back, err := ReadLayoutFile(path)
	if err != nil {
		t.Fatalf("ReadLayoutFile() error: %v", err)
	}
	if back.Engine != l.Engine || len(back.Nodes) != len(l.Nodes) || back.Theme != l.Theme {
		t.Errorf("round trip = %+v", back)
	}
	if len(back.Hidden) != 1 {
		t.Errorf("hidden = %v", back.Hidden)
	}

	if _, err := ReadLayoutFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("ReadLayoutFile() should fail for a missing file")
	}
	bad := filepath.Join(t.TempDir(), "bad.json")
	_ = os.WriteFile(bad, []byte(`{"engine": ""}`), 0644)
	if _, err := ReadLayoutFile(bad); err == nil {
		t.Error("ReadLayoutFile() should validate the layout")
	}
}
