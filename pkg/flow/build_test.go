package flow

import (
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/task"
)

func leaf(name string) task.Task { return task.Task{Name: name, Type: "http"} }

func loop(name string, body ...task.Task) task.Task {
	return task.Task{Name: name, Type: task.TypeLoopSequential, Tasks: body}
}

func cond(name string, elseBranch []task.Task, arms ...task.Arm) task.Task {
	return task.Task{Name: name, Type: task.TypeConditional, Conditions: arms, Else: elseBranch}
}

func arm(condition string, body ...task.Task) task.Arm {
	return task.Arm{Condition: condition, Tasks: body}
}

func nodeIDs(g *Graph) []string {
	ids := make([]string, 0, g.NodeCount())
	for _, n := range g.Nodes() {
		ids = append(ids, n.ID)
	}
	return ids
}

func edgeIDs(edges []Edge) []string {
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.ID)
	}
	return ids
}

func mustBuild(t *testing.T, tasks []task.Task, opts ...BuildOption) *Graph {
	t.Helper()
	g, err := Build(tasks, opts...)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return g
}

func TestBuild_Sequence(t *testing.T) {
	g := mustBuild(t, []task.Task{leaf("a"), leaf("b"), leaf("c")})

	if got, want := nodeIDs(g), []string{"task-0", "task-1", "task-2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("nodes = %v, want %v", got, want)
	}
	if got, want := edgeIDs(g.Edges()), []string{"task-0-task-1", "task-1-task-2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
	for _, e := range g.Edges() {
		if e.Kind != EdgeSequence || e.Hidden() {
			t.Errorf("edge %s kind = %s, want visible sequence", e.ID, e.Kind)
		}
	}
	for i, n := range g.Nodes() {
		if n.Kind != KindTask || n.OrderIndex != i || n.Depth != 0 || !n.IsTopLevel() {
			t.Errorf("node %s = %+v", n.ID, n)
		}
	}
}

func TestBuild_ConditionalWithElse(t *testing.T) {
	g := mustBuild(t, []task.Task{
		cond("route", []task.Task{leaf("z")},
			arm("x > 1", leaf("a")),
			arm("x < 0", leaf("b")),
		),
	})

	want := []string{
		"task-0",
		"task-0/arm-0", "task-0/arm-1", "task-0/else",
		"task-0/arm-0/task-0", "task-0/arm-1/task-0", "task-0/else/task-0",
	}
	if got := nodeIDs(g); !reflect.DeepEqual(got, want) {
		t.Errorf("nodes = %v, want %v", got, want)
	}

	edges := g.Edges()
	if got, want := edgeIDs(edges), []string{"task-0/arm-0-task-0/arm-1", "task-0/arm-1-task-0/else"}; !reflect.DeepEqual(got, want) {
		t.Errorf("edges = %v, want %v", got, want)
	}
	for _, e := range edges {
		if !e.Hidden() || e.Scope != "task-0" || e.Depth != 1 {
			t.Errorf("edge %+v, want hidden hint in scope task-0", e)
		}
	}
	if len(g.VisibleEdges()) != 0 {
		t.Errorf("VisibleEdges() = %v, want none", g.VisibleEdges())
	}

	a1, _ := g.Node("task-0/arm-1")
	if a1.Kind != KindArm || a1.Condition != "x < 0" || a1.OrderIndex != 1 || a1.Depth != 1 {
		t.Errorf("arm-1 = %+v", a1)
	}
	el, _ := g.Node("task-0/else")
	if el.Kind != KindElse || el.OrderIndex != 2 {
		t.Errorf("else = %+v", el)
	}
	body, _ := g.Node("task-0/else/task-0")
	if body.Depth != 2 || body.Task.Name != "z" {
		t.Errorf("else body = %+v", body)
	}
}

func TestBuild_ElsePresence(t *testing.T) {
	tests := []struct {
		name     string
		elseTask []task.Task
		wantElse bool
	}{
		{"absent", nil, false},
		{"empty", []task.Task{}, true},
		{"non-empty", []task.Task{leaf("e")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustBuild(t, []task.Task{cond("c", tt.elseTask, arm("ok", leaf("a")))})
			_, got := g.Node("task-0/else")
			if got != tt.wantElse {
				t.Errorf("else node present = %v, want %v", got, tt.wantElse)
			}
		})
	}
}

func TestBuild_EmptyContainers(t *testing.T) {
	g := mustBuild(t, []task.Task{loop("l"), cond("c", nil)})
	if g.NodeCount() != 2 {
		t.Fatalf("NodeCount() = %d, want 2", g.NodeCount())
	}
	if len(g.Children("task-0")) != 0 || len(g.Children("task-1")) != 0 {
		t.Error("empty containers should have no children")
	}
}

func TestBuild_NestedIDs(t *testing.T) {
	g := mustBuild(t, []task.Task{
		leaf("start"),
		loop("each",
			leaf("fetch"),
			cond("check", nil, arm("ok", leaf("store"), leaf("notify"))),
		),
	})

	for _, id := range []string{
		"task-0", "task-1", "task-1/task-0", "task-1/task-1",
		"task-1/task-1/arm-0", "task-1/task-1/arm-0/task-0", "task-1/task-1/arm-0/task-1",
	} {
		if _, ok := g.Node(id); !ok {
			t.Errorf("missing node %s", id)
		}
	}
	wantEdges := []string{"task-0-task-1", "task-1/task-0-task-1/task-1", "task-1/task-1/arm-0/task-0-task-1/task-1/arm-0/task-1"}
	if got := edgeIDs(g.Edges()); !reflect.DeepEqual(got, wantEdges) {
		t.Errorf("edges = %v, want %v", got, wantEdges)
	}
	n, _ := g.Node("task-1/task-1/arm-0/task-1")
	if n.Depth != 4 || n.ParentID != "task-1/task-1/arm-0" {
		t.Errorf("deep node = %+v", n)
	}
}

func TestBuild_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		tasks    []task.Task
		opts     []BuildOption
		wantPath string
	}{
		{
			name:     "empty type",
			tasks:    []task.Task{leaf("a"), {Name: "b"}},
			wantPath: "task-1",
		},
		{
			name:     "nested empty type",
			tasks:    []task.Task{cond("c", nil, arm("x", task.Task{Name: "bad"}))},
			wantPath: "task-0/arm-0/task-0",
		},
		{
			name:     "loop with conditions",
			tasks:    []task.Task{{Name: "l", Type: task.TypeLoopSequential, Conditions: []task.Arm{arm("x")}}},
			wantPath: "task-0",
		},
		{
			name:     "loop with else",
			tasks:    []task.Task{{Name: "l", Type: task.TypeLoopSequential, Else: []task.Task{}}},
			wantPath: "task-0",
		},
		{
			name:     "conditional with tasks",
			tasks:    []task.Task{{Name: "c", Type: task.TypeConditional, Tasks: []task.Task{leaf("a")}}},
			wantPath: "task-0",
		},
		{
			name:     "plain task with body",
			tasks:    []task.Task{{Name: "p", Type: "http", Tasks: []task.Task{leaf("a")}}},
			wantPath: "task-0",
		},
		{
			name:     "unknown type in strict mode",
			tasks:    []task.Task{leaf("a"), loop("l", task.Task{Name: "x", Type: "mystery"})},
			opts:     []BuildOption{WithKnownTypes("http")},
			wantPath: "task-1/task-0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Build(tt.tasks, tt.opts...)
			if err == nil {
				t.Fatalf("Build() = %v nodes, want error", g.NodeCount())
			}
			if !errors.Is(err, errors.ErrCodeMalformedTaskTree) {
				t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.ErrCodeMalformedTaskTree)
			}
			if !strings.Contains(err.Error(), tt.wantPath+":") {
				t.Errorf("error %q does not name path %s", err, tt.wantPath)
			}
			if g != nil {
				t.Error("Build() returned a partial graph")
			}
		})
	}
}

func TestBuild_KnownTypesAllowsStructural(t *testing.T) {
	_, err := Build([]task.Task{loop("l", leaf("a")), cond("c", nil, arm("x"))}, WithKnownTypes("http"))
	if err != nil {
		t.Errorf("Build() error: %v", err)
	}
}

func TestBuild_Limits(t *testing.T) {
	tasks := []task.Task{loop("outer", loop("inner", leaf("a"), leaf("b")))}

	tests := []struct {
		name    string
		limits  Limits
		wantErr bool
	}{
		{"unlimited", Limits{}, false},
		{"depth fits", Limits{MaxDepth: 2}, false},
		{"depth exceeded", Limits{MaxDepth: 1}, true},
		{"nodes fit", Limits{MaxNodes: 4}, false},
		{"nodes exceeded", Limits{MaxNodes: 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tasks, WithLimits(tt.limits))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Build() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeSizeOverflow) {
				t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.ErrCodeSizeOverflow)
			}
		})
	}
}

func TestBuild_DeepNesting(t *testing.T) {
	const depth = 1000
	tasks := []task.Task{leaf("core")}
	for i := 0; i < depth; i++ {
		tasks = []task.Task{loop("wrap", tasks...)}
	}

	g := mustBuild(t, tasks)
	if g.NodeCount() != depth+1 {
		t.Fatalf("NodeCount() = %d, want %d", g.NodeCount(), depth+1)
	}
	if err := Size(g, DefaultTheme()); err != nil {
		t.Fatalf("Size() error: %v", err)
	}
	last := g.Nodes()[depth]
	if last.Depth != depth || last.Kind != KindTask {
		t.Errorf("innermost node = depth %d kind %s", last.Depth, last.Kind)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	tasks := []task.Task{
		leaf("a"),
		cond("c", []task.Task{}, arm("x", loop("l", leaf("b"))), arm("y")),
		leaf("d"),
	}
	g1 := mustBuild(t, tasks)
	g2 := mustBuild(t, tasks)

	if !reflect.DeepEqual(nodeIDs(g1), nodeIDs(g2)) {
		t.Errorf("node IDs differ: %v vs %v", nodeIDs(g1), nodeIDs(g2))
	}
	if !reflect.DeepEqual(g1.Edges(), g2.Edges()) {
		t.Errorf("edges differ: %v vs %v", g1.Edges(), g2.Edges())
	}
}

func TestKind_Text(t *testing.T) {
	for _, k := range []Kind{KindTask, KindLoop, KindConditional, KindArm, KindElse} {
		text, err := k.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d) error: %v", k, err)
		}
		var got Kind
		if err := got.UnmarshalText(text); err != nil || got != k {
			t.Errorf("UnmarshalText(%q) = %v, %v; want %v", text, got, err, k)
		}
	}
	if _, err := Kind(42).MarshalText(); err == nil {
		t.Error("MarshalText(42) should fail")
	}
	var k Kind
	if err := k.UnmarshalText([]byte("widget")); err == nil {
		t.Error("UnmarshalText(widget) should fail")
	}
}
