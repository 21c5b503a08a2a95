package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/taskgraph/pkg/cache"
	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/flow"
	"github.com/matzehuels/taskgraph/pkg/layout"
	"github.com/matzehuels/taskgraph/pkg/layout/stack"
	"github.com/matzehuels/taskgraph/pkg/observability"
	"github.com/matzehuels/taskgraph/pkg/task"
)

func leaf(name string) task.Task { return task.Task{Name: name, Type: "http"} }

var workflow = []task.Task{
	leaf("start"),
	{
		Name: "route", Type: task.TypeConditional,
		Conditions: []task.Arm{
			{Condition: "a", Tasks: []task.Task{leaf("x")}},
			{Condition: "b", Tasks: []task.Task{leaf("y")}},
		},
		Else: []task.Task{leaf("z")},
	},
	leaf("end"),
}

func stackOpts(hidden ...string) Options {
	return Options{Engine: stack.Engine, Hidden: hidden}
}

func TestValidateEngine(t *testing.T) {
	tests := []struct {
		engine  string
		wantErr bool
	}{
		{"graphviz", false},
		{"stack", false},
		{"dot", true},
		{"Stack", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateEngine(tt.engine)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateEngine(%q) error = %v, wantErr %v", tt.engine, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidEngine) {
			t.Errorf("ValidateEngine(%q) code = %s, want INVALID_ENGINE", tt.engine, errors.GetCode(err))
		}
	}
}

func TestSetDefaults(t *testing.T) {
	var o Options
	o.SetDefaults()

	if o.Engine != DefaultEngine {
		t.Errorf("Engine = %q, want %q", o.Engine, DefaultEngine)
	}
	if o.Theme != flow.DefaultTheme() {
		t.Errorf("Theme = %+v, want default", o.Theme)
	}
	if o.Limits.MaxDepth != DefaultMaxDepth || o.Limits.MaxNodes != DefaultMaxNodes {
		t.Errorf("Limits = %+v", o.Limits)
	}
	if o.Logger == nil {
		t.Error("Logger should be set")
	}

	custom := Options{Engine: stack.Engine, Theme: flow.Theme{MinNodeWidth: 10, MinNodeHeight: 10}}
	custom.SetDefaults()
	if custom.Engine != stack.Engine || custom.Theme.MinNodeWidth != 10 {
		t.Errorf("SetDefaults() overwrote explicit values: %+v", custom)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"defaults", Options{}, ""},
		{"bad engine", Options{Engine: "neato"}, errors.ErrCodeInvalidEngine},
		{"bad theme", Options{Theme: flow.Theme{MinNodeWidth: -1, MinNodeHeight: 1}}, errors.ErrCodeInvalidConfig},
		{"negative limits", Options{Limits: flow.Limits{MaxDepth: -1}}, errors.ErrCodeInvalidConfig},
		{"bad hidden id", Options{Hidden: []string{"task 0"}}, errors.ErrCodeInvalidNodeID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("Validate() code = %q, want %q (err = %v)", got, tt.code, err)
			}
		})
	}
}

func TestSortedHidden(t *testing.T) {
	o := Options{Hidden: []string{"task-2", "task-0", "task-2"}}
	if got, want := o.SortedHidden(), []string{"task-0", "task-2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("SortedHidden() = %v, want %v", got, want)
	}
	if got := (&Options{}).SortedHidden(); got != nil {
		t.Errorf("SortedHidden() = %v, want nil", got)
	}
}

func TestExecute(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	defer r.Close()

	res, err := r.Execute(context.Background(), workflow, stackOpts())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if res.Stats.TaskCount != 6 || res.Stats.NodeCount != 9 || res.Stats.VisibleCount != 9 {
		t.Errorf("Stats = %+v", res.Stats)
	}
	if len(res.Records) != 9 || len(res.Layout.Nodes) != 9 {
		t.Fatalf("records = %d, layout nodes = %d, want 9", len(res.Records), len(res.Layout.Nodes))
	}
	if res.Layout.Engine != stack.Engine || res.Layout.Width != 904 || res.Layout.Height != 388 {
		t.Errorf("Layout = %s %vx%v, want stack 904x388", res.Layout.Engine, res.Layout.Width, res.Layout.Height)
	}

	var edges []string
	for _, e := range res.Layout.Edges {
		edges = append(edges, e.ID)
	}
	want := []string{"task-0-task-1", "task-1-task-2"}
	if !reflect.DeepEqual(edges, want) {
		t.Errorf("edges = %v, want %v (hint edges must not be rendered)", edges, want)
	}
	if err := res.Layout.Validate(); err != nil {
		t.Errorf("Layout.Validate() error: %v", err)
	}
	if res.CacheHit {
		t.Error("null cache should never hit")
	}
}

func TestExecuteHidden(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	defer r.Close()

	res, err := r.Execute(context.Background(), workflow, stackOpts("task-1/arm-1", "task-9"))
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	for _, rec := range res.Records {
		if rec.ID == "task-1/arm-1" || rec.ParentID == "task-1/arm-1" {
			t.Errorf("hidden node %s in output", rec.ID)
		}
	}
	if res.Stats.VisibleCount != 7 || res.Stats.NodeCount != 9 {
		t.Errorf("Stats = %+v, want 7 of 9 visible", res.Stats)
	}
	if !reflect.DeepEqual(res.UnknownHidden, []string{"task-9"}) {
		t.Errorf("UnknownHidden = %v", res.UnknownHidden)
	}
	if !reflect.DeepEqual(res.Layout.Hidden, []string{"task-1/arm-1", "task-9"}) {
		t.Errorf("Layout.Hidden = %v", res.Layout.Hidden)
	}
	if _, ok := res.Graph.Node("task-1/arm-1"); !ok {
		t.Error("hidden node should stay in the graph")
	}
}

type failingSolver struct{}

func (failingSolver) Solve(context.Context, *layout.Request) (*layout.Result, error) {
	return nil, fmt.Errorf("solver crashed")
}

func TestExecuteErrors(t *testing.T) {
	tests := []struct {
		name  string
		tasks []task.Task
		opts  Options
		fail  bool
		code  errors.Code
	}{
		{
			name:  "malformed",
			tasks: []task.Task{{Name: "typeless"}},
			opts:  stackOpts(),
			code:  errors.ErrCodeMalformedTaskTree,
		},
		{
			name:  "unknown type",
			tasks: []task.Task{{Name: "x", Type: "ftp"}},
			opts:  Options{Engine: stack.Engine, KnownTypes: []string{"http"}},
			code:  errors.ErrCodeMalformedTaskTree,
		},
		{
			name:  "too many nodes",
			tasks: workflow,
			opts:  Options{Engine: stack.Engine, Limits: flow.Limits{MaxNodes: 3}},
			code:  errors.ErrCodeSizeOverflow,
		},
		{
			name:  "solver failure",
			tasks: workflow,
			opts:  stackOpts(),
			fail:  true,
			code:  errors.ErrCodeLayoutSolver,
		},
		{
			name:  "solver failure uncached",
			tasks: workflow,
			opts:  Options{Engine: stack.Engine, NoCache: true},
			fail:  true,
			code:  errors.ErrCodeLayoutSolver,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner(nil, nil, nil)
			defer r.Close()
			if tt.fail {
				r.SetSolver(stack.Engine, failingSolver{})
			}

			res, err := r.Execute(context.Background(), tt.tasks, tt.opts)
			if res != nil {
				t.Errorf("Execute() result = %+v, want nil on failure", res)
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("Execute() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestExecuteCache(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil, nil)
	defer r.Close()
	ctx := context.Background()

	first, err := r.Execute(ctx, workflow, stackOpts())
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Execute(ctx, workflow, stackOpts())
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheHit || !second.CacheHit {
		t.Errorf("CacheHit = %v, %v; want false, true", first.CacheHit, second.CacheHit)
	}
	if !reflect.DeepEqual(first.Layout, second.Layout) {
		t.Error("cached run should produce the same layout")
	}

	// A different visibility set is a different request.
	third, err := r.Execute(ctx, workflow, stackOpts("task-0"))
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheHit {
		t.Error("changed hidden set should miss the cache")
	}

	uncached, err := r.Execute(ctx, workflow, Options{Engine: stack.Engine, NoCache: true})
	if err != nil {
		t.Fatal(err)
	}
	if uncached.CacheHit {
		t.Error("NoCache run should not hit")
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	mu       sync.Mutex
	stages   []string
	started  int
	finished int
	nodes    int
	err      error
}

func (h *recordingHooks) OnLayoutStart(context.Context, string, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started++
}

func (h *recordingHooks) OnLayoutComplete(_ context.Context, _ string, nodes int, _ time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.finished++
	h.nodes = nodes
	h.err = err
}

func (h *recordingHooks) OnStageComplete(_ context.Context, stage string, _ time.Duration, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stages = append(h.stages, stage)
}

func TestExecuteHooks(t *testing.T) {
	defer observability.Reset()
	h := &recordingHooks{}
	observability.SetPipelineHooks(h)

	r := NewRunner(nil, nil, nil)
	defer r.Close()
	if _, err := r.Execute(context.Background(), workflow, stackOpts()); err != nil {
		t.Fatal(err)
	}

	want := []string{observability.StageBuild, observability.StageSize, observability.StageSolve, observability.StageFlatten}
	if !reflect.DeepEqual(h.stages, want) {
		t.Errorf("stages = %v, want %v", h.stages, want)
	}
	if h.started != 1 || h.finished != 1 || h.nodes != 9 || h.err != nil {
		t.Errorf("hooks = %+v", h)
	}

	h.stages = nil
	if _, err := r.Execute(context.Background(), []task.Task{{Name: "bad"}}, stackOpts()); err == nil {
		t.Fatal("expected error")
	}
	if !reflect.DeepEqual(h.stages, []string{observability.StageBuild}) {
		t.Errorf("stages after build failure = %v", h.stages)
	}
	if !errors.Is(h.err, errors.ErrCodeMalformedTaskTree) {
		t.Errorf("OnLayoutComplete error = %v", h.err)
	}
}

func TestExecuteEmpty(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	defer r.Close()

	res, err := r.Execute(context.Background(), nil, stackOpts())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if len(res.Records) != 0 || res.Layout.Width != 0 || res.Layout.Height != 0 {
		t.Errorf("empty workflow result = %+v", res.Layout)
	}
}

func TestSolverIsReused(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	defer r.Close()
	ctx := context.Background()

	a, err := r.Solver(ctx, stack.Engine)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := r.Solver(ctx, stack.Engine)
	if a != b {
		t.Error("Solver() should return the same instance")
	}
	if _, err := r.Solver(ctx, "neato"); !errors.Is(err, errors.ErrCodeInvalidEngine) {
		t.Errorf("Solver(neato) error = %v", err)
	}
}

// The graphviz pool must keep working after the request that created it ends.
func TestSolverOutlivesRequestContext(t *testing.T) {
	if testing.Short() {
		t.Skip("runs Graphviz")
	}
	r := NewRunner(nil, nil, nil)
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	if _, err := r.Execute(ctx, workflow, Options{Engine: "graphviz", NoCache: true}); err != nil {
		t.Fatalf("first Execute() error: %v", err)
	}
	cancel()

	res, err := r.Execute(context.Background(), workflow, Options{Engine: "graphviz", NoCache: true})
	if err != nil {
		t.Fatalf("Execute() after the first context ended: %v", err)
	}
	if len(res.Records) != 9 {
		t.Errorf("records = %d, want 9", len(res.Records))
	}
}

func TestEpoch(t *testing.T) {
	var e Epoch
	first := e.Next()
	if !e.IsCurrent(first) {
		t.Error("fresh ticket should be current")
	}
	second := e.Next()
	if e.IsCurrent(first) || !e.IsCurrent(second) {
		t.Error("only the newest ticket should be current")
	}
	if e.Current() != second {
		t.Errorf("Current() = %d, want %d", e.Current(), second)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Next()
		}()
	}
	wg.Wait()
	if e.Current() != second+50 {
		t.Errorf("Current() = %d, want %d", e.Current(), second+50)
	}
}
