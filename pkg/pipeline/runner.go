package pipeline

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/taskgraph/pkg/cache"
	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/flow"
	"github.com/matzehuels/taskgraph/pkg/graph"
	"github.com/matzehuels/taskgraph/pkg/layout"
	"github.com/matzehuels/taskgraph/pkg/layout/graphviz"
	"github.com/matzehuels/taskgraph/pkg/layout/stack"
	"github.com/matzehuels/taskgraph/pkg/observability"
	"github.com/matzehuels/taskgraph/pkg/task"
)

// Runner encapsulates pipeline execution with a cached solve stage.
// Both CLI and API use it so that caching and solver setup live in one place.
//
// The Runner is stateless except for the cache, the logger and the solvers it
// creates on first use. Multiple goroutines can safely use the same Runner
// with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// Workers bounds the containers the graphviz engine lays out at once.
	// Zero means one per CPU. It is read when that engine is first used.
	Workers int

	// CacheTTL is how long solver results are kept. Zero uses cache.TTLSolve.
	CacheTTL time.Duration

	mu      sync.Mutex
	solvers map[string]layout.Solver
	closers []io.Closer
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:   c,
		Keyer:   keyer,
		Logger:  logger,
		solvers: make(map[string]layout.Solver),
	}
}

// Execute runs build → size → solve → flatten for tasks. On any failure it
// returns a nil result and the error, whose code tells which stage failed.
func (r *Runner) Execute(ctx context.Context, tasks []task.Task, opts Options) (result *Result, err error) {
	r.applyLogger(&opts)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, opts.Engine, task.Count(tasks))
	var nodeCount int
	defer func() {
		hooks.OnLayoutComplete(ctx, opts.Engine, nodeCount, time.Since(start), err)
	}()

	result = &Result{}
	result.Stats.TaskCount = task.Count(tasks)

	// Stage 1: Build
	var g *flow.Graph
	err = stage(ctx, observability.StageBuild, &result.Stats.BuildTime, func() error {
		var err error
		g, result.UnknownHidden, err = BuildGraph(tasks, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	nodeCount = g.NodeCount()
	result.Graph = g
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.EdgeCount()
	if len(result.UnknownHidden) > 0 {
		opts.Logger.Warn("ignoring unknown hidden nodes", "ids", result.UnknownHidden)
	}
	opts.Logger.Debug("built graph",
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"duration", result.Stats.BuildTime)

	// Stage 2: Size
	err = stage(ctx, observability.StageSize, &result.Stats.SizeTime, func() error {
		return flow.Size(g, opts.Theme)
	})
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("sized containers", "duration", result.Stats.SizeTime)

	// Stage 3: Solve
	var placed *layout.Result
	err = stage(ctx, observability.StageSolve, &result.Stats.SolveTime, func() error {
		var err error
		placed, result.CacheHit, err = r.solve(ctx, g, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	opts.Logger.Info("solved layout",
		"engine", opts.Engine,
		"cached", result.CacheHit,
		"duration", result.Stats.SolveTime)

	// Stage 4: Flatten
	err = stage(ctx, observability.StageFlatten, &result.Stats.FlattenTime, func() error {
		var err error
		result.Records, err = layout.Flatten(placed, g)
		return err
	})
	if err != nil {
		return nil, err
	}
	result.Stats.VisibleCount = len(result.Records)

	result.Layout = graph.FromRecords(opts.Engine, placed.Extent(), opts.Theme, result.Records, g.VisibleEdges())
	result.Layout.Hidden = opts.SortedHidden()

	opts.Logger.Info("computed layout",
		"nodes", result.Stats.VisibleCount,
		"edges", len(result.Layout.Edges),
		"duration", result.Stats.Total())

	return result, nil
}

// BuildGraph builds the graph for tasks and applies the hidden set. It
// returns the hidden IDs that matched no node.
func BuildGraph(tasks []task.Task, opts Options) (*flow.Graph, []string, error) {
	opts.SetDefaults()
	g, err := flow.Build(tasks, opts.BuildOptions()...)
	if err != nil {
		return nil, nil, err
	}
	return g, g.SetHidden(opts.Hidden), nil
}

func (r *Runner) solve(ctx context.Context, g *flow.Graph, opts Options) (*layout.Result, bool, error) {
	req, err := layout.NewRequest(g, opts.Theme)
	if err != nil {
		return nil, false, err
	}
	solver, err := r.Solver(ctx, opts.Engine)
	if err != nil {
		return nil, false, err
	}

	if opts.NoCache {
		res, err := solver.Solve(ctx, req)
		if err != nil && errors.GetCode(err) == "" {
			err = errors.Wrap(errors.ErrCodeLayoutSolver, err, "solve layout")
		}
		return res, false, err
	}
	cs := layout.NewCachingSolver(solver, opts.Engine, r.Cache, r.Keyer)
	if r.CacheTTL > 0 {
		cs.WithTTL(r.CacheTTL)
	}
	return cs.SolveWithCacheInfo(ctx, req)
}

// Solver returns the solver for engine, creating it on first use.
// Solvers outlive the call that created them, so they are started detached
// from the cancellation and deadline of ctx.
func (r *Runner) Solver(ctx context.Context, engine string) (layout.Solver, error) {
	if err := ValidateEngine(engine); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.solvers[engine]; ok {
		return s, nil
	}

	var s layout.Solver
	switch engine {
	case stack.Engine:
		s = stack.New()
	case graphviz.Engine:
		gs, err := graphviz.New(context.WithoutCancel(ctx), graphviz.Options{Workers: r.Workers})
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, gs)
		s = gs
	}
	r.solvers[engine] = s
	return s, nil
}

// SetSolver replaces the solver used for engine.
func (r *Runner) SetSolver(engine string, s layout.Solver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.solvers[engine] = s
}

// Close releases the solvers and the cache held by the runner.
func (r *Runner) Close() error {
	r.mu.Lock()
	closers := r.closers
	r.closers = nil
	r.solvers = make(map[string]layout.Solver)
	r.mu.Unlock()

	var first error
	for _, c := range closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	if r.Cache != nil {
		if err := r.Cache.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// stage times fn, stores the duration in d and reports it to the hooks.
func stage(ctx context.Context, name string, d *time.Duration, fn func() error) error {
	start := time.Now()
	err := fn()
	*d = time.Since(start)
	observability.Pipeline().OnStageComplete(ctx, name, *d, err)
	return err
}
