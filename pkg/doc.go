// Package pkg provides the core libraries for taskgraph workflow diagrams.
//
// # Overview
//
// taskgraph turns a workflow definition, an ordered tree of tasks with
// sequential loops and multi-arm conditionals, into a nested diagram: every
// container node is sized to fit its children and every child is positioned
// relative to its parent. The pkg directory is organized as follows:
//
//  1. [task] - Workflow configuration (YAML and JSON task trees)
//  2. [flow] - Node/edge graph built from a task tree, themes and sizing
//  3. [layout] - Solver contract, per-container request tree and flattening
//  4. [pipeline] - Orchestration (build → size → solve → flatten)
//  5. [graph] - Serialization types for graphs and layouts
//
// # Architecture
//
// The data flow through taskgraph:
//
//	Workflow file (.yaml / .json)
//	         ↓
//	    [task] package (parse task tree)
//	         ↓
//	    [flow] package (build graph, apply visibility, size containers)
//	         ↓
//	    [layout] package (solve each container, flatten to records)
//	         ↓
//	    [graph] package (layout JSON for renderers)
//
// # Quick Start
//
//	wf, _ := task.ReadFile("deploy.yaml")
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	defer runner.Close()
//
//	res, err := runner.Execute(ctx, wf.Tasks, pipeline.Options{Engine: "stack"})
//	if err != nil {
//	    // no diagram
//	}
//	_ = graph.WriteLayoutFile(res.Layout, "deploy.layout.json")
//
// # Main Packages
//
// [flow] - Graph construction and sizing. [flow.Build] walks the task tree
// depth-first and assigns path-derived IDs ("task-1/arm-0/task-2"), sequence
// edges between siblings and ordering hints between conditional arms.
// [flow.Size] computes every container's size bottom-up from a [flow.Theme].
//
// [layout] - Solvers position the children of one container at a time.
// Two engines are provided:
//
//   - [layout/graphviz]: Graphviz dot, run in-process per container
//   - [layout/stack]: deterministic top-to-bottom stacking, used in tests
//
// [layout.CachingSolver] memoizes solver results in a [cache.Cache].
//
// Supporting packages:
//
//   - [cache]: file, Redis and no-op caches plus key derivation
//   - [config]: TOML settings for the CLI and the API server
//   - [errors]: coded errors shared by all entry points
//   - [observability]: hook interfaces, with a Prometheus implementation
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/flow/...               # Specific package
//	go test -run Example                 # Examples only
//
// [task]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/task
// [flow]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/flow
// [layout]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/layout
// [layout/graphviz]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/layout/graphviz
// [layout/stack]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/layout/stack
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/pipeline
// [graph]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/graph
// [cache]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/taskgraph/pkg/observability
package pkg
