// Package layout positions a sized task graph and flattens the result.
//
// # Pipeline
//
// Layout is the second half of the pipeline that starts in package flow:
//
//	g, _ := flow.Build(tasks)
//	_ = flow.Size(g, theme)
//	req, _ := layout.NewRequest(g, theme)   // nested boxes, visible nodes only
//	res, _ := solver.Solve(ctx, req)       // positions per nesting level
//	records, _ := layout.Flatten(res, g)   // flat, parents before children
//
// # Requests
//
// A [Request] is a tree of [Box] values under a synthetic root ([RootID]).
// Each container box carries its children, the edges between them, its
// direction, padding and spacing. MinWidth and MinHeight are the sizes from
// flow.Size; solvers may grow a box but never shrink it.
//
// # Solvers
//
// [Solver] is the only blocking step. Implementations:
//
//   - package layout/stack: deterministic in-process placement
//   - package layout/graphviz: Graphviz dot, one run per container
//   - [CachingSolver]: memoizes another solver's results in a cache.Cache
//
// Solvers built on [LevelSolver] only implement [Arranger], which arranges the
// children of one container. LevelSolver handles ordering (deepest
// containers first), concurrency and assembly of the [Result].
//
// # Coordinates
//
// Every position is the top-left corner of a box relative to the top-left
// corner of its parent. Use [Absolute] to convert flattened records to
// diagram coordinates.
package layout
