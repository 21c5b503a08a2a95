// Package flow turns a workflow task tree into a sized graph of nested boxes.
//
// # Overview
//
// A workflow is a nested task list: plain tasks run in sequence, loops hold a
// body of tasks, and conditionals hold several arms (plus an optional
// else-branch) that are drawn side by side. This package provides the graph
// model for such trees and the first two stages of the layout pipeline:
//
//  1. [Build] converts a []task.Task into a [Graph]
//  2. [Size] computes every node's width and height bottom-up
//
// Positioning is left to a layout solver (see package layout).
//
// # Node Kinds
//
// Every node carries a [Kind]:
//
//   - [KindTask]: a plain task, always a leaf
//   - [KindLoop]: a loop_sequential body, children stacked vertically
//   - [KindConditional]: a conditional, arms placed side by side
//   - [KindArm]: one condition branch, children stacked vertically
//   - [KindElse]: the else-branch, children stacked vertically
//
// [Kind.Policy] maps each kind to its sizing rule.
//
// # Node IDs
//
// IDs are derived from position in the tree, so they are stable across
// rebuilds of an unchanged subtree and can key UI state such as visibility:
//
//	task-0                  first top-level task
//	task-1/task-0           first body task of the loop at task-1
//	task-2/arm-1            second arm of the conditional at task-2
//	task-2/else             else-branch of the conditional at task-2
//	task-2/arm-1/task-0     first task of that arm
//
// # Edges
//
// Consecutive siblings are joined by an [EdgeSequence] edge. Consecutive arms
// of a conditional are joined by an [EdgeOrderingHint] edge, which only nudges
// the solver into declaration order and is never rendered. Every edge connects
// two siblings; [Edge.Scope] names their shared parent.
//
// # Visibility
//
// A node is hidden when its Hidden flag is set, and effectively hidden when
// it or any ancestor is hidden. Effectively hidden nodes have zero size and do
// not take a spacing slot in their parent. Use [Graph.SetHidden] to apply a
// visibility set keyed by node ID before sizing.
//
// # Sizing
//
// With H = 2*(padding+border) and V = header + 2*(padding+border):
//
//	leaf:          MinNodeWidth x MinNodeHeight
//	stacked:       max(child.w) + H           x  sum(child.h) + spacing*(n-1) + V
//	side-by-side:  sum(child.w) + spacing*(n-1) + H  x  max(child.h) + V
//	empty:         MinNodeWidth x header + 2*border
//
// After sizing, all visible top-level nodes share the width of the widest one.
package flow
