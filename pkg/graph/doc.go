// Package graph provides the serialization types for task graphs and layouts.
//
// This package defines the wire format of taskgraph's output, used for
// layout files written by the CLI and for API responses.
//
// # Architecture
//
// The package sits at the serialization boundary between internal
// representations and external formats:
//
//   - [Graph], [Layout]: serialization types (this package)
//   - flow.Graph: internal node/edge model with sizes
//   - layout.Record: flattened, positioned nodes
//
// Use [FromFlow] and [FromRecords] to convert into the wire format.
//
// # Graph Serialization
//
// A [Graph] is the unpositioned structure of a task tree, including hidden
// nodes and ordering-hint edges. Clients use it to discover node IDs, for
// example to build a visibility toggle list:
//
//	{
//	  "nodes": [{"id": "task-0", "kind": "task", "label": "fetch"}],
//	  "edges": [{"id": "task-0-task-1", "source": "task-0", "target": "task-1"}]
//	}
//
// # Layout Serialization
//
// A [Layout] holds the positioned, visible nodes in parent-before-child
// order. Node positions are relative to the parent node; top-level nodes are
// relative to the diagram origin. Only renderable (sequence) edges are
// included.
//
//	data, err := graph.MarshalLayout(l)
//	l, err := graph.ReadLayoutFile("workflow.layout.json")
package graph
