package flow

import (
	"strconv"

	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/task"
)

// Limits bounds the size of a graph produced by [Build]. Zero fields are unlimited.
type Limits struct {
	MaxDepth int `json:"max_depth" toml:"max_depth"` // Deepest allowed node depth
	MaxNodes int `json:"max_nodes" toml:"max_nodes"` // Largest allowed node count
}

// BuildOption configures [Build].
type BuildOption func(*builder)

// WithKnownTypes restricts plain tasks to the given types. Without it every
// non-empty type that is not structural is accepted as a plain task.
// The structural types are always accepted.
func WithKnownTypes(types ...string) BuildOption {
	return func(b *builder) {
		b.known = make(map[string]bool, len(types))
		for _, t := range types {
			b.known[t] = true
		}
	}
}

// WithLimits rejects trees that exceed the given limits with SIZE_OVERFLOW.
func WithLimits(l Limits) BuildOption {
	return func(b *builder) { b.limits = l }
}

type builder struct {
	known  map[string]bool
	limits Limits
	g      *Graph
}

// scope is one pending task list: the tasks to add under parentID.
type scope struct {
	tasks    []task.Task
	parentID string
}

// Build converts a task list into a graph of nodes and edges.
//
// Tasks are visited in declared order. Consecutive siblings are joined by a
// sequence edge; consecutive arms of a conditional (and the last arm and the
// else-branch) are joined by an ordering hint. Node IDs are derived from tree
// position, so rebuilding an unchanged tree yields identical IDs.
//
// Nodes reference the tasks they were built from; the task slice must not be
// modified while the graph is in use.
//
// Build walks the tree with an explicit worklist, so nesting depth is bounded
// only by [Limits], never by the goroutine stack.
func Build(tasks []task.Task, opts ...BuildOption) (*Graph, error) {
	b := &builder{g: NewGraph()}
	for _, opt := range opts {
		opt(b)
	}

	stack := []scope{{tasks: tasks}}
	for len(stack) > 0 {
		sc := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		nested, err := b.addScope(sc)
		if err != nil {
			return nil, err
		}
		// Push in reverse so scopes are expanded in declaration order.
		for i := len(nested) - 1; i >= 0; i-- {
			stack = append(stack, nested[i])
		}
	}
	return b.g, nil
}

// addScope adds one task list and returns the nested lists it opened.
func (b *builder) addScope(sc scope) ([]scope, error) {
	var nested []scope
	var prev string
	for i := range sc.tasks {
		t := &sc.tasks[i]
		id := childID(sc.parentID, "task-"+strconv.Itoa(i))

		kind, err := b.classify(t, id)
		if err != nil {
			return nil, err
		}
		n, err := b.add(Node{ID: id, ParentID: sc.parentID, Kind: kind, Label: t.DisplayName(), Task: t})
		if err != nil {
			return nil, err
		}
		if prev != "" {
			if _, err := b.g.AddEdge(prev, id, EdgeSequence); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "link %s", id)
			}
		}
		prev = id

		switch kind {
		case KindLoop:
			nested = append(nested, scope{tasks: t.Tasks, parentID: n.ID})
		case KindConditional:
			arms, err := b.addArms(n, t)
			if err != nil {
				return nil, err
			}
			nested = append(nested, arms...)
		case KindTask:
		default:
			return nil, errors.New(errors.ErrCodeInternal, "unexpected kind %s for %s", kind, id)
		}
	}
	return nested, nil
}

// addArms adds the arm and else nodes of a conditional, chained by ordering hints.
func (b *builder) addArms(cond *Node, t *task.Task) ([]scope, error) {
	var nested []scope
	var prev string
	link := func(id string) error {
		if prev != "" {
			if _, err := b.g.AddEdge(prev, id, EdgeOrderingHint); err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "order %s", id)
			}
		}
		prev = id
		return nil
	}

	for k := range t.Conditions {
		arm := &t.Conditions[k]
		n, err := b.add(Node{
			ID:        childID(cond.ID, "arm-"+strconv.Itoa(k)),
			ParentID:  cond.ID,
			Kind:      KindArm,
			Label:     arm.Condition,
			Task:      t,
			Condition: arm.Condition,
		})
		if err != nil {
			return nil, err
		}
		if err := link(n.ID); err != nil {
			return nil, err
		}
		nested = append(nested, scope{tasks: arm.Tasks, parentID: n.ID})
	}

	if t.HasElse() {
		n, err := b.add(Node{ID: childID(cond.ID, "else"), ParentID: cond.ID, Kind: KindElse, Label: "else", Task: t})
		if err != nil {
			return nil, err
		}
		if err := link(n.ID); err != nil {
			return nil, err
		}
		nested = append(nested, scope{tasks: t.Else, parentID: n.ID})
	}
	return nested, nil
}

// add inserts a node, enforcing the configured limits.
func (b *builder) add(n Node) (*Node, error) {
	if limit := b.limits.MaxNodes; limit > 0 && b.g.NodeCount() >= limit {
		return nil, errors.New(errors.ErrCodeSizeOverflow, "task tree exceeds %d nodes", limit)
	}
	node, err := b.g.AddNode(n)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "add node %s", n.ID)
	}
	if limit := b.limits.MaxDepth; limit > 0 && node.Depth > limit {
		return nil, errors.New(errors.ErrCodeSizeOverflow, "task tree exceeds nesting depth %d at %s", limit, node.ID)
	}
	return node, nil
}

// classify maps a task to its node kind, rejecting structurally invalid entries.
func (b *builder) classify(t *task.Task, path string) (Kind, error) {
	switch t.Type {
	case "":
		return 0, errors.Malformed(path, "task %q has no type", t.Name)
	case task.TypeLoopSequential:
		if len(t.Conditions) > 0 || t.Else != nil {
			return 0, errors.Malformed(path, "loop %q must not define conditions or else", t.Name)
		}
		return KindLoop, nil
	case task.TypeConditional:
		if len(t.Tasks) > 0 {
			return 0, errors.Malformed(path, "conditional %q must use conditions instead of tasks", t.Name)
		}
		return KindConditional, nil
	default:
		if b.known != nil && !b.known[t.Type] {
			return 0, errors.Malformed(path, "unknown task type %q", t.Type)
		}
		if len(t.Tasks) > 0 || len(t.Conditions) > 0 || t.Else != nil {
			return 0, errors.Malformed(path, "task %q of type %q cannot contain nested tasks", t.Name, t.Type)
		}
		return KindTask, nil
	}
}

func childID(parent, local string) string {
	if parent == "" {
		return local
	}
	return parent + "/" + local
}
