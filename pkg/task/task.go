// Package task defines the workflow task configuration consumed by the layout engine.
//
// A workflow is an ordered list of [Task] values. Each task carries a name, a
// type discriminator and a type-specific payload:
//
//   - "loop_sequential": Tasks holds the ordered loop body
//   - "conditional": Conditions holds the ordered arms, Else the optional else-branch
//   - any other type: a plain leaf task, Params carries its free-form settings
//
// Else distinguishes "absent" from "present but empty": a nil Else means the
// conditional has no else-branch, a non-nil (possibly empty) slice means it has one.
// Both JSON (`"else": []`) and YAML (`else: []`) decode an empty list to a non-nil slice.
//
// Workflows are read with [Parse] or [ReadFile]; both accept either a bare task
// list or a document of the form {name, tasks}.
package task

import "encoding/json"

// Task types with structural meaning. All other non-empty types are plain tasks.
const (
	TypeLoopSequential = "loop_sequential"
	TypeConditional    = "conditional"
)

// Task is one entry of a workflow's task tree.
type Task struct {
	Name       string         `json:"name" yaml:"name"`
	Type       string         `json:"type" yaml:"type"`
	Tasks      []Task         `json:"tasks,omitempty" yaml:"tasks,omitempty"`
	Conditions []Arm          `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Else       []Task         `json:"else,omitempty" yaml:"else,omitempty"`
	Params     map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// Arm is one condition branch of a conditional task.
type Arm struct {
	Condition string `json:"condition" yaml:"condition"`
	Tasks     []Task `json:"tasks" yaml:"tasks"`
}

// Workflow is a named task list, the top-level document of a workflow file.
type Workflow struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Tasks []Task `json:"tasks" yaml:"tasks"`
}

// MarshalJSON keeps an empty else-branch in the output so that it survives a round trip.
func (t Task) MarshalJSON() ([]byte, error) {
	type plain Task
	out := struct {
		plain
		Else *[]Task `json:"else,omitempty"`
	}{plain: plain(t)}
	if t.Else != nil {
		branch := t.Else
		out.Else = &branch
	}
	return json.Marshal(out)
}

// yamlTask mirrors Task with an optional else-branch pointer for encoding.
type yamlTask struct {
	Name       string         `yaml:"name"`
	Type       string         `yaml:"type"`
	Tasks      []Task         `yaml:"tasks,omitempty"`
	Conditions []Arm          `yaml:"conditions,omitempty"`
	Else       *[]Task        `yaml:"else,omitempty"`
	Params     map[string]any `yaml:"params,omitempty"`
}

// MarshalYAML is the YAML counterpart of [Task.MarshalJSON].
func (t Task) MarshalYAML() (any, error) {
	out := yamlTask{
		Name:       t.Name,
		Type:       t.Type,
		Tasks:      t.Tasks,
		Conditions: t.Conditions,
		Params:     t.Params,
	}
	if t.Else != nil {
		branch := t.Else
		out.Else = &branch
	}
	return out, nil
}

// IsLoop reports whether the task is a sequential loop container.
func (t *Task) IsLoop() bool { return t.Type == TypeLoopSequential }

// IsConditional reports whether the task is a conditional container.
func (t *Task) IsConditional() bool { return t.Type == TypeConditional }

// HasElse reports whether a conditional declares an else-branch.
func (t *Task) HasElse() bool { return t.Else != nil }

// DisplayName returns the task name, falling back to its type.
func (t *Task) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Type
}

// Count returns the number of tasks in the tree rooted at tasks, arms excluded.
func Count(tasks []Task) int {
	n := 0
	stack := [][]Task{tasks}
	for len(stack) > 0 {
		list := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for i := range list {
			n++
			t := &list[i]
			stack = append(stack, t.Tasks, t.Else)
			for _, arm := range t.Conditions {
				stack = append(stack, arm.Tasks)
			}
		}
	}
	return n
}
