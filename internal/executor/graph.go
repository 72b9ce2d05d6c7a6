package executor

import (
	"fmt"
	"sort"
)

// GraphError reports a defect in the task graph itself (as opposed to a
// failure while running a task).
type GraphError struct {
	Kind   string
	TaskID string
	Detail string
}

func (e *GraphError) Error() string {
	if e.TaskID != "" {
		return fmt.Sprintf("executor: %s: %s (%s)", e.Kind, e.TaskID, e.Detail)
	}
	return fmt.Sprintf("executor: %s: %s", e.Kind, e.Detail)
}

func errDuplicateTaskID(id string) error {
	return &GraphError{Kind: "DuplicateTaskId", TaskID: id, Detail: "task id appears more than once"}
}

func errDependencyNotFound(taskID, depID string) error {
	return &GraphError{Kind: "DependencyNotFound", TaskID: taskID, Detail: "depends on unknown task " + depID}
}

func errCircularDependency(cycle []string) error {
	detail := "cycle"
	if len(cycle) > 0 {
		detail = fmt.Sprintf("cycle through %v", cycle)
	}
	return &GraphError{Kind: "CircularDependency", Detail: detail}
}

// TaskGraph is a validated, immutable view over a task set: node lookup
// plus the dependency and dependent adjacency in both directions.
type TaskGraph struct {
	tasks        map[string]ExecutableTask
	dependents   map[string][]string // task id -> ids of tasks that depend on it
	dependencies map[string][]string // task id -> ids it depends on (validated, deduped)
	order        []string            // insertion order, for deterministic iteration fallback
}

// NewTaskGraph validates a task slice and builds the adjacency used for
// staging. Returns a GraphError for duplicate ids or dangling
// dependencies.
func NewTaskGraph(tasks []ExecutableTask) (*TaskGraph, error) {
	g := &TaskGraph{
		tasks:        make(map[string]ExecutableTask, len(tasks)),
		dependents:   make(map[string][]string),
		dependencies: make(map[string][]string),
		order:        make([]string, 0, len(tasks)),
	}

	for _, t := range tasks {
		if _, exists := g.tasks[t.ID]; exists {
			return nil, errDuplicateTaskID(t.ID)
		}
		g.tasks[t.ID] = t
		g.order = append(g.order, t.ID)
	}

	for _, t := range tasks {
		seen := make(map[string]bool, len(t.Dependencies))
		deps := make([]string, 0, len(t.Dependencies))
		for _, dep := range t.Dependencies {
			if _, ok := g.tasks[dep]; !ok {
				return nil, errDependencyNotFound(t.ID, dep)
			}
			if seen[dep] {
				continue
			}
			seen[dep] = true
			deps = append(deps, dep)
			g.dependents[dep] = append(g.dependents[dep], t.ID)
		}
		g.dependencies[t.ID] = deps
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, errCircularDependency(cycle)
	}

	return g, nil
}

// color used for DFS-based cycle detection.
type color int

const (
	white color = iota
	gray
	black
)

// findCycle runs DFS coloring over the dependency edges (task -> its
// dependencies) and returns the back-edge path if a cycle exists, nil
// otherwise. Visits nodes in lexicographic order so the reported cycle
// is deterministic.
func (g *TaskGraph) findCycle() []string {
	colors := make(map[string]color, len(g.tasks))
	var path []string
	var cycle []string

	ids := make([]string, 0, len(g.tasks))
	for id := range g.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = gray
		path = append(path, id)
		deps := append([]string(nil), g.dependencies[id]...)
		sort.Strings(deps)
		for _, dep := range deps {
			switch colors[dep] {
			case gray:
				cycle = append(append([]string(nil), path...), dep)
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		colors[id] = black
		return false
	}

	for _, id := range ids {
		if colors[id] == white {
			if visit(id) {
				return cycle
			}
		}
	}
	return nil
}

// Tasks returns all tasks in deterministic (lexicographic id) order.
func (g *TaskGraph) Tasks() []ExecutableTask {
	ids := make([]string, 0, len(g.tasks))
	for id := range g.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]ExecutableTask, len(ids))
	for i, id := range ids {
		out[i] = g.tasks[id]
	}
	return out
}

// Task looks up a task by id.
func (g *TaskGraph) Task(id string) (ExecutableTask, bool) {
	t, ok := g.tasks[id]
	return t, ok
}

// Dependents returns the ids of tasks that directly depend on id.
func (g *TaskGraph) Dependents(id string) []string {
	return append([]string(nil), g.dependents[id]...)
}

// Stages computes the topological stage assignment via Kahn's algorithm:
// stage N contains every node whose dependencies were all satisfied by
// stages 0..N-1, ordered lexicographically within each stage for
// determinism. The graph is assumed acyclic (validated at construction).
func (g *TaskGraph) Stages() [][]string {
	remaining := make(map[string]int, len(g.tasks))
	for id, deps := range g.dependencies {
		remaining[id] = len(deps)
	}

	satisfied := make(map[string]bool, len(g.tasks))
	var stages [][]string

	for len(satisfied) < len(g.tasks) {
		var ready []string
		for id, count := range remaining {
			if !satisfied[id] && count == 0 {
				ready = append(ready, id)
			}
		}
		sort.Strings(ready)

		for _, id := range ready {
			satisfied[id] = true
			for _, dependent := range g.dependents[id] {
				remaining[dependent]--
			}
		}

		stages = append(stages, ready)
	}

	return stages
}
