// Package tracker implements the hierarchical task/operation progress
// tree: named events, named sub-operations with progress, named subtasks,
// warnings, an optional result/failure, and a specific textual rendering.
package tracker

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Task is a node in the tracker tree. The zero value is not usable; build
// one with New or via a parent's Task method.
type Task struct {
	mu            sync.Mutex
	name          string
	currentEvent  string
	currentAt     time.Time
	operations    map[string]*Operation
	opOrder       []string
	subtasks      map[string]*Task
	subtaskOrder  []string
	result        string
	warnings      []Warning
	failure       *Failure
	active        bool
	firstUpdateAt time.Time
	lastUpdateAt  time.Time
	parent        *Task
}

// New constructs a root Task.
func New(name string) *Task {
	return &Task{
		name:       name,
		operations: make(map[string]*Operation),
		subtasks:   make(map[string]*Task),
		active:     true,
	}
}

func (t *Task) notifyUpdate() {
	t.touch()
	if t.parent != nil {
		t.parent.notifyUpdate()
	}
}

func (t *Task) touch() {
	now := time.Now()
	if t.firstUpdateAt.IsZero() {
		t.firstUpdateAt = now
	}
	t.lastUpdateAt = now
}

// Event records the task's current named event (e.g. "validating
// inputs"). A zero timestamp records time.Now().
func (t *Task) Event(name string, at time.Time) {
	t.mu.Lock()
	t.currentEvent = name
	if at.IsZero() {
		at = time.Now()
	}
	t.currentAt = at
	t.mu.Unlock()
	t.notifyUpdate()
}

// Operation returns the named operation, creating it if absent.
func (t *Task) Operation(name string) *Operation {
	t.mu.Lock()
	op, ok := t.operations[name]
	if !ok {
		op = newOperation(name, t.notifyUpdate)
		t.operations[name] = op
		t.opOrder = append(t.opOrder, name)
	}
	t.mu.Unlock()
	if !ok {
		t.notifyUpdate()
	}
	return op
}

// Task returns the named subtask, creating it if absent. A created
// subtask's updates bubble up to this task (and transitively to its
// ancestors).
func (t *Task) Task(name string) *Task {
	t.mu.Lock()
	sub, ok := t.subtasks[name]
	if !ok {
		sub = New(name)
		sub.parent = t
		t.subtasks[name] = sub
		t.subtaskOrder = append(t.subtaskOrder, name)
	}
	t.mu.Unlock()
	if !ok {
		t.notifyUpdate()
	}
	return sub
}

// Result sets the task's terminal result string, e.g. "OK" or "FAILED".
func (t *Task) Result(result string) {
	t.mu.Lock()
	t.result = result
	t.mu.Unlock()
	t.notifyUpdate()
}

// Warning appends a warning to this task.
func (t *Task) Warning(w Warning) {
	t.mu.Lock()
	t.warnings = append(t.warnings, w)
	t.mu.Unlock()
	t.notifyUpdate()
}

// Failure records this task's failure class and reason.
func (t *Task) Failure(class, reason string) {
	t.mu.Lock()
	t.failure = &Failure{Class: class, Reason: reason}
	t.mu.Unlock()
	t.notifyUpdate()
}

// Deactivate hides this task from rendering unless one of its subtasks is
// still active.
func (t *Task) Deactivate() {
	t.mu.Lock()
	t.active = false
	t.mu.Unlock()
	t.notifyUpdate()
}

func (t *Task) isActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// String renders the task tree using the same rules as the reference
// rendering: a task with a result renders as "<name>: <result>"; a task
// with an active event/operations renders as
// "<name>: <event> | <active-op> | ..."; active subtasks are appended,
// joined by " / ". Inactive tasks and operations are hidden.
func (t *Task) String() string {
	t.mu.Lock()
	name := t.name
	active := t.active
	result := t.result
	currentEvent := t.currentEvent
	opOrder := slices.Clone(t.opOrder)
	ops := maps.Clone(t.operations)
	subtaskOrder := slices.Clone(t.subtaskOrder)
	subs := maps.Clone(t.subtasks)
	t.mu.Unlock()

	var parts []string

	if active {
		if name != "" {
			parts = append(parts, name+":")
		}

		if result != "" {
			parts = append(parts, result)
			return strings.Join(parts, " ")
		}

		var statuses []string
		if currentEvent != "" {
			statuses = append(statuses, currentEvent)
		}
		for _, opName := range opOrder {
			if op := ops[opName]; op != nil && op.isActive() {
				statuses = append(statuses, op.String())
			}
		}
		if len(statuses) > 0 {
			parts = append(parts, strings.Join(statuses, " | "))
		}
	}

	var activeSubs []string
	for _, subName := range subtaskOrder {
		if sub := subs[subName]; sub != nil && sub.isActive() {
			activeSubs = append(activeSubs, sub.String())
		}
	}
	if len(activeSubs) > 0 {
		if len(parts) > 0 {
			parts = append(parts, "/")
		}
		parts = append(parts, strings.Join(activeSubs, " / "))
	}

	return strings.Join(parts, " ")
}
