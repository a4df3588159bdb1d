package tracker

import (
	"sync"
	"time"
)

// Operation tracks the progress of one named unit of work within a task.
type Operation struct {
	mu            sync.Mutex
	name          string
	completed     *float64
	total         *float64
	unit          string
	active        bool
	firstUpdateAt time.Time
	lastUpdateAt  time.Time
	onUpdate      func()
}

func newOperation(name string, onUpdate func()) *Operation {
	return &Operation{name: name, active: true, onUpdate: onUpdate}
}

// Update sets (or increments) the operation's progress. completed is
// required; total and unit are applied only when provided (total != nil,
// unit != ""). When increment is true, completed is added to the current
// value instead of replacing it.
func (o *Operation) Update(completed any, total any, unit string, increment bool) error {
	c, cUnit, err := parseValue(completed)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if increment && o.completed != nil {
		c += *o.completed
	}
	o.completed = &c
	if cUnit != "" {
		o.unit = cUnit
	}

	if total != nil {
		t, tUnit, err := parseValue(total)
		if err != nil {
			return err
		}
		o.total = &t
		if tUnit != "" {
			o.unit = tUnit
		}
	}
	if unit != "" {
		o.unit = unit
	}

	o.touch()
	o.notify()
	return nil
}

func (o *Operation) touch() {
	now := time.Now()
	if o.firstUpdateAt.IsZero() {
		o.firstUpdateAt = now
	}
	o.lastUpdateAt = now
}

func (o *Operation) notify() {
	if o.onUpdate != nil {
		o.onUpdate()
	}
}

// Deactivate marks the operation as no longer active (hidden from
// rendering).
func (o *Operation) Deactivate() {
	o.mu.Lock()
	o.active = false
	o.mu.Unlock()
	o.notify()
}

// Progress returns the operation's current progress snapshot.
func (o *Operation) Progress() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Progress{Completed: o.completed, Total: o.total, Unit: o.unit}
}

func (o *Operation) snapshot() OperationSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return OperationSnapshot{
		Name:     o.name,
		Progress: Progress{Completed: o.completed, Total: o.total, Unit: o.unit},
		Active:   o.active,
	}
}

func (o *Operation) isActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

func (o *Operation) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	parts := ""
	if o.name != "" {
		parts = o.name
	}
	p := Progress{Completed: o.completed, Total: o.total, Unit: o.unit}
	if o.completed != nil || o.total != nil || o.unit != "" {
		if parts != "" {
			parts += " "
		}
		parts += p.String()
	}
	return parts
}
