// Package runner implements the phaser: the per-run coordination loop
// that consults a Coordinator before driving an Execution through the
// phase lifecycle, and the three observer notification channels (state,
// output, warning).
//
// Grounded on core.Runner's validate-prepare-decide-act-record shape
// (internal/core/runner.go) for the overall Run method structure, and on
// dag/executor.go's lock-then-decide-then-unlock-then-execute discipline
// for the coordination loop itself.
package runner

import (
	"container/ring"
	"errors"
	"sync"
	"time"

	"taskrun/internal/coordinate"
	"taskrun/internal/execution"
	"taskrun/internal/observe"
	"taskrun/internal/phase"
	"taskrun/internal/runsnap"
	"taskrun/internal/runspec"
	"taskrun/internal/tracker"
)

// ErrAlreadyRun is returned by a second call to Run on the same instance.
var ErrAlreadyRun = errors.New("runner: run already started")

const (
	lastOutputCapacity  = 10
	errorOutputCapacity = 1000
)

// StateObserverFunc is notified after a committed lifecycle transition.
type StateObserverFunc func(prev, next phase.State, at time.Time, snap *runsnap.Snapshot)

// OutputObserverFunc is notified for every output line produced.
type OutputObserverFunc func(snap *runsnap.Snapshot, line string, isError bool)

// WarningObserverFunc is notified whenever a warning is raised.
type WarningObserverFunc func(snap *runsnap.Snapshot, w tracker.Warning, count int)

// GlobalState, GlobalOutput and GlobalWarning are the process-wide
// registries every Run's local observers are merged with, mirroring a
// per-channel global registry that sits alongside each run's own.
var (
	GlobalState   = observe.NewRegistry[StateObserverFunc](logObserverError)
	GlobalOutput  = observe.NewRegistry[OutputObserverFunc](logObserverError)
	GlobalWarning = observe.NewRegistry[WarningObserverFunc](logObserverError)
)

// Run drives a single Execution through the phase lifecycle, honoring a
// Coordinator and publishing to the observer fabric.
type Run struct {
	Metadata    runspec.Metadata
	Coordinator coordinate.Coordinator
	Locker      coordinate.Locker
	Execution   execution.Execution
	Tracker     *tracker.Task

	stateMu           sync.Mutex
	lifecycle         phase.Lifecycle
	started           bool
	lastCommittedPrev phase.State

	lastOutput  *ring.Ring
	errorOutput *ring.Ring
	warnings    map[string]int

	execErr *execution.Error

	stateObservers   *observe.Registry[StateObserverFunc]
	outputObservers  *observe.Registry[OutputObserverFunc]
	warningObservers *observe.Registry[WarningObserverFunc]
}

// DefaultLocker is the process-wide Locker shared by every Run constructed
// with a nil locker. Cross-run coordinators (Serial, Parallel, NoOverlap)
// rely on every participating Run blocking on the same Locker: a release
// on one run's Coordinator only wakes other runs waiting on that same
// instance, so sharing it is what lets a freed slot actually dequeue a
// waiter instead of leaving it blocked until its own ctx is cancelled.
var DefaultLocker = coordinate.NewProcessLocker()

// New constructs a Run ready to be started with Run.Run. locker may be
// nil, in which case DefaultLocker is used.
func New(meta runspec.Metadata, coord coordinate.Coordinator, exec execution.Execution, locker coordinate.Locker) *Run {
	if locker == nil {
		locker = DefaultLocker
	}
	return &Run{
		Metadata:         meta,
		Coordinator:      coord,
		Locker:           locker,
		Execution:        exec,
		Tracker:          tracker.New(meta.ID.JobID),
		lastOutput:       ring.New(lastOutputCapacity),
		errorOutput:      ring.New(errorOutputCapacity),
		warnings:         make(map[string]int),
		stateObservers:   observe.NewRegistry[StateObserverFunc](logObserverError),
		outputObservers:  observe.NewRegistry[OutputObserverFunc](logObserverError),
		warningObservers: observe.NewRegistry[WarningObserverFunc](logObserverError),
	}
}

// errorLogger backs every Registry's ErrorHook in this package. It starts
// as a no-op so this package carries no logging dependency of its own;
// SetErrorLogger lets cmd/taskrund install internal/obslog's hook once, at
// startup, rather than threading a logger through every New call.
var errorLogger func(id uint64, err error) = func(uint64, error) {}

// SetErrorLogger installs the hook every Registry in this package uses to
// report observer panics/errors. Not safe to call concurrently with
// observer delivery; call it once during process startup.
func SetErrorLogger(fn func(id uint64, err error)) {
	if fn == nil {
		fn = func(uint64, error) {}
	}
	errorLogger = fn
}

func logObserverError(id uint64, err error) { errorLogger(id, err) }

// AddStateObserver registers o at priority. If notifyOnRegister is true,
// o is invoked immediately with the current snapshot, with the
// registration and the notify happening inside the same stateMu
// acquisition that every committed transition publishes under (see
// publishLocked). That keeps registration atomic with respect to any
// in-flight transition: o can never receive the current state from this
// immediate notify and then receive it a second time from a transition's
// publish that was already underway when Add ran, nor can it miss a
// transition that committed between Add and the immediate notify.
func (r *Run) AddStateObserver(o StateObserverFunc, priority int, notifyOnRegister bool) uint64 {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	id := r.stateObservers.Add(o, priority)
	if notifyOnRegister {
		cur := r.lifecycle.State()
		snap := r.snapshotLocked()
		o(cur, cur, time.Now(), snap)
	}
	return id
}

func (r *Run) RemoveStateObserver(id uint64) { r.stateObservers.Remove(id) }

func (r *Run) AddOutputObserver(o OutputObserverFunc, priority int) uint64 {
	return r.outputObservers.Add(o, priority)
}
func (r *Run) RemoveOutputObserver(id uint64) { r.outputObservers.Remove(id) }

func (r *Run) AddWarningObserver(o WarningObserverFunc, priority int) uint64 {
	return r.warningObservers.Add(o, priority)
}
func (r *Run) RemoveWarningObserver(id uint64) { r.warningObservers.Remove(id) }

// AddWarning raises a warning against the run's root tracker task and
// notifies warning observers.
func (r *Run) AddWarning(w tracker.Warning) {
	r.Tracker.Warning(w)
	r.stateMu.Lock()
	r.warnings[w.Category]++
	count := r.warnings[w.Category]
	snap := r.snapshotLocked()
	r.stateMu.Unlock()

	observe.Deliver(r.warningObservers, func(fn WarningObserverFunc) error {
		fn(snap, w, count)
		return nil
	})
	observe.Deliver(GlobalWarning, func(fn WarningObserverFunc) error {
		fn(snap, w, count)
		return nil
	})
}

// ExecutionError returns the structured execution.Error from the last
// Execute call, if any was returned and it carried one.
func (r *Run) ExecutionError() *execution.Error {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.execErr
}

// Interrupted reports whether Stop has been requested of the Execution.
func (r *Run) Interrupted() bool {
	if r.Execution == nil {
		return false
	}
	return r.Execution.Interrupted()
}

// Stop requests cooperative termination of the Execution, if any, and
// unblocks a coordinator wait so the run can observe cancellation.
func (r *Run) Stop() {
	if r.Execution != nil {
		r.Execution.Stop()
	}
	if r.Coordinator != nil {
		r.Coordinator.Release()
	}
	if r.Locker != nil {
		r.Locker.Notify()
	}
}

// Release lets a waiting Coordinator proceed (e.g. a Latch's external
// trigger), without affecting the Execution. It wakes the coordination
// loop immediately rather than leaving it blocked until some other event
// happens to re-check the Coordinator.
func (r *Run) Release() {
	if r.Coordinator != nil {
		r.Coordinator.Release()
	}
	if r.Locker != nil {
		r.Locker.Notify()
	}
}

// recordOutput stores line in the appropriate ring buffer and notifies
// output observers (local then global).
func (r *Run) recordOutput(line string, isError bool) {
	r.stateMu.Lock()
	if isError {
		r.errorOutput.Value = line
		r.errorOutput = r.errorOutput.Next()
	} else {
		r.lastOutput.Value = line
		r.lastOutput = r.lastOutput.Next()
	}
	snap := r.snapshotLocked()
	r.stateMu.Unlock()

	observe.Deliver(r.outputObservers, func(fn OutputObserverFunc) error {
		fn(snap, line, isError)
		return nil
	})
	observe.Deliver(GlobalOutput, func(fn OutputObserverFunc) error {
		fn(snap, line, isError)
		return nil
	})
}

// Snapshot returns the run's current point-in-time view.
func (r *Run) Snapshot() *runsnap.Snapshot {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.snapshotLocked()
}

func (r *Run) snapshotLocked() *runsnap.Snapshot {
	changedAt := time.Time{}
	if at, ok := r.lifecycle.Changed(r.lifecycle.State()); ok {
		changedAt = at
	}
	view := ""
	if r.Tracker != nil {
		view = r.Tracker.String()
	}
	warnings := make(map[string]int, len(r.warnings))
	for category, count := range r.warnings {
		warnings[category] = count
	}
	return &runsnap.Snapshot{
		Metadata:          r.Metadata,
		State:             r.lifecycle.State(),
		Lifecycle:         r.lifecycle.Transitions(),
		ChangedAt:         changedAt,
		TrackerView:       view,
		RecentOutput:      ringValues(r.lastOutput),
		RecentErrorOutput: ringValues(r.errorOutput),
		Warnings:          warnings,
		ExecError:         r.execErr,
	}
}

// ringValues renders a ring.Ring of string values (as used by lastOutput
// and errorOutput) into a slice ordered oldest first, skipping unfilled
// (nil) slots.
func ringValues(rb *ring.Ring) []string {
	if rb == nil {
		return nil
	}
	out := make([]string, 0, rb.Len())
	rb.Do(func(v any) {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	})
	return out
}

// publishLocked delivers a committed transition to local and global state
// observers. Callers must hold stateMu across both the commit
// (setStateLocked) and this call, so a concurrent
// AddStateObserver(..., notifyOnRegister=true) can never interleave with
// an in-flight transition (see AddStateObserver).
func (r *Run) publishLocked(prev, next phase.State) {
	snap := r.snapshotLocked()
	at := snap.ChangedAt
	if at.IsZero() {
		at = time.Now()
	}
	observe.Deliver(r.stateObservers, func(o StateObserverFunc) error {
		o(prev, next, at, snap)
		return nil
	})
	observe.Deliver(GlobalState, func(o StateObserverFunc) error {
		o(prev, next, at, snap)
		return nil
	})
}
