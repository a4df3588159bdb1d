// Package runsnap defines the read-only, point-in-time view of a run that
// is handed to coordinators and observers, so neither can reach back into
// the live Run and mutate it outside the state lock.
package runsnap

import (
	"time"

	"taskrun/internal/execution"
	"taskrun/internal/phase"
	"taskrun/internal/runspec"
)

// Snapshot is an immutable copy of a run's observable state at one instant.
// Grounded on dag.Executor.StateSnapshot's "copy under lock, hand out the
// copy" style, generalized from a map of task states to a single run's
// full picture. All fields are taken under the same state lock. When the
// runner records an ExecError it does so before committing the terminal
// State, so no snapshot shows that State without the error. Some
// non-success terminal states (e.g. CANCELLED, or ERROR from a
// coordination failure) carry a nil ExecError.
type Snapshot struct {
	Metadata  runspec.Metadata
	State     phase.State
	Lifecycle []phase.Transition
	ChangedAt time.Time
	// TrackerView is a rendered snapshot of the run's tracker tree at the
	// time this Snapshot was taken, or empty if no tracker is attached.
	TrackerView string

	// RecentOutput holds up to the last 10 non-error output lines, oldest
	// first.
	RecentOutput []string
	// RecentErrorOutput holds up to the last 1000 error-stream output
	// lines, oldest first.
	RecentErrorOutput []string
	// Warnings counts warnings recorded against the run, keyed by
	// category.
	Warnings map[string]int
	// ExecError is the execution failure recorded for this run, if the
	// underlying Execution reported one. Non-nil only once the run has
	// reached (or is reaching) a non-success terminal phase.
	ExecError *execution.Error
}

// JobID is a convenience accessor used throughout coordinator/registry code.
func (s *Snapshot) JobID() string {
	if s == nil {
		return ""
	}
	return s.Metadata.ID.JobID
}

// RunID is a convenience accessor used throughout coordinator/registry code.
func (s *Snapshot) RunID() string {
	if s == nil {
		return ""
	}
	return s.Metadata.ID.RunID
}
