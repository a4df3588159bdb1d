package coordinate

import (
	"sync"

	"taskrun/internal/phase"
	"taskrun/internal/runspec"
)

// liveStates is the process-global registry of every live run's current
// phase, keyed by (JobID, RunID). It is how Dependency can see another
// run's state without reaching into that run's internals: a queryable
// current-state map rather than a list of callbacks, since Dependency
// needs to query state rather than be notified of every transition.
var liveStates = struct {
	mu sync.RWMutex
	m  map[runspec.ID]phase.State
}{m: make(map[runspec.ID]phase.State)}

// UpdateLiveState records id's current state. Runner calls this every time
// it commits a lifecycle transition, under its own state lock, so readers
// always see a value at least as fresh as the last committed transition.
func UpdateLiveState(id runspec.ID, s phase.State) {
	liveStates.mu.Lock()
	liveStates.m[id] = s
	liveStates.mu.Unlock()
}

// ForgetLiveState removes id once its run has fully detached (after
// terminal observers have run), keeping the registry from growing
// unboundedly across a long-lived process.
func ForgetLiveState(id runspec.ID) {
	liveStates.mu.Lock()
	delete(liveStates.m, id)
	liveStates.mu.Unlock()
}

// LookupLiveState returns id's last known state, if any run has reported one.
func LookupLiveState(id runspec.ID) (phase.State, bool) {
	liveStates.mu.RLock()
	defer liveStates.mu.RUnlock()
	s, ok := liveStates.m[id]
	return s, ok
}
