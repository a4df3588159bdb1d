package coordinate

import (
	"context"

	"taskrun/internal/phase"
	"taskrun/internal/runsnap"
	"taskrun/internal/runspec"
)

// Coordinator is the policy a runner's coordination loop consults before
// letting a run proceed into execution. Implementations must never block
// inside SetSignal; blocking happens only in the runner's own
// Section.UnlockAndWait, driven by the Wait signal.
type Coordinator interface {
	// SetSignal is called with the coordination Locker already held. It
	// must be side-effect-light and non-blocking: acquiring a counting
	// slot (Parallel) or checking a flag (Latch) is fine, but it must
	// never wait on another run to change state.
	SetSignal(ctx context.Context, snap *runsnap.Snapshot) (Signal, error)

	// ExecState is the phase.State the runner records while this
	// Coordinator returns Wait (e.g. WAITING for a Latch, QUEUED for
	// Serial/Parallel/NoOverlap).
	ExecState() phase.State

	// Release is called when the run finishes (successfully or not) and
	// whenever Run.Release or Run.Stop is called, so the Coordinator can
	// free whatever slot it was holding (or, for a Latch, open the latch)
	// and let any other run blocked behind it proceed.
	Release()

	// Parameters exposes this Coordinator's configuration for
	// tracker/dispatch display (e.g. the group name and limit).
	Parameters() []runspec.Param
}
