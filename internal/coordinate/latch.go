package coordinate

import (
	"context"
	"sync/atomic"

	"taskrun/internal/phase"
	"taskrun/internal/runsnap"
	"taskrun/internal/runspec"
)

// LatchCoordinator holds a run at ExecState until Release is called once,
// from anywhere (typically an external trigger, not the run itself).
type LatchCoordinator struct {
	target   phase.State
	released atomic.Bool
}

// Latch waits at target (a BeforeExecution/Waiting-flagged state, e.g.
// WAITING) until Release is called.
func Latch(target phase.State) *LatchCoordinator {
	return &LatchCoordinator{target: target}
}

func (c *LatchCoordinator) SetSignal(_ context.Context, _ *runsnap.Snapshot) (Signal, error) {
	if c.released.Load() {
		return Continue, nil
	}
	return Wait, nil
}

func (c *LatchCoordinator) ExecState() phase.State { return c.target }

// Release lets the run proceed. Idempotent: calling it more than once, or
// concurrently, is safe.
func (c *LatchCoordinator) Release() { c.released.Store(true) }

func (c *LatchCoordinator) Parameters() []runspec.Param {
	return []runspec.Param{{Name: "latch_state", Value: c.target.String()}}
}
