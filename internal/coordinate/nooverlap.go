package coordinate

import (
	"context"
	"sync/atomic"

	"taskrun/internal/phase"
	"taskrun/internal/runsnap"
	"taskrun/internal/runspec"
)

const groupPrefixNoOverlap = "no-overlap:"

// NoOverlapCoordinator lets at most one instance of the same job id execute
// at a time, regardless of run id. Unlike Serial, its key is derived from
// the snapshot at SetSignal time rather than fixed at construction, since
// one NoOverlapCoordinator value is meant to be attached generically to
// any job.
type NoOverlapCoordinator struct {
	jobID    atomic.Value // string, set on first SetSignal call
	acquired atomic.Bool
}

// NoOverlap constructs a coordinator preventing concurrent executing runs
// that share a job id.
func NoOverlap() *NoOverlapCoordinator {
	return &NoOverlapCoordinator{}
}

func (c *NoOverlapCoordinator) SetSignal(_ context.Context, snap *runsnap.Snapshot) (Signal, error) {
	if c.acquired.Load() {
		return Continue, nil
	}
	jobID := snap.JobID()
	c.jobID.Store(jobID)
	if acquireGroupSlot(groupPrefixNoOverlap+jobID, 1) {
		c.acquired.Store(true)
		return Continue, nil
	}
	return Wait, nil
}

func (c *NoOverlapCoordinator) ExecState() phase.State { return phase.QUEUED }

func (c *NoOverlapCoordinator) Release() {
	if c.acquired.CompareAndSwap(true, false) {
		if jobID, ok := c.jobID.Load().(string); ok {
			releaseGroupSlot(groupPrefixNoOverlap+jobID, 1)
		}
	}
}

func (c *NoOverlapCoordinator) Parameters() []runspec.Param { return nil }
