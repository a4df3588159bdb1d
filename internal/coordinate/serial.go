package coordinate

import (
	"context"
	"strconv"
	"sync/atomic"

	"taskrun/internal/phase"
	"taskrun/internal/runsnap"
	"taskrun/internal/runspec"
)

const groupPrefixSerial = "serial:"

// SerialCoordinator lets at most one run of group execute at a time.
type SerialCoordinator struct {
	group    string
	acquired atomic.Bool
}

// Serial constructs a coordinator allowing only one concurrently executing
// run per group name.
func Serial(group string) *SerialCoordinator {
	return &SerialCoordinator{group: group}
}

func (c *SerialCoordinator) SetSignal(_ context.Context, _ *runsnap.Snapshot) (Signal, error) {
	if c.acquired.Load() {
		return Continue, nil
	}
	if acquireGroupSlot(groupPrefixSerial+c.group, 1) {
		c.acquired.Store(true)
		return Continue, nil
	}
	return Wait, nil
}

func (c *SerialCoordinator) ExecState() phase.State { return phase.QUEUED }

func (c *SerialCoordinator) Release() {
	if c.acquired.CompareAndSwap(true, false) {
		releaseGroupSlot(groupPrefixSerial+c.group, 1)
	}
}

func (c *SerialCoordinator) Parameters() []runspec.Param {
	return []runspec.Param{
		{Name: "group", Value: c.group},
		{Name: "limit", Value: strconv.Itoa(1)},
	}
}
