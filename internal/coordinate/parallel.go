package coordinate

import (
	"context"
	"strconv"
	"sync/atomic"

	"taskrun/internal/phase"
	"taskrun/internal/runsnap"
	"taskrun/internal/runspec"
)

const groupPrefixParallel = "parallel:"

// ParallelCoordinator lets up to n runs of group execute concurrently.
// Backed by a golang.org/x/sync/semaphore.Weighted slot pool per group
// name, acquired non-blockingly so SetSignal never stalls the
// coordination loop.
type ParallelCoordinator struct {
	group    string
	n        int64
	acquired atomic.Bool
}

// Parallel constructs a coordinator allowing up to n concurrently
// executing runs per group name.
func Parallel(group string, n int) *ParallelCoordinator {
	if n < 1 {
		n = 1
	}
	return &ParallelCoordinator{group: group, n: int64(n)}
}

func (c *ParallelCoordinator) SetSignal(_ context.Context, _ *runsnap.Snapshot) (Signal, error) {
	if c.acquired.Load() {
		return Continue, nil
	}
	if acquireGroupSlot(groupPrefixParallel+c.group, c.n) {
		c.acquired.Store(true)
		return Continue, nil
	}
	return Wait, nil
}

func (c *ParallelCoordinator) ExecState() phase.State { return phase.QUEUED }

func (c *ParallelCoordinator) Release() {
	if c.acquired.CompareAndSwap(true, false) {
		releaseGroupSlot(groupPrefixParallel+c.group, c.n)
	}
}

func (c *ParallelCoordinator) Parameters() []runspec.Param {
	return []runspec.Param{
		{Name: "group", Value: c.group},
		{Name: "limit", Value: strconv.FormatInt(c.n, 10)},
	}
}
