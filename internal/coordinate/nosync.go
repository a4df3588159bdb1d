package coordinate

import (
	"context"

	"taskrun/internal/phase"
	"taskrun/internal/runsnap"
	"taskrun/internal/runspec"
)

// NoSync never waits or rejects; it is the tail of a Composite chain that
// only needs to gate on earlier coordinators.
type NoSync struct{}

func (NoSync) SetSignal(context.Context, *runsnap.Snapshot) (Signal, error) { return Continue, nil }
func (NoSync) ExecState() phase.State                                      { return phase.NONE }
func (NoSync) Release()                                                    {}
func (NoSync) Parameters() []runspec.Param                                 { return nil }
