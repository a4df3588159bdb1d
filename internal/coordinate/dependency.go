package coordinate

import (
	"context"

	"taskrun/internal/phase"
	"taskrun/internal/runsnap"
	"taskrun/internal/runspec"
)

// DependencyCoordinator waits until a specific target run (matched on both
// job id and run id, to disambiguate concurrent runs of the same job) is
// Executing-flagged, then lets the dependent run proceed. Matching is
// always job id AND run id together, never job id alone, so two
// concurrent runs of the same job can be told apart.
type DependencyCoordinator struct {
	target runspec.ID
}

// Dependency constructs a coordinator waiting on targetJobID/targetRunID
// to start executing.
func Dependency(targetJobID, targetRunID string) *DependencyCoordinator {
	return &DependencyCoordinator{target: runspec.ID{JobID: targetJobID, RunID: targetRunID}}
}

func (c *DependencyCoordinator) SetSignal(_ context.Context, _ *runsnap.Snapshot) (Signal, error) {
	st, ok := LookupLiveState(c.target)
	if ok && st.Has(phase.Executing) {
		return Continue, nil
	}
	return Wait, nil
}

func (c *DependencyCoordinator) ExecState() phase.State { return phase.WAITING }

func (c *DependencyCoordinator) Release() {}

func (c *DependencyCoordinator) Parameters() []runspec.Param {
	return []runspec.Param{
		{Name: "target_job_id", Value: c.target.JobID},
		{Name: "target_run_id", Value: c.target.RunID},
	}
}
