package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"taskrun/internal/coordinate"
	"taskrun/internal/execution"
	"taskrun/internal/phase"
	"taskrun/internal/runsnap"
	"taskrun/internal/runspec"
)

// fakeExecution is a minimal execution.Execution for exercising the
// coordination loop without any real work.
type fakeExecution struct {
	mu        sync.Mutex
	observers []execution.OutputObserver
	stopped   bool
	result    phase.State
	err       error
	lines     []string
}

func (f *fakeExecution) Execute(ctx context.Context) (phase.State, error) {
	f.mu.Lock()
	obs := append([]execution.OutputObserver{}, f.observers...)
	lines := f.lines
	f.mu.Unlock()
	for _, l := range lines {
		for _, o := range obs {
			o(l, false)
		}
	}
	return f.result, f.err
}

func (f *fakeExecution) Stop() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeExecution) Interrupted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (f *fakeExecution) AddOutputObserver(o execution.OutputObserver) {
	f.mu.Lock()
	f.observers = append(f.observers, o)
	f.mu.Unlock()
}

func (f *fakeExecution) RemoveOutputObserver(o execution.OutputObserver) {
	// Tests here never register more than one observer per run, matching
	// the runner's own single-observer usage, so clearing the slice is
	// enough without needing identity comparison on func values.
	f.mu.Lock()
	f.observers = nil
	f.mu.Unlock()
}

func newMeta(jobID string) runspec.Metadata {
	return runspec.Metadata{ID: runspec.ID{JobID: jobID, RunID: runspec.NextRunID()}}
}

func TestRunWithNoSyncCompletesImmediately(t *testing.T) {
	exec := &fakeExecution{result: phase.COMPLETED, lines: []string{"hello"}}
	r := New(newMeta("job-a"), &coordinate.NoSync{}, exec, &coordinate.NullLocker{})

	var transitions []phase.State
	r.AddStateObserver(func(prev, next phase.State, at time.Time, snap *runsnap.Snapshot) {
		transitions = append(transitions, next)
	}, 0, false)

	ok, err := r.Run(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, phase.COMPLETED, r.Snapshot().State)
	require.Contains(t, transitions, phase.COMPLETED)
}

func TestRunWithLatchWaitsThenProceeds(t *testing.T) {
	exec := &fakeExecution{result: phase.COMPLETED}
	latch := coordinate.Latch(phase.WAITING)
	r := New(newMeta("job-b"), latch, exec, nil)

	done := make(chan struct{})
	var ok bool
	var runErr error
	go func() {
		ok, runErr = r.Run(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		return r.Snapshot().State == phase.WAITING
	}, time.Second, 5*time.Millisecond)

	r.Release()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not complete after latch release")
	}
	require.NoError(t, runErr)
	require.True(t, ok)
}

func TestRunSerialQueuesSecondRun(t *testing.T) {
	group := "build-group-" + runspec.NextRunID()
	blockFirst := make(chan struct{})
	firstStarted := make(chan struct{})

	firstExec := &blockingExecution{
		inner:   &fakeExecution{result: phase.COMPLETED},
		started: firstStarted,
		release: blockFirst,
	}

	r1 := New(newMeta("job-c"), coordinate.Serial(group), firstExec, nil)
	r2 := New(newMeta("job-c"), coordinate.Serial(group), &fakeExecution{result: phase.COMPLETED}, nil)

	go r1.Run(context.Background())
	<-firstStarted

	done2 := make(chan struct{})
	go func() {
		r2.Run(context.Background())
		close(done2)
	}()

	require.Eventually(t, func() bool {
		return r2.Snapshot().State == phase.QUEUED
	}, time.Second, 5*time.Millisecond)

	close(blockFirst)

	select {
	case <-done2:
	case <-time.After(2 * time.Second):
		t.Fatal("second run never dequeued")
	}
	require.Equal(t, phase.COMPLETED, r2.Snapshot().State)
}

func TestSnapshotReportsExecErrorConsistentlyWithFailedState(t *testing.T) {
	execErr := execution.NewFailed(phase.FAILED, "bad", "last line")
	exec := &fakeExecution{result: phase.FAILED, err: execErr}
	r := New(newMeta("job-exec-err"), &coordinate.NoSync{}, exec, &coordinate.NullLocker{})

	ok, runErr := r.Run(context.Background())
	require.Error(t, runErr)
	require.False(t, ok)

	snap := r.Snapshot()
	require.Equal(t, phase.FAILED, snap.State)
	require.NotNil(t, snap.ExecError)
	require.Equal(t, "bad", snap.ExecError.Message)
}

func TestSnapshotRecordsRecentOutputLines(t *testing.T) {
	exec := &fakeExecution{result: phase.COMPLETED, lines: []string{"one", "two", "three"}}
	r := New(newMeta("job-output"), &coordinate.NoSync{}, exec, &coordinate.NullLocker{})

	ok, err := r.Run(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, []string{"one", "two", "three"}, r.Snapshot().RecentOutput)
}

func TestAddStateObserverNotifyOnRegisterDoesNotDuplicateSubsequentTransition(t *testing.T) {
	exec := &fakeExecution{result: phase.COMPLETED}
	latch := coordinate.Latch(phase.WAITING)
	r := New(newMeta("job-notify"), latch, exec, nil)

	done := make(chan struct{})
	go func() {
		r.Run(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		return r.Snapshot().State == phase.WAITING
	}, time.Second, 5*time.Millisecond)

	var mu sync.Mutex
	var seen []phase.State
	r.AddStateObserver(func(prev, next phase.State, at time.Time, snap *runsnap.Snapshot) {
		mu.Lock()
		seen = append(seen, next)
		mu.Unlock()
	}, 0, true)

	r.Release()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not complete after latch release")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []phase.State{phase.WAITING, phase.RUNNING, phase.TRIGGERED, phase.STARTED, phase.COMPLETED}, seen)
}

func TestRunDependencyWaitsUntilTargetIsExecuting(t *testing.T) {
	targetMeta := newMeta("job-dep-target")
	blockRelease := make(chan struct{})
	targetStarted := make(chan struct{})
	targetExec := &blockingExecution{
		inner:   &fakeExecution{result: phase.COMPLETED},
		started: targetStarted,
		release: blockRelease,
	}
	target := New(targetMeta, &coordinate.NoSync{}, targetExec, &coordinate.NullLocker{})

	dep := coordinate.Dependency(targetMeta.ID.JobID, targetMeta.ID.RunID)
	depRun := New(newMeta("job-dep-dependent"), dep, &fakeExecution{result: phase.COMPLETED}, &coordinate.NullLocker{})

	done := make(chan struct{})
	var ok bool
	var runErr error
	go func() {
		ok, runErr = depRun.Run(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		return depRun.Snapshot().State == phase.WAITING
	}, time.Second, 5*time.Millisecond, "dependent run should wait while its target has not reached an executing state")

	select {
	case <-done:
		t.Fatal("dependent run proceeded before its target ever started executing")
	case <-time.After(50 * time.Millisecond):
	}

	go target.Run(context.Background())
	<-targetStarted

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dependent run never proceeded once its target reached an executing state")
	}
	require.NoError(t, runErr)
	require.True(t, ok)

	close(blockRelease)
}

// blockingExecution defers to inner.Execute only after release is closed,
// signalling started as soon as Execute begins.
type blockingExecution struct {
	inner   *fakeExecution
	started chan struct{}
	release chan struct{}
}

func (b *blockingExecution) Execute(ctx context.Context) (phase.State, error) {
	close(b.started)
	<-b.release
	return b.inner.Execute(ctx)
}

func (b *blockingExecution) Stop()            { b.inner.Stop() }
func (b *blockingExecution) Interrupted() bool { return b.inner.Interrupted() }
func (b *blockingExecution) AddOutputObserver(o execution.OutputObserver) {
	b.inner.AddOutputObserver(o)
}
func (b *blockingExecution) RemoveOutputObserver(o execution.OutputObserver) {
	b.inner.RemoveOutputObserver(o)
}
