package runner

import (
	"context"
	"time"

	"taskrun/internal/coordinate"
	"taskrun/internal/execution"
	"taskrun/internal/phase"
)

// Run drives the instance through its lifecycle exactly once. A second
// call returns ErrAlreadyRun. It returns the terminal state reached as a
// bool (true if Success-flagged) and any execution error.
func (r *Run) Run(ctx context.Context) (bool, error) {
	r.stateMu.Lock()
	if r.started {
		r.stateMu.Unlock()
		return false, ErrAlreadyRun
	}
	r.started = true
	r.setStateLocked(phase.CREATED)
	r.publishLocked(phase.NONE, phase.CREATED)
	r.stateMu.Unlock()

	// Releasing the Coordinator here (rather than only in the public
	// Release/Stop) is what lets a run that completes normally free its
	// Serial/Parallel/NoOverlap slot for whoever is queued behind it;
	// Locker.Notify wakes that waiter immediately instead of leaving it
	// blocked until its own ctx is cancelled. Forgetting the live state is symmetric
	// with setStateLocked recording it on every commit: once a run is
	// done driving its own lifecycle, a Dependency coordinator watching
	// it must stop seeing it as Executing.
	defer func() {
		if r.Coordinator != nil {
			r.Coordinator.Release()
		}
		coordinate.ForgetLiveState(r.Metadata.ID)
		if r.Locker != nil {
			r.Locker.Notify()
		}
	}()

	// The Locker is acquired before the loop. UnlockAndWait atomically
	// drops and reacquires it around a wait, so after a wait the loop body
	// reuses the same Section instead of calling Lock again (which would
	// deadlock against the reacquired mutex). Lock is called again only
	// after the loop has itself unlocked the Section to publish a
	// transition, so observers never run under the coordination lock.
	section := r.Locker.Lock()
	for {
		if r.Interrupted() {
			section.Unlock()
			r.transitionTerminal(phase.CANCELLED)
			return false, nil
		}
		snap := r.Snapshot()
		signal, err := r.Coordinator.SetSignal(ctx, snap)
		if err != nil {
			section.Unlock()
			r.transitionTerminal(phase.ERROR)
			return false, err
		}

		switch signal {
		case coordinate.Reject:
			section.Unlock()
			r.transitionTerminal(phase.CANCELLED)
			return false, nil

		case coordinate.Wait:
			target := r.Coordinator.ExecState()
			r.stateMu.Lock()
			if prev := r.lifecycle.State(); prev != target && r.setStateLocked(target) {
				section.Unlock()
				r.publishLocked(prev, target)
				r.stateMu.Unlock()
				section = r.Locker.Lock()
				continue
			}
			r.stateMu.Unlock()

			if err := section.UnlockAndWait(ctx); err != nil {
				r.transitionTerminal(phase.INTERRUPTED)
				return false, nil
			}
			continue

		case coordinate.Continue:
			r.stateMu.Lock()
			prev := r.lifecycle.State()
			r.setStateLocked(phase.RUNNING)
			section.Unlock()
			r.publishLocked(prev, phase.RUNNING)
			r.stateMu.Unlock()
			return r.execute(ctx)

		default:
			section.Unlock()
			r.transitionTerminal(phase.ERROR)
			return false, nil
		}
	}
}

// execute runs the Execution body and maps its outcome onto the terminal
// phase lifecycle, wiring output observation for the duration.
func (r *Run) execute(ctx context.Context) (bool, error) {
	r.stateMu.Lock()
	r.setStateLocked(phase.TRIGGERED)
	r.publishLocked(phase.RUNNING, phase.TRIGGERED)
	r.stateMu.Unlock()

	if r.Execution == nil {
		r.transitionTerminal(phase.START_FAILED)
		return false, nil
	}

	obs := func(line string, isError bool) { r.recordOutput(line, isError) }
	r.Execution.AddOutputObserver(obs)
	defer r.Execution.RemoveOutputObserver(obs)

	r.stateMu.Lock()
	r.setStateLocked(phase.STARTED)
	r.publishLocked(phase.TRIGGERED, phase.STARTED)
	r.stateMu.Unlock()

	terminal, execErr := r.Execution.Execute(ctx)
	if execErr != nil {
		if e, ok := execErr.(*execution.Error); ok {
			r.stateMu.Lock()
			r.execErr = e
			r.stateMu.Unlock()
		}
	}
	if !terminal.IsTerminal() {
		if r.Execution.Interrupted() {
			terminal = phase.INTERRUPTED
		} else if execErr != nil {
			terminal = phase.ERROR
		} else {
			terminal = phase.COMPLETED
		}
	}
	r.transitionTerminal(terminal)
	return terminal.IsSuccess(), execErr
}

// transitionTerminal commits the final lifecycle state and publishes it
// under the same stateMu acquisition (see publishLocked); the caller's
// own defer in Run handles releasing the coordinator's held slot and
// forgetting the run's live state.
func (r *Run) transitionTerminal(s phase.State) {
	r.stateMu.Lock()
	prev := r.lifecycle.State()
	if r.setStateLocked(s) {
		r.publishLocked(prev, s)
	}
	r.stateMu.Unlock()
}

// setStateLocked must be called with stateMu held. It records the
// transition, remembers the previous state for callers that need it, and
// publishes the new state to the live-state registry a Dependency
// coordinator on another Run consults, returning whether a transition
// actually occurred.
func (r *Run) setStateLocked(s phase.State) bool {
	prev := r.lifecycle.State()
	if !r.lifecycle.SetState(s, time.Now()) {
		return false
	}
	r.lastCommittedPrev = prev
	coordinate.UpdateLiveState(r.Metadata.ID, s)
	return true
}
