package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"taskrun/internal/phase"
	"taskrun/internal/runsnap"
	"taskrun/internal/runspec"
	"taskrun/internal/wire"
)

const (
	maxOutputBytes  = 10000
	truncatedSuffix = ".. (truncated)"
	sendTimeout     = 2 * time.Second
)

// errorLogger backs every dispatcher's send failures. It starts as a
// no-op, mirroring runner.SetErrorLogger, so this package carries no
// logging dependency of its own until cmd/taskrund installs
// internal/obslog's hook at startup.
var errorLogger func(jobID, runID string, err error) = func(string, string, error) {}

// SetErrorLogger installs the hook used to report socket-send failures
// that would otherwise be silently dropped. Not safe to call
// concurrently with dispatch; call it once during process startup.
func SetErrorLogger(fn func(jobID, runID string, err error)) {
	if fn == nil {
		fn = func(string, string, error) {}
	}
	errorLogger = fn
}

// instanceMetadata builds the wire representation of meta, carrying its
// static parameters, user parameters and pending-group name through to
// the dispatch payload verbatim.
func instanceMetadata(meta runspec.Metadata) wire.InstanceMetadata {
	params := make([]wire.Param, len(meta.Params))
	for i, p := range meta.Params {
		params[i] = wire.Param{Name: p.Name, Value: p.Value}
	}
	return wire.InstanceMetadata{
		JobID:        meta.ID.JobID,
		RunID:        meta.ID.RunID,
		Parameters:   params,
		UserParams:   meta.UserParams,
		PendingGroup: meta.PendingGroup,
	}
}

// truncate shortens s to at most maxOutputBytes bytes, appending
// truncatedSuffix when it does.
func truncate(s string) string {
	if len(s) <= maxOutputBytes {
		return s
	}
	cut := maxOutputBytes - len(truncatedSuffix)
	if cut < 0 {
		cut = 0
	}
	return s[:cut] + truncatedSuffix
}

// PhaseDispatcher fans out lifecycle transitions to every `.plistener`
// socket. Its Observe method has the shape of a runner.StateObserverFunc.
type PhaseDispatcher struct {
	client  *SocketClient
	ordinal int
}

// NewPhaseDispatcher constructs a PhaseDispatcher scanning dir (or
// SocketDir() if empty).
func NewPhaseDispatcher(dir string) *PhaseDispatcher {
	return &PhaseDispatcher{client: NewSocketClient(PhaseListenerExt, dir)}
}

// Observe matches runner.StateObserverFunc and is registered via
// Run.AddStateObserver.
func (d *PhaseDispatcher) Observe(prev, next phase.State, at time.Time, snap *runsnap.Snapshot) {
	d.ordinal++
	env := wire.Envelope{
		EventMetadata:    wire.EventMetadata{EventType: "phase"},
		InstanceMetadata: instanceMetadata(snap.Metadata),
		Phase: &wire.PhaseEvent{
			JobRun:        snap.JobID() + "/" + snap.RunID(),
			PreviousPhase: prev.String(),
			NewPhase:      next.String(),
			Ordinal:       d.ordinal,
		},
	}
	d.send(env)
}

// OutputDispatcher fans out output lines to every `.olistener` socket.
// Its Observe method has the shape of a runner.OutputObserverFunc.
type OutputDispatcher struct {
	client *SocketClient
}

// NewOutputDispatcher constructs an OutputDispatcher scanning dir (or
// SocketDir() if empty).
func NewOutputDispatcher(dir string) *OutputDispatcher {
	return &OutputDispatcher{client: NewSocketClient(OutputListenerExt, dir)}
}

// Observe matches runner.OutputObserverFunc and is registered via
// Run.AddOutputObserver.
func (d *OutputDispatcher) Observe(snap *runsnap.Snapshot, line string, isError bool) {
	env := wire.Envelope{
		EventMetadata:    wire.EventMetadata{EventType: "output"},
		InstanceMetadata: instanceMetadata(snap.Metadata),
		Output: &wire.OutputEvent{
			Phase:   snap.State.String(),
			Output:  truncate(line),
			IsError: isError,
		},
	}
	d.send(env)
}

func (d *PhaseDispatcher) send(env wire.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		errorLogger(env.InstanceMetadata.JobID, env.InstanceMetadata.RunID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	logSendErrors(env, d.client.Send(ctx, data))
}

func (d *OutputDispatcher) send(env wire.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		errorLogger(env.InstanceMetadata.JobID, env.InstanceMetadata.RunID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	logSendErrors(env, d.client.Send(ctx, data))
}

// logSendErrors reports every per-listener send failure returned by a
// SocketClient.Send fan-out; a dropped datagram is logged, never silently
// discarded.
func logSendErrors(env wire.Envelope, errs []error) {
	for _, err := range errs {
		if err != nil {
			errorLogger(env.InstanceMetadata.JobID, env.InstanceMetadata.RunID, err)
		}
	}
}
