// Package receive implements the out-of-process listener side of
// taskrun's event fabric: a Receiver binds a uniquely-named Unix
// datagram socket, decodes each incoming Envelope, validates required
// metadata, and dispatches to a typed listener or a plain callback.
package receive

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"taskrun/internal/dispatch"
	"taskrun/internal/wire"
)

// PhaseListener handles a decoded phase event.
type PhaseListener interface {
	HandlePhase(meta wire.InstanceMetadata, event wire.PhaseEvent)
}

// PhaseListenerFunc adapts a plain function to PhaseListener, matching
// the "observer object or a callable listener" dual dispatch.
type PhaseListenerFunc func(meta wire.InstanceMetadata, event wire.PhaseEvent)

func (f PhaseListenerFunc) HandlePhase(meta wire.InstanceMetadata, event wire.PhaseEvent) { f(meta, event) }

// OutputListener handles a decoded output event.
type OutputListener interface {
	HandleOutput(meta wire.InstanceMetadata, event wire.OutputEvent)
}

// OutputListenerFunc adapts a plain function to OutputListener.
type OutputListenerFunc func(meta wire.InstanceMetadata, event wire.OutputEvent)

func (f OutputListenerFunc) HandleOutput(meta wire.InstanceMetadata, event wire.OutputEvent) { f(meta, event) }

// WarnFunc reports a dropped/malformed datagram. Defaults to a no-op;
// cmd/taskrund wires this through internal/obslog.
type WarnFunc func(reason string, err error)

// Receiver binds a socket under dispatch.SocketDir() and decodes
// Envelopes off it until its context is cancelled.
type Receiver struct {
	Ext        string
	Phase      PhaseListener
	Output     OutputListener
	EventTypes []string
	IDMatch    func(jobID, runID string) bool
	AllowPing  bool
	Warn       WarnFunc

	conn *net.UnixConn
	path string
}

// NewReceiver binds a new uniquely-named socket with the given listener
// extension inside dir (dispatch.SocketDir() if empty).
func NewReceiver(ext, dir string) (*Receiver, error) {
	if dir == "" {
		dir = dispatch.SocketDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("receive: create socket dir: %w", err)
	}
	name := uuid.NewString()[:12] + ext
	path := filepath.Join(dir, name)

	addr, err := net.ResolveUnixAddr("unixgram", path)
	if err != nil {
		return nil, fmt.Errorf("receive: resolve addr: %w", err)
	}
	conn, err := net.ListenUnixgram("unixgram", addr)
	if err != nil {
		return nil, fmt.Errorf("receive: listen: %w", err)
	}
	return &Receiver{Ext: ext, conn: conn, path: path}, nil
}

// Path returns the bound socket's filesystem path.
func (r *Receiver) Path() string { return r.path }

// Close removes the socket file and stops listening.
func (r *Receiver) Close() error {
	err := r.conn.Close()
	os.Remove(r.path)
	return err
}

// Run reads datagrams until ctx is cancelled or the socket errors.
func (r *Receiver) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			r.conn.Close()
		case <-done:
		}
	}()

	buf := make([]byte, 65536)
	for {
		n, err := r.conn.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		r.handle(buf[:n])
	}
}

func (r *Receiver) handle(data []byte) {
	if len(data) == 0 {
		if r.AllowPing {
			return
		}
		r.warn("empty payload", nil)
		return
	}

	var env wire.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		r.warn("malformed payload", err)
		return
	}

	if env.EventMetadata.EventType == "" {
		r.warn("missing event_metadata.event_type", nil)
		return
	}
	if env.InstanceMetadata.JobID == "" || env.InstanceMetadata.RunID == "" {
		r.warn("missing instance_metadata", nil)
		return
	}

	if !r.typeAllowed(env.EventMetadata.EventType) {
		return
	}
	if r.IDMatch != nil && !r.IDMatch(env.InstanceMetadata.JobID, env.InstanceMetadata.RunID) {
		return
	}

	switch {
	case env.Phase != nil && r.Phase != nil:
		r.Phase.HandlePhase(env.InstanceMetadata, *env.Phase)
	case env.Output != nil && r.Output != nil:
		r.Output.HandleOutput(env.InstanceMetadata, *env.Output)
	}
}

func (r *Receiver) typeAllowed(eventType string) bool {
	if len(r.EventTypes) == 0 {
		return true
	}
	for _, t := range r.EventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

func (r *Receiver) warn(reason string, err error) {
	if r.Warn != nil {
		r.Warn(reason, err)
	}
}
