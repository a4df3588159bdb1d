package receive

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"taskrun/internal/wire"
)

func TestReceiverDispatchesPhaseEvent(t *testing.T) {
	r, err := NewReceiver(".plistener", t.TempDir())
	require.NoError(t, err)
	defer r.Close()

	got := make(chan wire.PhaseEvent, 1)
	r.Phase = PhaseListenerFunc(func(meta wire.InstanceMetadata, event wire.PhaseEvent) {
		got <- event
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	conn, err := net.Dial("unixgram", r.Path())
	require.NoError(t, err)
	defer conn.Close()

	env := wire.Envelope{
		EventMetadata:    wire.EventMetadata{EventType: "phase"},
		InstanceMetadata: wire.InstanceMetadata{JobID: "build", RunID: "r1"},
		Phase:            &wire.PhaseEvent{JobRun: "build/r1", PreviousPhase: "RUNNING", NewPhase: "COMPLETED", Ordinal: 1},
	}
	data, err := json.Marshal(env)
	require.NoError(t, err)
	_, err = conn.Write(data)
	require.NoError(t, err)

	select {
	case event := <-got:
		require.Equal(t, *env.Phase, event)
	case <-time.After(2 * time.Second):
		t.Fatal("phase event not received")
	}
}

func TestReceiverDropsPayloadMissingInstanceMetadata(t *testing.T) {
	r, err := NewReceiver(".plistener", t.TempDir())
	require.NoError(t, err)
	defer r.Close()

	warned := make(chan string, 1)
	r.Warn = func(reason string, err error) { warned <- reason }
	r.Phase = PhaseListenerFunc(func(wire.InstanceMetadata, wire.PhaseEvent) {
		t.Fatal("listener should not be invoked for a malformed payload")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	conn, err := net.Dial("unixgram", r.Path())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(`{"event_metadata":{"event_type":"phase"}}`))
	require.NoError(t, err)

	select {
	case reason := <-warned:
		require.Equal(t, "missing instance_metadata", reason)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a warning for the malformed payload")
	}
}

func TestReceiverAllowPingIgnoresEmptyPayload(t *testing.T) {
	r, err := NewReceiver(".plistener", t.TempDir())
	require.NoError(t, err)
	defer r.Close()
	r.AllowPing = true

	warned := make(chan string, 1)
	r.Warn = func(reason string, err error) { warned <- reason }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	conn, err := net.Dial("unixgram", r.Path())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(nil)
	require.NoError(t, err)

	select {
	case reason := <-warned:
		t.Fatalf("unexpected warning for ping payload: %s", reason)
	case <-time.After(200 * time.Millisecond):
	}
}
