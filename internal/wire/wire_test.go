package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTripsPhaseEvent(t *testing.T) {
	env := Envelope{
		EventMetadata: EventMetadata{EventType: "phase"},
		InstanceMetadata: InstanceMetadata{
			JobID:        "build",
			RunID:        "abc123",
			Parameters:   []Param{{Name: "retries", Value: "3"}},
			UserParams:   map[string]string{"triggered_by": "cron"},
			PendingGroup: "nightly",
		},
		Phase: &PhaseEvent{JobRun: "build/abc123", PreviousPhase: "RUNNING", NewPhase: "COMPLETED", Ordinal: 4},
	}

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.NotNil(t, decoded.Phase)
	require.Equal(t, *env.Phase, *decoded.Phase)
	require.Equal(t, env.InstanceMetadata.JobID, decoded.InstanceMetadata.JobID)
	require.Equal(t, env.InstanceMetadata.RunID, decoded.InstanceMetadata.RunID)
	require.Equal(t, env.InstanceMetadata.Parameters, decoded.InstanceMetadata.Parameters)
	require.Equal(t, env.InstanceMetadata.UserParams, decoded.InstanceMetadata.UserParams)
	require.Equal(t, env.InstanceMetadata.PendingGroup, decoded.InstanceMetadata.PendingGroup)
	require.Nil(t, decoded.Output)
}

func TestEnvelopeRoundTripsOutputEventAndIgnoresUnknownFields(t *testing.T) {
	raw := []byte(`{
		"event_metadata":{"event_type":"output","future_field":"x"},
		"instance_metadata":{"id":{"job_id":"build","run_id":"abc123"},"parameters":[],"user_params":{},"pending_group":null,"future_field":"y"},
		"event":{"phase":"STARTED","output":"compiling...","is_error":false,"extra":123},
		"future_top_level":true
	}`)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(raw, &decoded))

	require.NotNil(t, decoded.Output)
	require.Equal(t, OutputEvent{Phase: "STARTED", Output: "compiling...", IsError: false}, *decoded.Output)
	require.Equal(t, "build", decoded.InstanceMetadata.JobID)
	require.Equal(t, "abc123", decoded.InstanceMetadata.RunID)
	require.Empty(t, decoded.InstanceMetadata.PendingGroup)
}

func TestEnvelopeEncodesNilPendingGroupAsNull(t *testing.T) {
	env := Envelope{
		EventMetadata:    EventMetadata{EventType: "output"},
		InstanceMetadata: InstanceMetadata{JobID: "build", RunID: "abc123"},
		Output:           &OutputEvent{Phase: "RUNNING", Output: "x"},
	}

	data, err := json.Marshal(env)
	require.NoError(t, err)
	require.Contains(t, string(data), `"pending_group":null`)
}
