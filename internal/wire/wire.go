// Package wire defines the JSON envelope sent to out-of-process listeners
// over a Unix datagram socket: event metadata, instance metadata, and one
// of a phase-transition or output event.
//
// Fields are written in a fixed order by hand rather than through
// encoding/json reflection, so dispatch payloads are forward-compatible: a
// receiver decoding an older or newer Envelope never has a field shift
// under it. String/number encoding uses
// github.com/joeycumines/go-utilpkg/jsonenc instead of encoding/json's
// reflection path, matching how stumpy's own event encoder is built on it.
package wire

import (
	"bytes"
	"strconv"

	"github.com/joeycumines/go-utilpkg/jsonenc"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// EventMetadata identifies the kind of event carried in an Envelope.
type EventMetadata struct {
	EventType string
}

// Param is a single named static parameter carried in InstanceMetadata.
type Param struct {
	Name  string
	Value string
}

// InstanceMetadata identifies which run produced the event, and carries
// that run's configuration as it was at construction time: its static
// parameters, its free-form user parameters, and the coordination group
// it is (or was) pending on, if any.
type InstanceMetadata struct {
	JobID        string
	RunID        string
	Parameters   []Param
	UserParams   map[string]string
	PendingGroup string
}

// PhaseEvent is the payload for a lifecycle-transition Envelope.
type PhaseEvent struct {
	JobRun        string
	PreviousPhase string
	NewPhase      string
	Ordinal       int
}

// OutputEvent is the payload for an output-line Envelope.
type OutputEvent struct {
	Phase   string
	Output  string
	IsError bool
}

// Envelope is the outer datagram payload: metadata plus exactly one of
// Phase or Output. Exactly one of the two is non-nil; a Receiver that
// sees neither dispatches nothing and reports no warning.
type Envelope struct {
	EventMetadata    EventMetadata
	InstanceMetadata InstanceMetadata
	Phase            *PhaseEvent
	Output           *OutputEvent
}

// MarshalJSON encodes e with a fixed field order: event_metadata,
// instance_metadata, then event (whichever of Phase/Output is set).
func (e Envelope) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	buf.WriteString(`"event_metadata":{"event_type":`)
	buf.Write(jsonenc.AppendString(nil, e.EventMetadata.EventType))
	buf.WriteByte('}')

	buf.WriteString(`,"instance_metadata":`)
	writeInstanceMetadata(&buf, &e.InstanceMetadata)

	buf.WriteString(`,"event":`)
	switch {
	case e.Phase != nil:
		writePhaseEvent(&buf, e.Phase)
	case e.Output != nil:
		writeOutputEvent(&buf, e.Output)
	default:
		buf.WriteString("null")
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeInstanceMetadata encodes m per spec.md §6: a nested id object,
// followed by parameters, user_params and a nullable pending_group.
func writeInstanceMetadata(buf *bytes.Buffer, m *InstanceMetadata) {
	buf.WriteString(`{"id":{"job_id":`)
	buf.Write(jsonenc.AppendString(nil, m.JobID))
	buf.WriteString(`,"run_id":`)
	buf.Write(jsonenc.AppendString(nil, m.RunID))
	buf.WriteByte('}')

	buf.WriteString(`,"parameters":[`)
	for i, p := range m.Parameters {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(`{"name":`)
		buf.Write(jsonenc.AppendString(nil, p.Name))
		buf.WriteString(`,"value":`)
		buf.Write(jsonenc.AppendString(nil, p.Value))
		buf.WriteByte('}')
	}
	buf.WriteByte(']')

	buf.WriteString(`,"user_params":{`)
	keys := maps.Keys(m.UserParams)
	slices.Sort(keys)
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(jsonenc.AppendString(nil, k))
		buf.WriteByte(':')
		buf.Write(jsonenc.AppendString(nil, m.UserParams[k]))
	}
	buf.WriteByte('}')

	buf.WriteString(`,"pending_group":`)
	if m.PendingGroup == "" {
		buf.WriteString("null")
	} else {
		buf.Write(jsonenc.AppendString(nil, m.PendingGroup))
	}
	buf.WriteByte('}')
}

func writePhaseEvent(buf *bytes.Buffer, p *PhaseEvent) {
	buf.WriteString(`{"job_run":`)
	buf.Write(jsonenc.AppendString(nil, p.JobRun))
	buf.WriteString(`,"previous_phase":`)
	buf.Write(jsonenc.AppendString(nil, p.PreviousPhase))
	buf.WriteString(`,"new_phase":`)
	buf.Write(jsonenc.AppendString(nil, p.NewPhase))
	buf.WriteString(`,"ordinal":`)
	buf.Write(strconv.AppendInt(nil, int64(p.Ordinal), 10))
	buf.WriteByte('}')
}

func writeOutputEvent(buf *bytes.Buffer, o *OutputEvent) {
	buf.WriteString(`{"phase":`)
	buf.Write(jsonenc.AppendString(nil, o.Phase))
	buf.WriteString(`,"output":`)
	buf.Write(jsonenc.AppendString(nil, o.Output))
	buf.WriteString(`,"is_error":`)
	if o.IsError {
		buf.WriteString("true")
	} else {
		buf.WriteString("false")
	}
	buf.WriteByte('}')
}
