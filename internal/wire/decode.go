package wire

import "encoding/json"

// Decoding uses encoding/json's ordinary struct-tag path: json.Unmarshal
// already ignores fields it doesn't recognize, so no hand-written decoder
// is needed to satisfy that requirement (only encoding needs the manual
// buffer-building technique, for canonical field order).

type wireEnvelope struct {
	EventMetadata    wireEventMetadata    `json:"event_metadata"`
	InstanceMetadata wireInstanceMetadata `json:"instance_metadata"`
	Event            json.RawMessage      `json:"event"`
}

type wireEventMetadata struct {
	EventType string `json:"event_type"`
}

type wireInstanceMetadata struct {
	ID           wireID            `json:"id"`
	Parameters   []wireParam       `json:"parameters"`
	UserParams   map[string]string `json:"user_params"`
	PendingGroup *string           `json:"pending_group"`
}

type wireID struct {
	JobID string `json:"job_id"`
	RunID string `json:"run_id"`
}

type wireParam struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type wirePhaseEvent struct {
	JobRun        string `json:"job_run"`
	PreviousPhase string `json:"previous_phase"`
	NewPhase      string `json:"new_phase"`
	Ordinal       int    `json:"ordinal"`
}

type wireOutputEvent struct {
	Phase   string `json:"phase"`
	Output  string `json:"output"`
	IsError bool   `json:"is_error"`
}

// UnmarshalJSON decodes an Envelope, dispatching the "event" payload based
// on EventMetadata.EventType ("phase" or "output"). An unrecognized event
// type decodes metadata only, leaving Phase and Output nil.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.EventMetadata = EventMetadata{EventType: w.EventMetadata.EventType}
	params := make([]Param, len(w.InstanceMetadata.Parameters))
	for i, p := range w.InstanceMetadata.Parameters {
		params[i] = Param{Name: p.Name, Value: p.Value}
	}
	var pendingGroup string
	if w.InstanceMetadata.PendingGroup != nil {
		pendingGroup = *w.InstanceMetadata.PendingGroup
	}
	e.InstanceMetadata = InstanceMetadata{
		JobID:        w.InstanceMetadata.ID.JobID,
		RunID:        w.InstanceMetadata.ID.RunID,
		Parameters:   params,
		UserParams:   w.InstanceMetadata.UserParams,
		PendingGroup: pendingGroup,
	}
	e.Phase = nil
	e.Output = nil

	if len(w.Event) == 0 {
		return nil
	}
	switch w.EventMetadata.EventType {
	case "phase":
		var p wirePhaseEvent
		if err := json.Unmarshal(w.Event, &p); err != nil {
			return err
		}
		e.Phase = &PhaseEvent{JobRun: p.JobRun, PreviousPhase: p.PreviousPhase, NewPhase: p.NewPhase, Ordinal: p.Ordinal}
	case "output":
		var o wireOutputEvent
		if err := json.Unmarshal(w.Event, &o); err != nil {
			return err
		}
		e.Output = &OutputEvent{Phase: o.Phase, Output: o.Output, IsError: o.IsError}
	}
	return nil
}
