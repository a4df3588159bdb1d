package tracker

import "encoding/json"

// The wire* types mirror the Snapshot types with standard json tags, used
// only to decode: MarshalJSON in snapshot.go is handwritten for canonical field
// ordering, but decoding can safely use reflection since field order
// never matters to a decoder.

type wireProgress struct {
	Completed *float64 `json:"completed,omitempty"`
	Total     *float64 `json:"total,omitempty"`
	Unit      string   `json:"unit,omitempty"`
}

type wireOperationSnapshot struct {
	Name     string       `json:"name"`
	Progress wireProgress `json:"progress"`
	Active   bool         `json:"active"`
}

type wireWarning struct {
	Category string            `json:"category"`
	Params   map[string]string `json:"params,omitempty"`
}

type wireFailure struct {
	Class  string `json:"class"`
	Reason string `json:"reason"`
}

type wireTaskSnapshot struct {
	Name         string                  `json:"name"`
	CurrentEvent string                  `json:"current_event,omitempty"`
	Operations   []wireOperationSnapshot `json:"operations,omitempty"`
	Result       string                  `json:"result,omitempty"`
	Subtasks     []wireTaskSnapshot      `json:"subtasks,omitempty"`
	Warnings     []wireWarning           `json:"warnings,omitempty"`
	Failure      *wireFailure            `json:"failure,omitempty"`
	Active       bool                    `json:"active"`
}

// UnmarshalJSON decodes bytes produced by MarshalJSON back into an
// equivalent OperationSnapshot.
func (s *OperationSnapshot) UnmarshalJSON(data []byte) error {
	var w wireOperationSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.Name = w.Name
	s.Progress = Progress{Completed: w.Progress.Completed, Total: w.Progress.Total, Unit: w.Progress.Unit}
	s.Active = w.Active
	return nil
}

// UnmarshalJSON decodes bytes produced by MarshalJSON back into an
// equivalent Warning.
func (w *Warning) UnmarshalJSON(data []byte) error {
	var raw wireWarning
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	w.Category = raw.Category
	w.Params = raw.Params
	return nil
}

// UnmarshalJSON decodes bytes produced by MarshalJSON back into an
// equivalent TaskSnapshot.
func (s *TaskSnapshot) UnmarshalJSON(data []byte) error {
	var w wireTaskSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = taskSnapshotFromWire(w)
	return nil
}

func taskSnapshotFromWire(w wireTaskSnapshot) TaskSnapshot {
	out := TaskSnapshot{
		Name:         w.Name,
		CurrentEvent: w.CurrentEvent,
		Result:       w.Result,
		Active:       w.Active,
	}
	if w.Failure != nil {
		out.Failure = &Failure{Class: w.Failure.Class, Reason: w.Failure.Reason}
	}
	for _, op := range w.Operations {
		out.Operations = append(out.Operations, OperationSnapshot{
			Name:     op.Name,
			Progress: Progress{Completed: op.Progress.Completed, Total: op.Progress.Total, Unit: op.Progress.Unit},
			Active:   op.Active,
		})
	}
	for _, warn := range w.Warnings {
		out.Warnings = append(out.Warnings, Warning{Category: warn.Category, Params: warn.Params})
	}
	for _, sub := range w.Subtasks {
		out.Subtasks = append(out.Subtasks, taskSnapshotFromWire(sub))
	}
	return out
}
