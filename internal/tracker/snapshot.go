package tracker

import (
	"bytes"
	"encoding/json"
)

// OperationSnapshot is the immutable, serializable view of an Operation.
type OperationSnapshot struct {
	Name     string
	Progress Progress
	Active   bool
}

// TaskSnapshot is the immutable, serializable view of a Task tree.
type TaskSnapshot struct {
	Name         string
	CurrentEvent string
	Operations   []OperationSnapshot
	Result       string
	Subtasks     []TaskSnapshot
	Warnings     []Warning
	Failure      *Failure
	Active       bool
}

// Snapshot returns a deep, point-in-time copy of the task tree suitable
// for serialization or cross-goroutine use.
func (t *Task) Snapshot() TaskSnapshot {
	t.mu.Lock()
	name := t.name
	currentEvent := t.currentEvent
	result := t.result
	active := t.active
	failure := t.failure
	warnings := append([]Warning(nil), t.warnings...)
	opOrder := append([]string(nil), t.opOrder...)
	subOrder := append([]string(nil), t.subtaskOrder...)
	ops := t.operations
	subs := t.subtasks
	t.mu.Unlock()

	out := TaskSnapshot{
		Name:         name,
		CurrentEvent: currentEvent,
		Result:       result,
		Active:       active,
		Failure:      failure,
		Warnings:     warnings,
	}
	for _, name := range opOrder {
		if op, ok := ops[name]; ok {
			out.Operations = append(out.Operations, op.snapshot())
		}
	}
	for _, name := range subOrder {
		if sub, ok := subs[name]; ok {
			out.Subtasks = append(out.Subtasks, sub.Snapshot())
		}
	}
	return out
}

// MarshalJSON encodes a TaskSnapshot with a fixed field order, so
// additional optional fields never shift earlier ones. Empty optional
// fields (no current event, no result, no warnings, no failure) are
// omitted rather than emitted as null/empty.
func (s TaskSnapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeField(&buf, true, "name", s.Name)
	first := false

	if s.CurrentEvent != "" {
		writeField(&buf, first, "current_event", s.CurrentEvent)
	}
	writeRawField(&buf, first, "operations", s.Operations)
	if s.Result != "" {
		writeField(&buf, first, "result", s.Result)
	}
	writeRawField(&buf, first, "subtasks", s.Subtasks)
	if len(s.Warnings) > 0 {
		writeRawField(&buf, first, "warnings", s.Warnings)
	}
	if s.Failure != nil {
		writeRawField(&buf, first, "failure", s.Failure)
	}
	writeBoolField(&buf, first, "active", s.Active)

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, first bool, key, value string) {
	if !first {
		buf.WriteByte(',')
	}
	kb, _ := json.Marshal(key)
	vb, _ := json.Marshal(value)
	buf.Write(kb)
	buf.WriteByte(':')
	buf.Write(vb)
}

func writeBoolField(buf *bytes.Buffer, first bool, key string, value bool) {
	if !first {
		buf.WriteByte(',')
	}
	kb, _ := json.Marshal(key)
	vb, _ := json.Marshal(value)
	buf.Write(kb)
	buf.WriteByte(':')
	buf.Write(vb)
}

func writeRawField(buf *bytes.Buffer, first bool, key string, value any) {
	if !first {
		buf.WriteByte(',')
	}
	kb, _ := json.Marshal(key)
	vb, _ := json.Marshal(value)
	buf.Write(kb)
	buf.WriteByte(':')
	buf.Write(vb)
}

// MarshalJSON encodes an OperationSnapshot's progress fields as a nested
// object with a fixed field order, omitting completed/total when unset.
func (s OperationSnapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeField(&buf, true, "name", s.Name)

	buf.WriteString(`,"progress":{`)
	progFirst := true
	if s.Progress.Completed != nil {
		writeNumberField(&buf, progFirst, "completed", *s.Progress.Completed)
		progFirst = false
	}
	if s.Progress.Total != nil {
		writeNumberField(&buf, progFirst, "total", *s.Progress.Total)
		progFirst = false
	}
	if s.Progress.Unit != "" {
		writeField(&buf, progFirst, "unit", s.Progress.Unit)
	}
	buf.WriteByte('}')

	writeBoolField(&buf, false, "active", s.Active)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeNumberField(buf *bytes.Buffer, first bool, key string, value float64) {
	if !first {
		buf.WriteByte(',')
	}
	kb, _ := json.Marshal(key)
	vb, _ := json.Marshal(value)
	buf.Write(kb)
	buf.WriteByte(':')
	buf.Write(vb)
}

// MarshalJSON encodes a Warning with params omitted when nil.
func (w Warning) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeField(&buf, true, "category", w.Category)
	if len(w.Params) > 0 {
		writeRawField(&buf, false, "params", w.Params)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
