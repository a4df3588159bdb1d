package tracker

import (
	"encoding/json"
	"testing"
	"time"
)

func TestStringRendersEventAndActiveOperations(t *testing.T) {
	task := New("build")
	task.Event("compiling", time.Time{})
	op := task.Operation("files")
	if err := op.Update(3.0, 10.0, "files", false); err != nil {
		t.Fatalf("update: %v", err)
	}

	got := task.String()
	want := "build: compiling | files 3/10 files (30%)"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestStringPrefersResultOverEvent(t *testing.T) {
	task := New("build")
	task.Event("compiling", time.Time{})
	task.Result("OK")

	if got, want := task.String(), "build: OK"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestStringJoinsActiveSubtasksOnly(t *testing.T) {
	root := New("pipeline")
	a := root.Task("fetch")
	a.Event("downloading", time.Time{})
	b := root.Task("build")
	b.Event("compiling", time.Time{})
	b.Deactivate()

	got := root.String()
	want := "pipeline: / fetch: downloading"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestUpdateProgressIncrement(t *testing.T) {
	op := newOperation("copy", func() {})
	if err := op.Update(1.0, 10.0, "files", false); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := op.Update(2.0, nil, "", true); err != nil {
		t.Fatalf("increment: %v", err)
	}
	p := op.Progress()
	if *p.Completed != 3 {
		t.Errorf("completed = %v, want 3", *p.Completed)
	}
	if pct, ok := p.PctDone(); !ok || pct != 0.3 {
		t.Errorf("pct = %v, %v, want 0.3, true", pct, ok)
	}
}

func TestSnapshotRoundTripsThroughJSON(t *testing.T) {
	root := New("pipeline")
	root.Event("running", time.Time{})
	op := root.Operation("bytes")
	if err := op.Update("5MB", "10MB", "", false); err != nil {
		t.Fatalf("update: %v", err)
	}
	root.Warning(Warning{Category: "slow", Params: map[string]string{"seconds": "12"}})
	sub := root.Task("child")
	sub.Result("FAILED")
	sub.Failure("timeout", "deadline exceeded")

	snap := root.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded TaskSnapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	data2, err := json.Marshal(decoded)
	if err != nil {
		t.Fatalf("remarshal: %v", err)
	}
	if string(data) != string(data2) {
		t.Errorf("round trip mismatch:\n%s\nvs\n%s", data, data2)
	}
	if decoded.Subtasks[0].Failure == nil || decoded.Subtasks[0].Failure.Class != "timeout" {
		t.Errorf("failure not round-tripped: %+v", decoded.Subtasks[0].Failure)
	}
}
