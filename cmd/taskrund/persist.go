package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"taskrun/internal/phase"
	"taskrun/internal/runsnap"
)

// snapshotStore durably persists one JSON file per run under
// <baseDir>/runs/<job-id>/<run-id>.json: every write goes to a temp file
// in the same directory, fsynced, renamed over the target, then the
// directory itself is fsynced so the rename survives a crash.
type snapshotStore struct {
	baseDir string
}

func newSnapshotStore(baseDir string) *snapshotStore {
	return &snapshotStore{baseDir: baseDir}
}

type persistedRun struct {
	JobID     string            `json:"job_id"`
	RunID     string            `json:"run_id"`
	State     string            `json:"state"`
	ChangedAt time.Time         `json:"changed_at"`
	Lifecycle []persistedChange `json:"lifecycle"`
	ExecError string            `json:"exec_error,omitempty"`
	Warnings  map[string]int    `json:"warnings,omitempty"`
}

type persistedChange struct {
	State string    `json:"state"`
	At    time.Time `json:"at"`
}

// Observe matches runner.StateObserverFunc; register via AddStateObserver
// to persist a fresh snapshot on every committed transition.
func (s *snapshotStore) Observe(prev, next phase.State, at time.Time, snap *runsnap.Snapshot) {
	_ = prev
	rec := persistedRun{
		JobID:     snap.JobID(),
		RunID:     snap.RunID(),
		State:     next.String(),
		ChangedAt: at,
		Warnings:  snap.Warnings,
	}
	if snap.ExecError != nil {
		rec.ExecError = snap.ExecError.Error()
	}
	for _, t := range snap.Lifecycle {
		rec.Lifecycle = append(rec.Lifecycle, persistedChange{State: t.State.String(), At: t.At})
	}
	if err := s.save(rec); err != nil {
		fmt.Fprintf(os.Stderr, "persist: %s/%s: %v\n", rec.JobID, rec.RunID, err)
	}
}

func (s *snapshotStore) runPath(jobID, runID string) string {
	return filepath.Join(s.baseDir, "runs", jobID, runID+".json")
}

func (s *snapshotStore) save(rec persistedRun) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return writeFileAtomicDurable(s.runPath(rec.JobID, rec.RunID), data, 0o644)
}

func writeFileAtomicDurable(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return fsyncDir(dir)
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
