package runspec

// ID identifies a single run of a single job. JobID groups runs of the
// same job definition; RunID disambiguates concurrent or repeated runs of
// that job.
type ID struct {
	JobID string
	RunID string
}

// Param is a single named, user-supplied parameter a run was started with.
type Param struct {
	Name  string
	Value string
}

// Metadata is the immutable identity and configuration a Run is
// constructed with. It never changes after construction.
type Metadata struct {
	ID ID

	// Params are static parameters describing how the run's execution
	// should behave (interpreted by the Execution implementation).
	Params []Param

	// UserParams are free-form key/value pairs supplied by whatever
	// started the run, carried through to dispatch payloads verbatim.
	UserParams map[string]string

	// PendingGroup names the coordination group this run will join before
	// it is allowed to proceed, if any (e.g. a Serial or Parallel group
	// name). Empty means no coordination group.
	PendingGroup string
}

// Param looks up a static parameter by name.
func (m Metadata) Param(name string) (string, bool) {
	for _, p := range m.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}
