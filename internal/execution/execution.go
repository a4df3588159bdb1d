// Package execution defines the contract a task body implements so the
// runner can drive it through the phase lifecycle.
package execution

import (
	"context"

	"taskrun/internal/phase"
)

// OutputObserver receives a single line of output as it is produced.
// isError distinguishes stderr-like output from stdout-like output.
type OutputObserver func(line string, isError bool)

// Execution is a single unit of work the runner can drive to completion.
// Implementations are expected to be single-use: Execute is called at most
// once by the runner.
type Execution interface {
	// Execute runs the work to completion (or until ctx is cancelled) and
	// reports the terminal phase.State it reached. A non-nil error paired
	// with a non-terminal state is a programming error; a non-nil error
	// paired with a terminal state describes why that state was reached.
	Execute(ctx context.Context) (phase.State, error)

	// Stop requests cooperative early termination. It must not block, and
	// must be safe to call before Execute, during it, or after it returns.
	Stop()

	// Interrupted reports whether Stop was requested.
	Interrupted() bool

	AddOutputObserver(o OutputObserver)
	RemoveOutputObserver(o OutputObserver)
}

// Param is a single named execution parameter, surfaced for display and
// dispatch payloads.
type Param struct {
	Name  string
	Value string
}

// ParameterizedExecution is an optional capability: implementations that
// also satisfy it expose their parameters for tracker/dispatch rendering.
// Probed via a type assertion, matching the optional-field style used
// elsewhere in the ambient stack instead of extending the required
// interface.
type ParameterizedExecution interface {
	Parameters() []Param
}
