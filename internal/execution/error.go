package execution

import (
	"errors"
	"fmt"

	"taskrun/internal/phase"
)

// Sentinel kinds classifying why an Error was produced, in the style of
// dag.GraphError's Kind/Unwrap pairing.
var (
	// ErrExecutionFailed marks a typed, expected execution failure (the task
	// body itself reported an unsuccessful outcome).
	ErrExecutionFailed = errors.New("execution failed")
	// ErrExecutionPanic marks an unexpected failure wrapped by NewPanic (a
	// bug in the task body, not an expected outcome).
	ErrExecutionPanic = errors.New("unexpected execution error")
)

// Error is the typed execution error a runner attaches to a run that did
// not reach a successful terminal phase. It always carries the terminal
// phase.State that was (or will be) recorded. Message and Output are
// distinct: Message is the free-form reason the execution reported for
// its own failure (e.g. an exit status or a task-supplied string), while
// Output is the last captured stdout/stderr line at the time of failure,
// which may be empty even when Message is set. Grounded on taro's
// execution error carrying a message separate from its captured outputs.
type Error struct {
	Kind    error
	Phase   phase.State
	Message string
	// Output is the last captured output line at the time of failure, if
	// any was captured.
	Output string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Output != "":
		return fmt.Sprintf("%s: phase=%s message=%q output=%q", e.Kind, e.Phase, e.Message, e.Output)
	case e.Message != "":
		return fmt.Sprintf("%s: phase=%s message=%q", e.Kind, e.Phase, e.Message)
	case e.Output != "":
		return fmt.Sprintf("%s: phase=%s output=%q", e.Kind, e.Phase, e.Output)
	default:
		return fmt.Sprintf("%s: phase=%s", e.Kind, e.Phase)
	}
}

func (e *Error) Unwrap() error { return e.Kind }

// NewFailed builds an Error for an expected, reported execution failure.
// message is the failure's own free-form reason; output is the last
// captured output line at the time of failure, if any.
func NewFailed(p phase.State, message, output string) *Error {
	return &Error{Kind: ErrExecutionFailed, Phase: p, Message: message, Output: output}
}

// NewPanic wraps an unexpected panic/error recovered from a task body.
func NewPanic(p phase.State, cause error) *Error {
	return &Error{Kind: fmt.Errorf("%w: %w", ErrExecutionPanic, cause), Phase: p}
}
