package step

import (
	"context"
	"errors"
)

// Sentinel errors returned by Spec validation.
var (
	// ErrMissingName is returned for a Spec with an empty name.
	ErrMissingName = errors.New("step has no name")

	// ErrMissingAction is returned for a Spec with neither a command nor a callback.
	ErrMissingAction = errors.New("step has no action")
)

// Func is a callback step action. It receives the pipeline's session
// context; callbacks that want to observe cancellation must check it
// themselves — the runner never aborts an in-process callback forcibly.
type Func func(ctx context.Context) error

// Spec is a single named unit of pipeline work. Exactly one of Run or
// Call should be set. Specs are created at configuration time and never
// mutated afterwards.
type Spec struct {
	// Name identifies the step in logs. Duplicate names across a
	// pipeline are permitted but discouraged; they are distinct log
	// identities only.
	Name string

	// Run is a shell command line executed by the process supervisor.
	Run string

	// Call is a callback invoked directly by the runner.
	Call Func
}

// Command returns a Spec that runs a shell command.
func Command(name, command string) Spec {
	return Spec{Name: name, Run: command}
}

// Callback returns a Spec that invokes fn in-process.
func Callback(name string, fn Func) Spec {
	return Spec{Name: name, Call: fn}
}

// Validate reports whether the Spec has a name and an action.
func (s Spec) Validate() error {
	if s.Name == "" {
		return ErrMissingName
	}
	if s.Run == "" && s.Call == nil {
		return ErrMissingAction
	}
	return nil
}

// ValidateAll validates every Spec in pipeline order and returns the
// first problem found. Order is preserved verbatim by the caller; this
// performs no reordering or deduplication.
func ValidateAll(specs []Spec) error {
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}
