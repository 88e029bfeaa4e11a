package supervisor

import (
	"errors"
	"fmt"
)

// ErrEmptyCommand is returned when a step's command string parses to nothing.
var ErrEmptyCommand = errors.New("empty command")

// ExitError reports a command that exited with a non-zero code.
type ExitError struct {
	// Code is the command's exit code.
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command exited with code %d", e.Code)
}
