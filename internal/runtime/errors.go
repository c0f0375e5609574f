package runtime

import (
	"errors"
	"fmt"
)

var (
	ErrRuntime = errors.New("runtime error")
	ErrImage   = errors.New("image error")
)

// A command run in the sandbox exited with a nonzero status.
type ScriptExecutionError struct {
	Command  string // Command line passed to the shell.
	ExitCode int    // Exit status of the shell.
}

func (e *ScriptExecutionError) Error() string {
	return fmt.Sprintf("command %q exited with %d", e.Command, e.ExitCode)
}
