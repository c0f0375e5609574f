package procstream

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrStart         = errors.New("failed to start command")
	ErrWait          = errors.New("failed to wait for command")
	ErrCommandFailed = errors.New("command failed")
)

// Returned by reads on a [Stream] whose command exited with a nonzero code.
type CommandFailedError struct {
	Argv     []string // Command line that was run.
	ExitCode int      // Exit code reported by the process.
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("command %q exited with code %d", strings.Join(e.Argv, " "), e.ExitCode)
}

// Unwraps to [ErrCommandFailed].
func (e *CommandFailedError) Unwrap() error {
	return ErrCommandFailed
}
