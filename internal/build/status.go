package build

// Outcome of a build.
type Status string

const (
	StatusPassed  Status = "passed"  // The script stage succeeded.
	StatusFailed  Status = "failed"  // The script stage failed.
	StatusErrored Status = "errored" // The build could not complete.
)

// Returns the process exit code reported for the status.
func (s Status) ExitCode() int {
	switch s {
	case StatusPassed:
		return 0
	case StatusFailed:
		return 1
	default:
		return 2
	}
}

// Returned after a build has run.
type Result struct {
	Status Status // Outcome of the build.
	Err    error  // Cause of a failed or errored build.
}
