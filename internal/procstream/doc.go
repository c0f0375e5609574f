// Package procstream wraps external processes as readable streams.
//
// A [Stream] exposes a process's primary output channel as an [io.Reader]
// while logging its diagnostic channel as lines arrive. The exit status is
// only inspected once the primary channel is exhausted: a stream moves from
// [Running] to [Draining] on end of output and to [Finished] once the exit
// status is known. A nonzero status surfaces as a [*CommandFailedError] from
// every read after that point, so callers drain to empty to force the check.
//
// The same semantics serve host commands such as git, via [Start], and
// processes running inside a sandbox, via [New].
//
// Example usage:
//
//	s, err := procstream.Start(ctx, log, "git", "ls-remote", url, "master")
//	if err != nil {
//	    return err
//	}
//
//	out, err := io.ReadAll(s)
//	if err != nil {
//	    return err // *CommandFailedError on nonzero exit
//	}
package procstream
