package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	"github.com/cruciblehq/cibox/internal/procstream"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// Sequence counter for generating unique exec process identifiers.
var execSeq uint64

// Returns a unique exec process identifier.
func nextExecID() string {
	return fmt.Sprintf("exec-%d", atomic.AddUint64(&execSeq, 1))
}

// Exit status of a process, delivered once its output has been copied.
type exitResult struct {
	code int
	err  error
}

// Runs a command line through the sandbox shell.
//
// The command runs as "shell -c command" in the working directory with the
// sandbox environment. Standard output and standard error are combined and
// logged line by line at info level as they arrive; the exit status is
// inspected only after the output is exhausted. A nonzero status is returned
// as a [*ScriptExecutionError].
func (c *Container) Run(ctx context.Context, log *slog.Logger, command string) error {
	if log == nil {
		log = c.log
	}
	log.Info("executing", "command", command)

	argv := []string{c.shell, "-c", command}
	pspec, err := c.buildProcessSpec(ctx, argv...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	stream, err := c.startStream(ctx, pspec, log)
	if err != nil {
		return err
	}

	out := procstream.NewLogWriter(log, slog.LevelInfo)
	_, err = io.Copy(out, stream)
	out.Close()

	var failed *procstream.CommandFailedError
	switch {
	case errors.As(err, &failed):
		return &ScriptExecutionError{Command: command, ExitCode: failed.ExitCode}
	case err != nil:
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	return nil
}

// Starts a process whose combined output is exposed as a stream.
//
// Output is written into a pipe that is closed once the process has exited
// and containerd has finished copying its IO, so the stream reaches end of
// output only after the exit status is available.
func (c *Container) startStream(ctx context.Context, pspec *specs.Process, log *slog.Logger) (*procstream.Stream, error) {
	task, err := c.loadTask(ctx)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()

	process, err := task.Exec(ctx, nextExecID(), pspec, cio.NewCreator(
		cio.WithStreams(nil, pw, pw),
	))
	if err != nil {
		pw.Close()
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	done := make(chan exitResult, 1)
	go func() {
		code, err := awaitProcess(ctx, process, nil)
		pw.Close()
		done <- exitResult{code: code, err: err}
	}()

	return procstream.New(pspec.Args, pr, nil, func() (int, error) {
		r := <-done
		return r.code, r.err
	}, log), nil
}

// Builds an OCI process spec for running a command inside the container.
//
// The base values are copied from the container's own OCI spec. The sandbox
// environment is merged over the image environment and the working directory
// is set to the sandbox working directory.
func (c *Container) buildProcessSpec(ctx context.Context, args ...string) (*specs.Process, error) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		return nil, err
	}

	spec, err := ctr.Spec(ctx)
	if err != nil {
		return nil, err
	}

	pspec := *spec.Process
	pspec.Terminal = false
	pspec.Args = args
	pspec.Env = mergeEnv(pspec.Env, c.env)
	if c.workdir != "" {
		pspec.Cwd = c.workdir
	}

	return &pspec, nil
}

// Merges override env vars on top of a base env slice.
//
// Entries without "=" are dropped. Base order is preserved and new keys are
// appended in override order.
func mergeEnv(base, overrides []string) []string {
	index := make(map[string]int, len(base)+len(overrides))
	result := make([]string, 0, len(base)+len(overrides))

	for _, entries := range [][]string{base, overrides} {
		for _, entry := range entries {
			k, _, ok := strings.Cut(entry, "=")
			if !ok {
				continue
			}
			if i, seen := index[k]; seen {
				result[i] = entry
				continue
			}
			index[k] = len(result)
			result = append(result, entry)
		}
	}

	return result
}

// Runs a command inside the container, returning the exit code and captured
// stderr. A non-zero exit code is not treated as an error; the caller decides.
func (c *Container) execCommand(ctx context.Context, stdin io.Reader, stdout io.Writer, args ...string) (int, string, error) {
	pspec, err := c.buildProcessSpec(ctx, args...)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	task, err := c.loadTask(ctx)
	if err != nil {
		return 0, "", err
	}

	if stdout == nil {
		stdout = io.Discard
	}
	var stderr bytes.Buffer

	// Wrap stdin to detect when the reader returns EOF.
	var stdinDone <-chan struct{}
	if stdin != nil {
		nr := newEOFNotifier(stdin)
		stdin = nr
		stdinDone = nr.done
	}

	process, err := task.Exec(ctx, nextExecID(), pspec, cio.NewCreator(
		cio.WithStreams(stdin, stdout, &stderr),
	))
	if err != nil {
		return 0, "", fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	code, err := awaitProcess(ctx, process, stdinDone)
	if err != nil {
		return 0, "", err
	}
	return code, stderr.String(), nil
}

// Loads the container's running task.
func (c *Container) loadTask(ctx context.Context) (containerd.Task, error) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	task, err := ctr.Task(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	return task, nil
}

// Starts an exec process, waits for it to exit, and returns the exit code.
//
// If stdinDone is non-nil, the process stdin is closed when the channel fires
// so the exec process receives EOF; the containerd shim holds both ends of the
// stdin FIFO open and will not propagate EOF on its own. The process is always
// deleted before returning, which also waits for its IO to be copied.
func awaitProcess(ctx context.Context, process containerd.Process, stdinDone <-chan struct{}) (int, error) {
	statusC, err := process.Wait(ctx)
	if err != nil {
		process.Delete(ctx)
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := process.Start(ctx); err != nil {
		process.Delete(ctx)
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if stdinDone != nil {
		go func() {
			<-stdinDone
			process.CloseIO(ctx, containerd.WithStdinCloser)
		}()
	}

	exitStatus := <-statusC
	process.Delete(ctx)

	code, _, err := exitStatus.Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	return int(code), nil
}
