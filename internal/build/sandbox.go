package build

import (
	"context"
	"io"
	"log/slog"

	"github.com/cruciblehq/cibox/internal/runtime"
)

// Runs shell command lines.
type Runner interface {

	// Runs a command line and streams its output to log. A nonzero exit is
	// reported as a [*runtime.ScriptExecutionError].
	Run(ctx context.Context, log *slog.Logger, command string) error
}

// An isolated environment builds run in.
type Sandbox interface {
	Runner

	// Unpacks a tar stream into dir.
	CopyTo(ctx context.Context, r io.Reader, dir string) error

	// Working directory every command runs in.
	Workdir() string

	// Releases the sandbox. Failures are logged, not returned.
	Destroy(ctx context.Context)
}

// Creates sandboxes.
type Provisioner interface {

	// Makes an image available locally and returns the name to provision it by.
	EnsureImage(ctx context.Context, ref string) (string, error)

	// Starts a sandbox from image. A non-empty bind is a host directory
	// mounted at the working directory.
	Provision(ctx context.Context, image, bind string, env []string) (Sandbox, error)
}

// Adapts a containerd runtime to [Provisioner].
func FromRuntime(rt *runtime.Runtime) Provisioner {
	return runtimeProvisioner{rt}
}

type runtimeProvisioner struct {
	rt *runtime.Runtime
}

func (p runtimeProvisioner) EnsureImage(ctx context.Context, ref string) (string, error) {
	return p.rt.EnsureImage(ctx, ref)
}

func (p runtimeProvisioner) Provision(ctx context.Context, image, bind string, env []string) (Sandbox, error) {
	ctr, err := p.rt.Provision(ctx, image, bind, env)
	if err != nil {
		return nil, err
	}
	return ctr, nil
}
