package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/platforms"
	"github.com/google/uuid"
)

const (

	// Default containerd socket address.
	DefaultAddress = "/run/containerd/containerd.sock"

	// Default containerd namespace for images and containers.
	DefaultNamespace = "cibox"

	// Default snapshotter used for container filesystems.
	DefaultSnapshotter = "overlayfs"

	// Default shell commands are passed to.
	DefaultShell = "/bin/bash"

	// Default working directory inside the sandbox.
	DefaultWorkdir = "/cibox"

	// OCI runtime shim for running containers.
	ociRuntime = "io.containerd.runc.v2"

	// Prefix of every container ID created by the runtime.
	containerPrefix = "cibox-"
)

// Tunes how sandboxes are created. Zero values select the defaults.
type Options struct {
	Snapshotter string       // Snapshotter for container filesystems.
	Shell       string       // Shell used to run commands.
	Workdir     string       // Working directory inside the sandbox.
	Platform    string       // OCI platform (e.g., "linux/amd64"). Defaults to the host.
	Logger      *slog.Logger // Logger for runtime events and command output.
	Progress    io.Writer    // Terminal for pull progress. Nil disables the spinner.
}

// Manages the containerd client and provisions sandboxes.
type Runtime struct {
	client      *containerd.Client // Containerd client for managing containers and images.
	snapshotter string
	shell       string
	workdir     string
	platform    string
	log         *slog.Logger
	progress    io.Writer
}

// Creates a runtime connected to the containerd socket at the given address.
//
// The namespace scopes all containerd operations to a single tenant. The
// runtime must be closed when no longer needed.
func New(address, namespace string, opts Options) (*Runtime, error) {
	if address == "" {
		address = DefaultAddress
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	client, err := containerd.New(address, containerd.WithDefaultNamespace(namespace))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	rt := &Runtime{
		client:      client,
		snapshotter: orDefault(opts.Snapshotter, DefaultSnapshotter),
		shell:       orDefault(opts.Shell, DefaultShell),
		workdir:     orDefault(opts.Workdir, DefaultWorkdir),
		platform:    orDefault(opts.Platform, platforms.DefaultString()),
		log:         opts.Logger,
		progress:    opts.Progress,
	}
	if rt.log == nil {
		rt.log = slog.New(slog.DiscardHandler)
	}

	return rt, nil
}

// Closes the containerd client connection.
func (rt *Runtime) Close() error {
	return rt.client.Close()
}

// Creates and starts a sandbox from a local image.
//
// The container runs a long-lived "sleep infinity" task so that commands can
// be executed against it. When bind is non-empty the host directory is
// mounted read-write at the sandbox working directory; otherwise the working
// directory is created empty and the caller injects the source with
// [Container.CopyTo]. The environment is applied to every command run in the
// sandbox.
//
// The image must already be present; see [Runtime.EnsureImage]. If startup
// fails after the container was created it is destroyed before returning.
func (rt *Runtime) Provision(ctx context.Context, image, bind string, env []string) (*Container, error) {
	img, err := rt.resolveImage(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	c := &Container{
		client:   rt.client,
		id:       containerPrefix + uuid.NewString(),
		platform: rt.platform,
		shell:    rt.shell,
		workdir:  rt.workdir,
		env:      env,
		log:      rt.log,
	}

	ctr, err := c.create(ctx, img, rt.snapshotter, bind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := c.startTask(ctx, ctr); err != nil {
		ctr.Delete(ctx, containerd.WithSnapshotCleanup)
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if bind == "" {
		if err := c.MkdirAll(ctx, c.workdir); err != nil {
			c.Destroy(ctx)
			return nil, err
		}
	}

	rt.log.Debug("container started", "id", c.id, "image", image, "bind", bind)
	return c, nil
}

// Looks up a local image and selects the manifest for the runtime platform.
func (rt *Runtime) resolveImage(ctx context.Context, name string) (containerd.Image, error) {
	p, err := platforms.Parse(rt.platform)
	if err != nil {
		return nil, err
	}

	img, err := rt.client.ImageService().Get(ctx, name)
	if err != nil {
		return nil, err
	}

	return containerd.NewImageWithPlatform(rt.client, img, platforms.Only(p)), nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Whether the given file is an interactive terminal.
func IsTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
