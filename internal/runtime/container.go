package runtime

import (
	"context"
	"log/slog"
	"syscall"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	"github.com/containerd/containerd/v2/pkg/oci"
	"github.com/containerd/errdefs"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// A running sandbox backed by containerd.
type Container struct {
	client   *containerd.Client // Containerd client for managing the container.
	id       string             // Unique identifier for the container, used as the containerd container ID.
	platform string             // OCI platform (e.g., "linux/amd64").
	shell    string             // Shell commands are passed to.
	workdir  string             // Working directory of every command.
	env      []string           // Environment applied to every command.
	log      *slog.Logger       // Logger for command output.
}

// Returns the containerd container ID.
func (c *Container) ID() string {
	return c.id
}

// Returns the working directory inside the sandbox.
func (c *Container) Workdir() string {
	return c.workdir
}

// Forcibly removes the container and its resources.
//
// The task is killed and the container is removed from containerd along
// with its snapshot. Failures are logged rather than returned so that
// teardown can run unconditionally. After destruction the handle is invalid.
func (c *Container) Destroy(ctx context.Context) {
	ctr, err := c.client.LoadContainer(ctx, c.id)
	if err != nil {
		if !errdefs.IsNotFound(err) {
			c.log.Warn("failed to load container for destruction", "id", c.id, "error", err)
		}
		return
	}

	if task, err := ctr.Task(ctx, nil); err == nil {
		task.Kill(ctx, syscall.SIGKILL)
		if _, err := task.Delete(ctx, containerd.WithProcessKill); err != nil && !errdefs.IsNotFound(err) {
			c.log.Warn("failed to delete task during destruction", "id", c.id, "error", err)
		}
	}

	if err := ctr.Delete(ctx, containerd.WithSnapshotCleanup); err != nil && !errdefs.IsNotFound(err) {
		c.log.Warn("failed to delete container during destruction", "id", c.id, "error", err)
		return
	}

	c.log.Debug("container destroyed", "id", c.id)
}

// Creates the containerd container with the sandbox configuration.
//
// A non-empty bind is mounted read-write at the working directory.
func (c *Container) create(ctx context.Context, image containerd.Image, snapshotter, bind string) (containerd.Container, error) {
	specOpts := []oci.SpecOpts{
		oci.WithDefaultSpecForPlatform(c.platform),
		oci.WithImageConfig(image),
		oci.WithHostNamespace(specs.NetworkNamespace),
		oci.WithHostResolvconf,
		oci.WithProcessArgs("sleep", "infinity"),
	}
	if bind != "" {
		specOpts = append(specOpts, oci.WithMounts([]specs.Mount{{
			Destination: c.workdir,
			Type:        "bind",
			Source:      bind,
			Options:     []string{"rbind", "rw"},
		}}))
	}

	return c.client.NewContainer(ctx, c.id,
		containerd.WithImage(image),
		containerd.WithSnapshotter(snapshotter),
		containerd.WithNewSnapshot(c.id, image),
		containerd.WithRuntime(ociRuntime, nil),
		containerd.WithNewSpec(specOpts...),
	)
}

// Starts the container's long-running task with no attached IO.
func (c *Container) startTask(ctx context.Context, ctr containerd.Container) error {
	task, err := ctr.NewTask(ctx, cio.NullIO)
	if err != nil {
		return err
	}
	if err := task.Start(ctx); err != nil {
		task.Delete(ctx)
		return err
	}
	return nil
}
