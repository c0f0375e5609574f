// Package runtime provisions build sandboxes backed by containerd.
//
// A [Runtime] connects to a containerd daemon. [Runtime.EnsureImage] makes a
// base image available locally, pulling it from its registry when missing,
// and [Runtime.Provision] starts a [Container] from it. The container runs an
// idle task; every command is executed against it through a shell, in a fixed
// working directory and with the build environment applied. Command output is
// streamed to the logger line by line while the command runs.
//
// The working directory is either bind mounted from the host or populated
// from a tar stream with [Container.CopyTo]. A container must be destroyed
// when no longer needed to release its task and snapshot.
//
// Example usage:
//
//	rt, err := runtime.New(runtime.DefaultAddress, runtime.DefaultNamespace, runtime.Options{})
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	image, err := rt.EnsureImage(ctx, "python:3.12")
//	if err != nil {
//	    return err
//	}
//
//	ctr, err := rt.Provision(ctx, image, "", []string{"CI=true"})
//	if err != nil {
//	    return err
//	}
//	defer ctr.Destroy(ctx)
//
//	if err := ctr.Run(ctx, log, "python --version"); err != nil {
//	    return err
//	}
package runtime
