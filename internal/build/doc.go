// Package build runs a resolved build configuration in a sandbox.
//
// A build provisions a sandbox from the configuration's image, makes the
// source tree available at its working directory, and runs the stage
// pipeline: before_install, install and before_script prepare the sandbox,
// script decides the outcome, after_success or after_failure follow it, and
// after_script always runs last. Commands of a stage run in order and the
// first failure ends the stage.
//
// Sandboxes are obtained through a [Provisioner], so the pipeline can be
// driven by the containerd runtime or by any other implementation.
//
// Example usage:
//
//	result, err := build.Execute(ctx, build.FromRuntime(rt), src, cfg, log)
//	if err != nil {
//	    return err
//	}
//	os.Exit(result.Status.ExitCode())
package build
