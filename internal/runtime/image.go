package runtime

import (
	"context"
	"fmt"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/errdefs"
	"github.com/distribution/reference"
)

// Makes an image available locally and returns its normalized name.
//
// Short references are normalized the way the Docker CLI does it
// ("python:3.12" becomes "docker.io/library/python:3.12"). If the image is
// already present it is unpacked into the snapshotter when needed; otherwise
// it is pulled for the runtime platform, with per-blob progress reported to
// the logger and the progress terminal.
func (rt *Runtime) EnsureImage(ctx context.Context, ref string) (string, error) {
	name, err := normalizeRef(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrImage, err)
	}

	img, err := rt.resolveImage(ctx, name)
	switch {
	case err == nil:
		rt.log.Debug("image present", "image", name)
		return name, rt.unpack(ctx, img)
	case !errdefs.IsNotFound(err):
		return "", fmt.Errorf("%w: %w", ErrImage, err)
	}

	rt.log.Info("pulling image from registry", "image", name, "platform", rt.platform)

	p := newProgress(rt.progress, rt.log)
	defer p.done()

	_, err = rt.client.Pull(ctx, name,
		containerd.WithPlatform(rt.platform),
		containerd.WithPullUnpack,
		containerd.WithPullSnapshotter(rt.snapshotter),
		containerd.WithImageHandler(p.handler()),
	)
	if err != nil {
		return "", fmt.Errorf("%w: pull %s: %w", ErrImage, name, err)
	}

	return name, nil
}

// Unpacks an image into the snapshotter unless already unpacked.
func (rt *Runtime) unpack(ctx context.Context, img containerd.Image) error {
	ok, err := img.IsUnpacked(ctx, rt.snapshotter)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrImage, err)
	}
	if ok {
		return nil
	}
	if err := img.Unpack(ctx, rt.snapshotter); err != nil {
		return fmt.Errorf("%w: unpack %s: %w", ErrImage, img.Name(), err)
	}
	return nil
}

// Expands a short image reference to its canonical form, adding the
// "latest" tag when no tag or digest is given.
func normalizeRef(ref string) (string, error) {
	named, err := reference.ParseDockerRef(ref)
	if err != nil {
		return "", err
	}
	return named.String(), nil
}
