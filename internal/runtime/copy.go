package runtime

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Creates a directory inside the container, including parents.
func (c *Container) MkdirAll(ctx context.Context, path string) error {
	return c.mustExec(ctx, "mkdir", nil, "mkdir", "-p", path)
}

// Copies a tar stream into the container's filesystem.
//
// The contents of r are extracted into destDir by piping them to "tar xf - -C
// destDir" inside the container. Ownership recorded in the archive is not
// restored.
func (c *Container) CopyTo(ctx context.Context, r io.Reader, destDir string) error {
	return c.mustExec(ctx, "tar extract", r, "tar", "xf", "-", "--no-same-owner", "-C", destDir)
}

// Runs a command inside the container and fails if it exits non-zero. The
// error names desc and carries the command's standard error.
func (c *Container) mustExec(ctx context.Context, desc string, stdin io.Reader, args ...string) error {
	exitCode, stderr, err := c.execCommand(ctx, stdin, nil, args...)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return fmt.Errorf("%w: %s failed with exit code %d (%s)", ErrRuntime, desc, exitCode, strings.TrimSpace(stderr))
	}
	return nil
}

// Wraps an [io.Reader] and signals when it returns [io.EOF].
//
// The done channel is closed exactly once on the first EOF.
type eofNotifier struct {
	r    io.Reader
	once sync.Once
	done chan struct{}
}

func newEOFNotifier(r io.Reader) *eofNotifier {
	return &eofNotifier{r: r, done: make(chan struct{})}
}

func (n *eofNotifier) Read(p []byte) (int, error) {
	c, err := n.r.Read(p)
	if err == io.EOF {
		n.once.Do(func() { close(n.done) })
	}
	return c, err
}
