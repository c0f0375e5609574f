package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/containerd/containerd/v2/core/images"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Frames cycled by the pull spinner.
const spinnerFrames = ".oO@* "

// Reports image pull progress.
//
// Each blob visited by the pull is logged at debug level and, when a terminal
// is attached, shown on a single rewritten status line. Reporting never fails
// the pull: write errors are ignored. Handlers run concurrently during a
// pull, so reporting is serialized.
type progress struct {
	mu    sync.Mutex
	out   io.Writer
	log   *slog.Logger
	frame int
	shown bool
}

func newProgress(out io.Writer, log *slog.Logger) *progress {
	return &progress{out: out, log: log}
}

// Returns an image handler that reports every descriptor it is given.
//
// The handler returns no children, so it only observes the pull.
func (p *progress) handler() images.Handler {
	return images.HandlerFunc(func(ctx context.Context, desc ocispec.Descriptor) ([]ocispec.Descriptor, error) {
		p.report(desc)
		return nil, nil
	})
}

func (p *progress) report(desc ocispec.Descriptor) {
	status := fmt.Sprintf("fetching %s %s", blobKind(desc.MediaType), shortDigest(desc.Digest))
	p.log.Debug(status, "size", desc.Size)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.out == nil {
		return
	}
	frame := spinnerFrames[p.frame%len(spinnerFrames)]
	p.frame++
	p.shown = true
	fmt.Fprintf(p.out, "\033[1K\r[%c] %s", frame, status)
}

// Terminates the status line.
func (p *progress) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out != nil && p.shown {
		fmt.Fprintln(p.out)
	}
}

// Classifies a blob by media type.
func blobKind(mediaType string) string {
	switch {
	case images.IsIndexType(mediaType):
		return "index"
	case images.IsManifestType(mediaType):
		return "manifest"
	case images.IsConfigType(mediaType):
		return "config"
	case images.IsLayerType(mediaType):
		return "layer"
	default:
		return "blob"
	}
}

// Returns the first 12 hex characters of a digest.
func shortDigest(d digest.Digest) string {
	if d.Validate() != nil {
		return string(d)
	}
	enc := d.Encoded()
	if len(enc) > 12 {
		return enc[:12]
	}
	return enc
}
