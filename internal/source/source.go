package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
)

// Branch fetched when a remote location names none.
const DefaultRef = "master"

// Read access to the contents of a source tree.
type Provider interface {

	// Opens a file by its slash-separated path relative to the tree root.
	// A missing file is reported as [ErrNotFound].
	ReadFile(ctx context.Context, name string) (io.ReadCloser, error)

	// Streams the whole tree as a tar archive.
	Archive(ctx context.Context) (io.ReadCloser, error)

	// Host directory holding the tree, to be bind-mounted into the sandbox.
	// Empty when the contents must be injected with [Provider.Archive].
	Workdir() string

	// Human-readable description of the source.
	String() string
}

// Where a source tree comes from: a local directory or a remote git ref.
type Location struct {
	Path string // Absolute local directory. Empty for remote locations.
	URL  string // Remote repository URL without fragment.
	Ref  string // Branch or ref to resolve on the remote.
}

// Whether the location names a remote repository.
func (l Location) IsRemote() bool {
	return l.URL != ""
}

func (l Location) String() string {
	if l.IsRemote() {
		return l.URL + "#" + l.Ref
	}
	return l.Path
}

// Parses a source location.
//
// A location with a URL scheme is remote, written as
// "scheme://host/path#branch"; the branch defaults to [DefaultRef]. Anything
// else is a local path, made absolute.
func Parse(location string) (Location, error) {
	if location == "" {
		return Location{}, fmt.Errorf("%w: empty location", ErrLocation)
	}

	u, err := url.Parse(location)
	if err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		ref := u.Fragment
		if ref == "" {
			ref = DefaultRef
		}
		u.Fragment = ""
		u.RawFragment = ""
		return Location{URL: u.String(), Ref: ref}, nil
	}

	path, err := filepath.Abs(location)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %w", ErrLocation, err)
	}
	return Location{Path: path}, nil
}

// Controls how a [Provider] is opened.
type Options struct {
	MirrorDir string       // Bare git mirror used by remote sources.
	Bind      bool         // Whether local sources are bind-mounted rather than copied.
	Logger    *slog.Logger // Logger for git commands and diagnostics.
}

// Opens the provider matching the location.
//
// Remote locations are resolved and fetched before Open returns.
func Open(ctx context.Context, loc Location, opts Options) (Provider, error) {
	if loc.IsRemote() {
		return NewRemote(ctx, loc.URL, loc.Ref, opts)
	}
	return NewLocal(loc.Path, opts)
}
