package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cruciblehq/cibox/internal/paths"
	"github.com/cruciblehq/cibox/internal/procstream"
)

// Git binary used for all remote operations.
const gitBinary = "git"

// A source tree at one revision of a remote git repository.
//
// Objects are fetched into a local bare mirror that is shared between
// invocations. The mirror only ever gains objects, but concurrent invocations
// against the same mirror are not coordinated.
type Remote struct {
	url    string
	ref    string
	rev    string
	gitDir string
	log    *slog.Logger
}

// Resolves a ref on a remote repository and fetches it into the mirror.
//
// The ref is resolved to a revision id with "git ls-remote", the mirror is
// created on first use, and only the ref is fetched. Failures are reported as
// [ErrRemote].
func NewRemote(ctx context.Context, url, ref string, opts Options) (*Remote, error) {
	if ref == "" {
		ref = DefaultRef
	}

	gitDir := opts.MirrorDir
	if gitDir == "" {
		gitDir = paths.Mirror()
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	r := &Remote{url: url, ref: ref, gitDir: gitDir, log: log}

	if err := r.resolve(ctx); err != nil {
		return nil, err
	}
	if err := r.ensureMirror(ctx); err != nil {
		return nil, err
	}
	if err := r.fetch(ctx); err != nil {
		return nil, err
	}

	return r, nil
}

// Resolved revision id.
func (r *Remote) Revision() string {
	return r.rev
}

// Streams one file's content at the resolved revision.
//
// A missing path makes "git show" exit nonzero, which surfaces as
// [ErrNotFound] from the returned reader.
func (r *Remote) ReadFile(ctx context.Context, name string) (io.ReadCloser, error) {
	s, err := r.git(ctx, "show", r.rev+":"+name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemote, err)
	}
	return &mappedStream{s: s, class: ErrNotFound, what: name}, nil
}

// Streams a tar snapshot of the tree at the resolved revision.
//
// A failing "git archive" surfaces as [ErrRemote] from the returned reader.
func (r *Remote) Archive(ctx context.Context) (io.ReadCloser, error) {
	r.log.Debug("archiving revision", "rev", r.rev)

	s, err := r.git(ctx, "archive", "--format=tar", r.rev)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemote, err)
	}
	return &mappedStream{s: s, class: ErrRemote, what: r.rev}, nil
}

// Remote sources are never bind-mounted.
func (r *Remote) Workdir() string {
	return ""
}

func (r *Remote) String() string {
	return fmt.Sprintf("%s#%s (%s)", r.url, r.ref, shortRev(r.rev))
}

// Looks up the revision the ref currently points to.
func (r *Remote) resolve(ctx context.Context) error {
	r.log.Debug("looking for ref in remote repository", "url", r.url, "ref", r.ref)

	s, err := procstream.Start(ctx, r.log, gitBinary, "ls-remote", r.url, r.ref)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRemote, err)
	}

	out, err := io.ReadAll(s)
	if err != nil {
		return fmt.Errorf("%w: ls-remote %s: %w", ErrRemote, r.url, err)
	}

	rev, ok := parseLsRemote(out)
	if !ok {
		return fmt.Errorf("%w: ref %q not found in %s", ErrRemote, r.ref, r.url)
	}

	r.rev = rev
	return nil
}

// Creates the bare mirror unless it already exists.
func (r *Remote) ensureMirror(ctx context.Context) error {
	if _, err := os.Stat(r.gitDir); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrRemote, err)
	}

	if err := os.MkdirAll(filepath.Dir(r.gitDir), paths.DefaultDirMode); err != nil {
		return fmt.Errorf("%w: %w", ErrRemote, err)
	}

	r.log.Debug("creating mirror", "path", r.gitDir)
	return r.drain(ctx, "init", "--bare", "--quiet", r.gitDir)
}

// Fetches the resolved revision into the mirror.
//
// Servers that refuse to serve a revision by id are asked for the ref
// instead. Either way the revision must be present in the mirror afterwards;
// a ref that moved to unrelated history in the meantime fails with
// [ErrRemote].
func (r *Remote) fetch(ctx context.Context) error {
	r.log.Info("fetching revision", "url", r.url, "ref", r.ref, "rev", shortRev(r.rev))

	if err := r.drain(ctx, "--git-dir", r.gitDir, "fetch", "--no-tags", "--quiet", r.url, r.rev); err != nil {
		r.log.Debug("fetch by revision refused, fetching ref", "ref", r.ref, "error", err)
		if err := r.drain(ctx, "--git-dir", r.gitDir, "fetch", "--no-tags", "--quiet", r.url, r.ref); err != nil {
			return err
		}
	}

	if err := r.drain(ctx, "--git-dir", r.gitDir, "cat-file", "-e", r.rev+"^{commit}"); err != nil {
		return fmt.Errorf("revision %s missing after fetch from %s: %w", shortRev(r.rev), r.url, err)
	}
	return nil
}

// Runs a git command to completion, discarding its output.
func (r *Remote) drain(ctx context.Context, args ...string) error {
	s, err := procstream.Start(ctx, r.log, append([]string{gitBinary}, args...)...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRemote, err)
	}
	if _, err := io.Copy(io.Discard, s); err != nil {
		return fmt.Errorf("%w: %w", ErrRemote, err)
	}
	return nil
}

// Starts a git command against the mirror.
func (r *Remote) git(ctx context.Context, args ...string) (*procstream.Stream, error) {
	argv := append([]string{gitBinary, "--git-dir", r.gitDir}, args...)
	return procstream.Start(ctx, r.log, argv...)
}

// Extracts the revision from the first line of "git ls-remote" output.
func parseLsRemote(out []byte) (string, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if !scanner.Scan() {
		return "", false
	}
	rev, _, _ := strings.Cut(scanner.Text(), "\t")
	rev = strings.TrimSpace(rev)
	return rev, rev != ""
}

func shortRev(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// Reader over a git stream that reclassifies a nonzero exit.
type mappedStream struct {
	s     *procstream.Stream
	class error
	what  string
}

func (m *mappedStream) Read(p []byte) (int, error) {
	n, err := m.s.Read(p)
	return n, m.mapErr(err)
}

func (m *mappedStream) Close() error {
	return m.mapErr(m.s.Close())
}

func (m *mappedStream) mapErr(err error) error {
	var failed *procstream.CommandFailedError
	if errors.As(err, &failed) {
		return fmt.Errorf("%w: %s: %w", m.class, m.what, err)
	}
	return err
}
