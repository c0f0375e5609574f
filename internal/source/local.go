package source

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// A source tree in a host directory.
type Local struct {
	dir  string
	bind bool
	log  *slog.Logger
}

// Opens a local directory as a source tree.
func NewLocal(dir string, opts Options) (*Local, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLocation, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrLocation, dir)
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Local{dir: dir, bind: opts.Bind, log: log}, nil
}

// Opens a file relative to the source directory.
func (l *Local) ReadFile(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(l.dir, filepath.FromSlash(name)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return f, nil
}

// Streams the directory as a tar archive rooted at the directory itself.
//
// The archive is produced by a goroutine writing into a pipe; a write failure
// surfaces as an error from the returned reader.
func (l *Local) Archive(ctx context.Context) (io.ReadCloser, error) {
	l.log.Debug("archiving source", "dir", l.dir)

	pr, pw := io.Pipe()

	go func() {
		tw := tar.NewWriter(pw)
		err := writeDirToTar(tw, l.dir)
		if cerr := tw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	return pr, nil
}

// Returns the directory when bind mounts are enabled.
func (l *Local) Workdir() string {
	if l.bind {
		return l.dir
	}
	return ""
}

func (l *Local) String() string {
	return l.dir
}

// Writes a directory tree to a tar writer with paths relative to the root.
func writeDirToTar(tw *tar.Writer, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		return writeTarEntry(tw, path, filepath.ToSlash(rel), d)
	})
}

// Writes a single file, directory, or symlink entry to a tar writer.
func writeTarEntry(tw *tar.Writer, hostPath, archivePath string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	var link string
	if info.Mode()&fs.ModeSymlink != 0 {
		if link, err = os.Readlink(hostPath); err != nil {
			return err
		}
	}

	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	header.Name = archivePath

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	if !info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(hostPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(tw, f)
	return err
}
