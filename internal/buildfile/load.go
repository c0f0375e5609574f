package buildfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cruciblehq/cibox/internal/catalog"
	"github.com/cruciblehq/cibox/internal/manifest"
	"github.com/cruciblehq/cibox/internal/source"
)

// Build file names, in the order they are looked up.
var Candidates = []string{".cibox.yml", ".travis.yml"}

// Finds the build file in a source tree and resolves it.
//
// Candidates are tried in order; a missing candidate moves on to the next.
// The first file found is resolved with [Resolve]. Fails with
// [ErrConfigNotFound] if no candidate exists.
func Load(ctx context.Context, src source.Provider, cat catalog.Catalog, log *slog.Logger) ([]manifest.Config, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	for _, name := range Candidates {
		log.Debug("looking for build file", "name", name)

		raw, err := readAll(ctx, src, name)
		if errors.Is(err, source.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		configs, err := Resolve(raw, cat)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		log.Debug("build file resolved", "name", name, "entries", len(configs))
		return configs, nil
	}

	return nil, fmt.Errorf("%w in %s (tried %v)", ErrConfigNotFound, src, Candidates)
}

func readAll(ctx context.Context, src source.Provider, name string) ([]byte, error) {
	rc, err := src.ReadFile(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}
