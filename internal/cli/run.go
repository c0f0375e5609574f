package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cruciblehq/cibox/internal/build"
	"github.com/cruciblehq/cibox/internal/buildfile"
	"github.com/cruciblehq/cibox/internal/catalog"
	"github.com/cruciblehq/cibox/internal/manifest"
	"github.com/cruciblehq/cibox/internal/runtime"
	"github.com/cruciblehq/cibox/internal/settings"
	"github.com/cruciblehq/cibox/internal/source"
)

// Represents the 'cibox run' command.
type RunCmd struct {
	Source    string `arg:"" help:"Local directory or git URL (a #fragment selects the branch)."`
	MatrixID  int    `name:"matrix-id" help:"Index of the build variation to run." default:"-1" placeholder:"N"`
	Address   string `help:"Containerd socket address." placeholder:"PATH"`
	Namespace string `help:"Containerd namespace." placeholder:"NAME"`
	Defaults  string `help:"Glob of language defaults descriptors." placeholder:"GLOB"`
}

// Executes the run command.
//
// The build file is resolved into its build variations and the selected one
// runs in a sandbox. A failed build exits with 1 and an errored one with 2.
func (c *RunCmd) Run(ctx context.Context, s *settings.Settings, log *slog.Logger) error {
	settings.Override(&s.Containerd.Address, c.Address)
	settings.Override(&s.Containerd.Namespace, c.Namespace)
	settings.Override(&s.Defaults.Pattern, c.Defaults)

	src, configs, err := resolve(ctx, c.Source, s, log)
	if err != nil {
		return err
	}

	cfg, err := selectEntry(os.Stderr, configs, c.MatrixID)
	if err != nil {
		return err
	}

	rt, err := runtime.New(s.Containerd.Address, s.Containerd.Namespace, runtime.Options{
		Snapshotter: s.Containerd.Snapshotter,
		Shell:       s.Sandbox.Shell,
		Workdir:     s.Sandbox.Workdir,
		Logger:      log,
		Progress:    progressOutput(),
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := build.Execute(ctx, build.FromRuntime(rt), src, cfg, log)
	if err != nil {
		return err
	}

	switch result.Status {
	case build.StatusPassed:
		log.Info("build passed", "variant", cfg.Label())
		return nil
	case build.StatusFailed:
		log.Error("build failed", "variant", cfg.Label(), "error", result.Err)
	default:
		log.Error("build errored", "variant", cfg.Label(), "error", result.Err)
	}
	return &ExitError{Code: result.Status.ExitCode()}
}

// Opens the source at location and resolves its build file.
func resolve(ctx context.Context, location string, s *settings.Settings, log *slog.Logger) (source.Provider, []manifest.Config, error) {
	cat, err := loadCatalog(s.Defaults.Pattern)
	if err != nil {
		return nil, nil, err
	}

	loc, err := source.Parse(location)
	if err != nil {
		return nil, nil, err
	}

	src, err := source.Open(ctx, loc, source.Options{
		MirrorDir: s.Git.Mirror,
		Bind:      s.Sandbox.Bind,
		Logger:    log,
	})
	if err != nil {
		return nil, nil, err
	}

	configs, err := buildfile.Load(ctx, src, cat, log)
	if err != nil {
		return nil, nil, err
	}
	return src, configs, nil
}

// Loads descriptors matching pattern, or the built-in catalog when empty.
func loadCatalog(pattern string) (catalog.Catalog, error) {
	if pattern == "" {
		return catalog.Builtin()
	}
	return catalog.Load(pattern)
}

// Picks the build variation to run.
//
// A negative id selects the only variation; when there are several the
// count is reported to w and the process exits with 1.
func selectEntry(w io.Writer, configs []manifest.Config, id int) (manifest.Config, error) {
	if id < 0 {
		if len(configs) > 1 {
			fmt.Fprintf(w, "%d build variations specify which with --matrix-id\n", len(configs))
			return manifest.Config{}, &ExitError{Code: 1}
		}
		id = 0
	}
	if id >= len(configs) {
		return manifest.Config{}, fmt.Errorf("%w: matrix id %d out of range (%d variations)", ErrUsage, id, len(configs))
	}
	return configs[id], nil
}

// Terminal for pull progress, or nil when stdout is not one.
func progressOutput() io.Writer {
	if runtime.IsTerminal(os.Stdout) {
		return os.Stdout
	}
	return nil
}
