package build

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/cruciblehq/cibox/internal/manifest"
	"github.com/cruciblehq/cibox/internal/source"
	"github.com/google/shlex"
)

// Runs one build configuration against a source tree.
//
// The base image is made available and a sandbox is provisioned from it with
// the configuration's environment. Local sources are bind mounted at the
// sandbox working directory; other sources are archived and unpacked into
// it. The stage pipeline then runs in the sandbox.
//
// Errors raised before the sandbox exists are returned. Once the sandbox is
// held, any error is logged and reported as [StatusErrored] in the result,
// and the sandbox is destroyed on every path, even after ctx is cancelled.
func Execute(ctx context.Context, prov Provisioner, src source.Provider, cfg manifest.Config, log *slog.Logger) (*Result, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	env, err := shlex.Split(cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnvironment, err)
	}

	log.Info(fmt.Sprintf("preparing to run tests in %s", cfg.Image), "variant", cfg.Label())

	image, err := prov.EnsureImage(ctx, cfg.Image)
	if err != nil {
		return nil, err
	}

	sbx, err := prov.Provision(ctx, image, src.Workdir(), env)
	if err != nil {
		return nil, err
	}
	defer sbx.Destroy(context.WithoutCancel(ctx))

	result, err := run(ctx, sbx, src, cfg, log)
	if err != nil {
		log.Error("an error occurred", "error", err)
		return &Result{Status: StatusErrored, Err: err}, nil
	}
	return result, nil
}

// Populates the sandbox when needed and runs the pipeline.
func run(ctx context.Context, sbx Sandbox, src source.Provider, cfg manifest.Config, log *slog.Logger) (*Result, error) {
	if src.Workdir() == "" {
		if err := inject(ctx, sbx, src); err != nil {
			return nil, err
		}
	}
	return NewPipeline(sbx, log).Run(ctx, cfg)
}

// Unpacks the source archive into the sandbox working directory.
//
// The archive is read in full before it is sent so that a source failure is
// reported as such rather than as a failed extraction.
func inject(ctx context.Context, sbx Sandbox, src source.Provider) error {
	rc, err := src.Archive(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInject, err)
	}
	data, err := io.ReadAll(rc)
	if cerr := rc.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInject, err)
	}

	if err := sbx.CopyTo(ctx, bytes.NewReader(data), sbx.Workdir()); err != nil {
		return fmt.Errorf("%w: %w", ErrInject, err)
	}
	return nil
}
