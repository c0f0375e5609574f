package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/cruciblehq/cibox/internal"
	"github.com/cruciblehq/cibox/internal/cli"
)

// The entry point for cibox.
//
// Initializes logging, displays startup information, and executes the root
// command. If any error occurs during execution, it exits with a non-zero
// code; builds that fail or error carry their own code.
func main() {
	slog.SetDefault(cli.NewLogger(os.Stderr, internal.DefaultModes()))

	slog.Debug("build", "version", internal.VersionString())

	slog.Debug("cibox is running",
		"pid", os.Getpid(),
		"cwd", cwd(),
		"args", os.Args,
	)

	if err := cli.Execute(); err != nil {
		var exit *cli.ExitError
		if !errors.As(err, &exit) || exit.Err != nil {
			slog.Error(err.Error())
		}
		os.Exit(cli.ExitCode(err))
	}
}

// Returns the current working directory or "(unknown)".
func cwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "(unknown)"
	}
	return cwd
}
