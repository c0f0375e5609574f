package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/cruciblehq/cibox/internal"
	"github.com/cruciblehq/cibox/internal/paths"
	"github.com/cruciblehq/cibox/internal/settings"
)

// Represents the root command for cibox.
var RootCmd struct {
	Quiet   bool       `short:"q" help:"Suppress informational output."`
	Verbose bool       `short:"v" help:"Include source locations in log output."`
	Debug   bool       `short:"d" help:"Enable debug output."`
	Config  string     `short:"c" help:"Read settings from this file." type:"path" placeholder:"FILE"`
	Run     RunCmd     `cmd:"" default:"withargs" help:"Run a build (default)."`
	Matrix  MatrixCmd  `cmd:"" help:"List the build variations of a source."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Returned by a command that must end the process with a specific code.
type ExitError struct {
	Code int   // Process exit code.
	Err  error // Cause, if any. Already reported when nil.
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Parses arguments, configures logging, loads settings, and runs the
// selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("A minimal CI runner.\n\nRuns the build file of a local directory or git repository in a containerd sandbox."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	log := configureLogger()

	s, err := loadSettings()
	if err != nil {
		return err
	}

	kongCtx.Bind(&s, log)

	return kongCtx.Run()
}

// Reconfigures the global logger from CLI flags merged over build-time modes.
func configureLogger() *slog.Logger {
	modes := internal.DefaultModes().Merge(internal.Modes{
		Quiet:   RootCmd.Quiet,
		Debug:   RootCmd.Debug,
		Verbose: RootCmd.Verbose,
	})

	log := NewLogger(os.Stderr, modes)
	slog.SetDefault(log)
	return log
}

// Loads settings from the file named by --config or the default location.
func loadSettings() (settings.Settings, error) {
	if RootCmd.Config != "" {
		return settings.Load(RootCmd.Config, true)
	}
	return settings.Load(paths.ConfigFile(), false)
}

// Exit code carried by err, or 1.
func ExitCode(err error) int {
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	return 1
}
