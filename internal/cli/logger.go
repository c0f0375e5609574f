package cli

import (
	"io"
	"log/slog"

	"github.com/cruciblehq/cibox/internal"
)

// Creates a text logger writing to w at the level selected by modes.
//
// Debug wins over quiet. Verbose adds source locations to every record.
func NewLogger(w io.Writer, modes internal.Modes) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     logLevel(modes),
		AddSource: modes.Verbose,
	})
	return slog.New(handler)
}

// Returns the log level for the given modes.
func logLevel(modes internal.Modes) slog.Level {
	if modes.Debug {
		return slog.LevelDebug
	}
	if modes.Quiet {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
