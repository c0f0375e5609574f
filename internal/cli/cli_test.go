package cli

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/cruciblehq/cibox/internal"
	"github.com/cruciblehq/cibox/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func variations(n int) []manifest.Config {
	configs := make([]manifest.Config, n)
	for i := range configs {
		configs[i] = manifest.Config{Language: "python", Variant: string(rune('a' + i)), Image: "python"}
	}
	return configs
}

func TestSelectEntrySingle(t *testing.T) {
	var stderr bytes.Buffer

	cfg, err := selectEntry(&stderr, variations(1), -1)
	require.NoError(t, err)
	assert.Equal(t, "a", cfg.Variant)
	assert.Empty(t, stderr.String())
}

func TestSelectEntryAmbiguous(t *testing.T) {
	var stderr bytes.Buffer

	_, err := selectEntry(&stderr, variations(3), -1)

	var exit *ExitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 1, exit.Code)
	assert.Equal(t, "3 build variations specify which with --matrix-id\n", stderr.String())
}

func TestSelectEntryByID(t *testing.T) {
	cfg, err := selectEntry(&bytes.Buffer{}, variations(3), 2)
	require.NoError(t, err)
	assert.Equal(t, "c", cfg.Variant)
}

func TestSelectEntryOutOfRange(t *testing.T) {
	_, err := selectEntry(&bytes.Buffer{}, variations(2), 2)
	assert.ErrorIs(t, err, ErrUsage)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, ExitCode(&ExitError{Code: 2}))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))

	wrapped := &ExitError{Code: 1, Err: ErrUsage}
	assert.ErrorIs(t, wrapped, ErrUsage)
	assert.Equal(t, ErrUsage.Error(), wrapped.Error())
	assert.Equal(t, "exit status 2", (&ExitError{Code: 2}).Error())
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		modes internal.Modes
		want  slog.Level
	}{
		{internal.Modes{}, slog.LevelInfo},
		{internal.Modes{Quiet: true}, slog.LevelWarn},
		{internal.Modes{Debug: true}, slog.LevelDebug},
		{internal.Modes{Quiet: true, Debug: true}, slog.LevelDebug},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, logLevel(tt.modes), "%+v", tt.modes)
	}
}

func TestNewLoggerQuiet(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, internal.Modes{Quiet: true})

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestPrintMatrix(t *testing.T) {
	configs := variations(2)
	configs[1].Environment = "FOO=1"

	var out bytes.Buffer
	require.NoError(t, printMatrix(&out, configs))

	s := out.String()
	for _, want := range []string{"ID", "VARIANT", "FOO=1", "python"} {
		assert.Contains(t, s, want)
	}
	assert.Equal(t, 1, strings.Count(s, "FOO=1"))
}
