package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/cruciblehq/cibox/internal/runtime"
	"github.com/pelletier/go-toml/v2"
)

// User settings read from the settings file.
type Settings struct {
	Containerd Containerd `toml:"containerd"`
	Sandbox    Sandbox    `toml:"sandbox"`
	Git        Git        `toml:"git"`
	Defaults   Defaults   `toml:"defaults"`
}

// Connection to the containerd daemon.
type Containerd struct {
	Address     string `toml:"address"`     // Socket address.
	Namespace   string `toml:"namespace"`   // Namespace for images and containers.
	Snapshotter string `toml:"snapshotter"` // Snapshotter for sandbox filesystems.
}

// Shape of the build sandbox.
type Sandbox struct {
	Shell   string `toml:"shell"`   // Shell commands are passed to.
	Workdir string `toml:"workdir"` // Working directory inside the sandbox.
	Bind    bool   `toml:"bind"`    // Bind mount local sources instead of copying them.
}

// Git source handling.
type Git struct {
	Mirror string `toml:"mirror"` // Bare repository remote sources are fetched into. Empty selects the cache directory.
}

// Language defaults catalog.
type Defaults struct {
	Pattern string `toml:"pattern"` // Glob of descriptor files. Empty selects the built-in catalog.
}

// Returns the settings used when no file overrides them.
func Default() Settings {
	return Settings{
		Containerd: Containerd{
			Address:     runtime.DefaultAddress,
			Namespace:   runtime.DefaultNamespace,
			Snapshotter: runtime.DefaultSnapshotter,
		},
		Sandbox: Sandbox{
			Shell:   runtime.DefaultShell,
			Workdir: runtime.DefaultWorkdir,
			Bind:    true,
		},
	}
}

// Reads settings from the TOML file at filename over [Default].
//
// Keys absent from the file keep their default value. A missing file yields
// the defaults unless explicit is set, in which case the caller named the
// file and its absence is an error. Unknown keys are rejected.
func Load(filename string, explicit bool) (Settings, error) {
	s := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return s, nil
		}
		return Settings{}, fmt.Errorf("%w: %w", ErrSettings, err)
	}

	if err := Decode(data, &s); err != nil {
		return Settings{}, fmt.Errorf("%w: %s: %w", ErrSettings, filename, err)
	}
	return s, nil
}

// Decodes TOML data onto s, keeping values for absent keys.
func Decode(data []byte, s *Settings) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(s); err != nil {
		return err
	}
	return s.Validate()
}

// Reports the first invalid value.
func (s Settings) Validate() error {
	if s.Sandbox.Shell != "" && !path.IsAbs(s.Sandbox.Shell) {
		return fmt.Errorf("%w: sandbox.shell %q is not an absolute path", ErrInvalid, s.Sandbox.Shell)
	}
	if s.Sandbox.Workdir != "" && !path.IsAbs(s.Sandbox.Workdir) {
		return fmt.Errorf("%w: sandbox.workdir %q is not an absolute path", ErrInvalid, s.Sandbox.Workdir)
	}
	return nil
}

// Replaces *dst with v when v is not empty. Used to apply command line flags
// over file values.
func Override(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}
