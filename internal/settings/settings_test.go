package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(name, []byte(content), 0o644))
	return name
}

func TestLoadMissingDefaultFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.toml"), false)
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"), true)
	assert.ErrorIs(t, err, ErrSettings)
}

func TestLoadKeepsDefaultsForAbsentKeys(t *testing.T) {
	name := writeFile(t, `
[containerd]
namespace = "ci"

[sandbox]
bind = false

[git]
mirror = "/srv/mirror.git"
`)

	s, err := Load(name, true)
	require.NoError(t, err)

	want := Default()
	want.Containerd.Namespace = "ci"
	want.Sandbox.Bind = false
	want.Git.Mirror = "/srv/mirror.git"
	assert.Equal(t, want, s)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"syntax", "[containerd\naddress = 1", ErrSettings},
		{"unknown key", "[sandbox]\nimage = \"x\"", ErrSettings},
		{"wrong type", "[sandbox]\nbind = \"yes\"", ErrSettings},
		{"relative shell", "[sandbox]\nshell = \"bash\"", ErrInvalid},
		{"relative workdir", "[sandbox]\nworkdir = \"src\"", ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.content), true)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOverride(t *testing.T) {
	v := "file"

	Override(&v, "")
	assert.Equal(t, "file", v)

	Override(&v, "flag")
	assert.Equal(t, "flag", v)
}
