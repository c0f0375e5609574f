package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	appName = "cibox"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Directory holding the runner settings file.
//
//	Linux:   $XDG_CONFIG_HOME/cibox
//	macOS:   ~/Library/Application Support/cibox
func Config() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// Default path to the runner settings file.
func ConfigFile() string {
	return filepath.Join(Config(), "config.toml")
}

// Directory for data that can be regenerated, such as git mirrors.
//
//	Linux:   $XDG_CACHE_HOME/cibox
//	macOS:   ~/Library/Caches/cibox
func Cache() string {
	return filepath.Join(xdg.CacheHome, appName)
}

// Default path to the bare git mirror shared by remote builds.
func Mirror() string {
	return filepath.Join(Cache(), "mirror.git")
}
