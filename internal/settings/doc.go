// Package settings loads user settings from a TOML file.
//
// The file lives at $XDG_CONFIG_HOME/cibox/config.toml unless another path is
// given on the command line. Every key is optional:
//
//	[containerd]
//	address = "/run/containerd/containerd.sock"
//	namespace = "cibox"
//	snapshotter = "overlayfs"
//
//	[sandbox]
//	shell = "/bin/bash"
//	workdir = "/cibox"
//	bind = true
//
//	[git]
//	mirror = "/var/cache/cibox/mirror.git"
//
//	[defaults]
//	pattern = "/etc/cibox/defaults/*.yml"
//
// Command line flags take precedence over the file, and the file over the
// built-in defaults.
package settings
